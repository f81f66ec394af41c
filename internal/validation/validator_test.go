// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package validation

import (
	"strings"
	"testing"
)

type testCommand struct {
	VarID    string  `validate:"required"`
	Speed    float64 `validate:"gte=0,lte=2"`
	Endpoint string  `validate:"omitempty,hostname_port"`
	Mode     string  `validate:"omitempty,oneof=compat var"`
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator returned distinct instances")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	cmd := testCommand{
		VarID:    "qm12",
		Speed:    1.0,
		Endpoint: "10.0.100.5:8080",
		Mode:     "var",
	}

	if err := ValidateStruct(&cmd); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cmd     testCommand
		field   string
		tag     string
		message string
	}{
		{
			name:    "missing required field",
			cmd:     testCommand{Speed: 1.0},
			field:   "VarID",
			tag:     "required",
			message: "VarID is required",
		},
		{
			name:    "value above bound",
			cmd:     testCommand{VarID: "qm1", Speed: 3.5},
			field:   "Speed",
			tag:     "lte",
			message: "Speed must be less than or equal to 2",
		},
		{
			name:    "bad address",
			cmd:     testCommand{VarID: "qm1", Endpoint: "not an address"},
			field:   "Endpoint",
			tag:     "hostname_port",
			message: "Endpoint must be a host:port address",
		},
		{
			name:    "bad enum value",
			cmd:     testCommand{VarID: "qm1", Mode: "replay"},
			field:   "Mode",
			tag:     "oneof",
			message: "Mode must be one of: compat var",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.cmd)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(errs), err)
			}
			if errs[0].Field() != tt.field {
				t.Errorf("field = %q, want %q", errs[0].Field(), tt.field)
			}
			if errs[0].Tag() != tt.tag {
				t.Errorf("tag = %q, want %q", errs[0].Tag(), tt.tag)
			}
			if errs[0].Error() != tt.message {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.message)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	cmd := testCommand{Speed: -1}

	err := ValidateStruct(&cmd)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(err.Errors()), err)
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected combined message with separator, got: %s", err.Error())
	}
}

func TestTranslateMinMax_StringLength(t *testing.T) {
	type form struct {
		Password string `validate:"min=8"`
	}

	err := ValidateStruct(&form{Password: "short"})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if got := err.Errors()[0].Error(); got != "Password must be at least 8 characters" {
		t.Errorf("message = %q", got)
	}
}
