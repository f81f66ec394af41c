// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := gauge.Write(metric); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestSetArenaConnected(t *testing.T) {
	SetArenaConnected(true)
	if got := getGaugeValue(t, ArenaConnected); got != 1 {
		t.Errorf("ArenaConnected = %v, want 1", got)
	}

	SetArenaConnected(false)
	if got := getGaugeValue(t, ArenaConnected); got != 0 {
		t.Errorf("ArenaConnected = %v, want 0", got)
	}
}

func TestRecordArenaNotification(t *testing.T) {
	counter := ArenaNotifications.WithLabelValues("matchTime")
	before := getCounterValue(t, counter)

	RecordArenaNotification("matchTime")
	RecordArenaNotification("matchTime")

	if got := getCounterValue(t, counter); got != before+2 {
		t.Errorf("ArenaNotifications = %v, want %v", got, before+2)
	}
}

func TestRecordHyperdeckCommand(t *testing.T) {
	success := HyperdeckCommands.WithLabelValues("record", "success")
	failure := HyperdeckCommands.WithLabelValues("record", "failure")
	successBefore := getCounterValue(t, success)
	failureBefore := getCounterValue(t, failure)

	RecordHyperdeckCommand("record", nil)
	RecordHyperdeckCommand("record", errors.New("connection lost"))

	if got := getCounterValue(t, success); got != successBefore+1 {
		t.Errorf("success counter = %v, want %v", got, successBefore+1)
	}
	if got := getCounterValue(t, failure); got != failureBefore+1 {
		t.Errorf("failure counter = %v, want %v", got, failureBefore+1)
	}
}

func TestRecordStoreWrite(t *testing.T) {
	writesBefore := getCounterValue(t, StoreWrites)
	errorsBefore := getCounterValue(t, StoreWriteErrors)

	RecordStoreWrite(nil)
	RecordStoreWrite(errors.New("disk full"))

	if got := getCounterValue(t, StoreWrites); got != writesBefore+1 {
		t.Errorf("StoreWrites = %v, want %v", got, writesBefore+1)
	}
	if got := getCounterValue(t, StoreWriteErrors); got != errorsBefore+1 {
		t.Errorf("StoreWriteErrors = %v, want %v", got, errorsBefore+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("GET", "/api/status", "200")
	before := getCounterValue(t, counter)

	RecordAPIRequest("GET", "/api/status", "200", 25*time.Millisecond)

	if got := getCounterValue(t, counter); got != before+1 {
		t.Errorf("APIRequestsTotal = %v, want %v", got, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := getGaugeValue(t, APIActiveRequests)

	TrackActiveRequest(true)
	if got := getGaugeValue(t, APIActiveRequests); got != before+1 {
		t.Errorf("APIActiveRequests = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := getGaugeValue(t, APIActiveRequests); got != before {
		t.Errorf("APIActiveRequests = %v, want %v", got, before)
	}
}
