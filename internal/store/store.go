// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

// Package store persists coordinator state as pretty-printed JSON files
// under a single root folder. Writes go through an atomic rename so the
// files stay inspectable and hand-editable between runs without readers
// ever observing a partial write.
//
// Layout:
//
//	<root>/arena_client.json    arena session state
//	<root>/matches/<id>.json    one file per recorded match
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

const (
	arenaClientFile = "arena_client.json"
	matchesDir      = "matches"

	fileMode = 0o644
	dirMode  = 0o755
)

// Store reads and writes coordinator state below a root folder. Loads are
// tolerant: a missing or malformed file is reported as absent (with a
// warning for malformed content) rather than failing the caller.
type Store struct {
	root string
	log  zerolog.Logger
}

// New opens a store rooted at the given folder, creating it and the
// matches subfolder as needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("store: root folder must not be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, matchesDir), dirMode); err != nil {
		return nil, fmt.Errorf("store: create folders: %w", err)
	}
	return &Store{
		root: root,
		log:  logging.With().Str("component", "store").Logger(),
	}, nil
}

// Root returns the folder the store writes under.
func (s *Store) Root() string { return s.root }

// SaveArenaClientState persists the arena session state.
func (s *Store) SaveArenaClientState(state *models.ArenaClientState) error {
	return s.writeJSON(filepath.Join(s.root, arenaClientFile), state)
}

// LoadArenaClientState returns the persisted arena session state, or nil
// when none has been saved yet.
func (s *Store) LoadArenaClientState() *models.ArenaClientState {
	var state models.ArenaClientState
	if !s.readJSON(filepath.Join(s.root, arenaClientFile), &state) {
		return nil
	}
	return &state
}

// SaveMatch persists one recorded match keyed by its var id.
func (s *Store) SaveMatch(match *models.RecordedMatch) error {
	path, ok := s.matchPath(match.VarID)
	if !ok {
		return fmt.Errorf("store: invalid match id %q", match.VarID)
	}
	if err := s.writeJSON(path, match); err != nil {
		return err
	}
	metrics.StoreMatches.Set(float64(len(s.ListMatchIDs())))
	return nil
}

// LoadMatch returns the stored match for a var id, or nil when absent.
func (s *Store) LoadMatch(varID string) *models.RecordedMatch {
	path, ok := s.matchPath(varID)
	if !ok {
		s.log.Warn().Str("match_id", varID).Msg("Rejecting invalid match id")
		return nil
	}
	var match models.RecordedMatch
	if !s.readJSON(path, &match) {
		return nil
	}
	return &match
}

// ListMatchIDs returns the var ids of all stored matches, sorted.
func (s *Store) ListMatchIDs() []string {
	paths, err := filepath.Glob(filepath.Join(s.root, matchesDir, "*.json"))
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to list match files")
		return nil
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, strings.TrimSuffix(filepath.Base(p), ".json"))
	}
	sort.Strings(ids)
	return ids
}

// LoadAllMatches loads every stored match, skipping unreadable files.
func (s *Store) LoadAllMatches() map[string]*models.RecordedMatch {
	matches := make(map[string]*models.RecordedMatch)
	for _, id := range s.ListMatchIDs() {
		if match := s.LoadMatch(id); match != nil {
			matches[id] = match
		}
	}
	metrics.StoreMatches.Set(float64(len(matches)))
	return matches
}

// matchPath maps a var id to its file path. Ids that could escape the
// matches folder are rejected; they never originate from the coordinator
// itself but may arrive in operator commands.
func (s *Store) matchPath(varID string) (string, bool) {
	if varID == "" || varID == "." || varID == ".." || strings.ContainsAny(varID, `/\`) {
		return "", false
	}
	return filepath.Join(s.root, matchesDir, varID+".json"), true
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", filepath.Base(path), err)
	}
	err = renameio.WriteFile(path, data, fileMode)
	metrics.RecordStoreWrite(err)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reports whether v was populated from the file at path.
func (s *Store) readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("file", path).Msg("Failed to read state file")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn().Err(err).Str("file", path).Msg("Ignoring malformed state file")
		return false
	}
	return true
}
