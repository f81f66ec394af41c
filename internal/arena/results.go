// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package arena

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

const resultsBreakerName = "arena-results"

// newResultsBreaker guards the historical result fetch. The endpoints sit
// on the same host as the websocket but fail independently (an arena mid
// database operation answers the socket while REST times out), so
// repeated fetch failures must not stall the session goroutine.
func newResultsBreaker(log zerolog.Logger) *gobreaker.CircuitBreaker[map[int]*models.MatchWithResultAndSummary] {
	metrics.CircuitBreakerState.WithLabelValues(resultsBreakerName).Set(0)

	return gobreaker.NewCircuitBreaker[map[int]*models.MatchWithResultAndSummary](gobreaker.Settings{
		Name:        resultsBreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			log.Info().Str("from", fromStr).Str("to", toStr).Msg("Result fetch circuit state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// RefreshResults fetches the historical results for every match type and
// replaces the snapshot. While the circuit is open the previous snapshot
// stays and the call fails fast.
func (c *Client) RefreshResults(ctx context.Context) error {
	start := time.Now()
	merged, err := c.breaker.Execute(func() (map[int]*models.MatchWithResultAndSummary, error) {
		return c.fetchAllResults(ctx)
	})
	metrics.ArenaResultFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.results = merged
	c.mu.Unlock()

	c.log.Debug().Int("matches", len(merged)).Msg("Historical match results refreshed")
	c.notify(ctx, HistoricalScoresUpdated)
	return nil
}

func (c *Client) fetchAllResults(ctx context.Context) (map[int]*models.MatchWithResultAndSummary, error) {
	perType := make([][]models.MatchWithResultAndSummary, len(models.AllMatchTypes))

	g, gctx := errgroup.WithContext(ctx)
	for i, matchType := range models.AllMatchTypes {
		g.Go(func() error {
			matches, err := c.fetchMatches(gctx, matchType)
			if err != nil {
				metrics.ArenaResultFetchErrors.WithLabelValues(matchType.String()).Inc()
				return fmt.Errorf("fetch %s matches: %w", matchType, err)
			}
			perType[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int]*models.MatchWithResultAndSummary)
	for _, matches := range perType {
		for i := range matches {
			match := &matches[i]
			merged[match.ID] = match
		}
	}
	return merged, nil
}

func (c *Client) fetchMatches(ctx context.Context, matchType models.MatchType) ([]models.MatchWithResultAndSummary, error) {
	endpoint := "/api/matches/" + matchType.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.attachSession(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnexpectedStatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	var matches []models.MatchWithResultAndSummary
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return matches, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
