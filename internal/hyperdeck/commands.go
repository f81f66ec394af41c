// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package hyperdeck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

const (
	recordPath        = "/transports/0/record"
	stopPath          = "/transports/0/stop"
	transportClipPath = "/transports/0/clip"
	playbackPath      = "/transports/0/playback"
	transportPath     = "/transports/0"
)

// StartRecording starts a new recording under the given clip name.
func (c *Client) StartRecording(ctx context.Context, clipName string) error {
	err := c.do(ctx, http.MethodPost, recordPath, &models.RecordRequest{ClipName: clipName})
	metrics.RecordHyperdeckCommand("record", err)
	if err != nil {
		return err
	}
	c.log.Info().Str("clip_name", clipName).Msg("Started recording")
	return nil
}

// StopRecording stops the active recording and waits for the deck to
// finalize the clip, returning its id. ErrFinalizeTimeout means the stop
// itself succeeded but the clip id never appeared within the window.
func (c *Client) StopRecording(ctx context.Context) (clipID int, err error) {
	defer func() { metrics.RecordHyperdeckCommand("stop", err) }()

	if err = c.do(ctx, http.MethodPost, stopPath, nil); err != nil {
		return 0, err
	}
	c.log.Info().Msg("Stopped recording")

	clip, err := c.waitForFinalizedClip(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.clips[clip.ClipUniqueID] = *clip
	c.mu.Unlock()
	c.notify(ctx, ClipListUpdated)

	c.log.Info().Int("clip_id", clip.ClipUniqueID).Int("frames", clip.FrameCount).Msg("Recording finalized")
	return clip.ClipUniqueID, nil
}

// waitForFinalizedClip polls the current-clip endpoint until the deck has
// flushed the recording and assigned it an id and frame count.
func (c *Client) waitForFinalizedClip(ctx context.Context) (*models.Clip, error) {
	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed >= c.finalizeTimeout {
			metrics.HyperdeckFinalizeDuration.Observe(elapsed.Seconds())
			return nil, ErrFinalizeTimeout
		}

		body, err := c.get(ctx, transportClipPath)
		if err != nil {
			return nil, err
		}
		var clipResp models.ClipResponse
		if err := json.Unmarshal(body, &clipResp); err != nil {
			c.log.Debug().Err(err).Dur("elapsed", elapsed).Msg("Clip not finalized yet")
		} else if clip := clipResp.Clip; clip != nil && clip.ClipUniqueID != 0 && clip.FrameCount != 0 {
			metrics.HyperdeckFinalizeDuration.Observe(time.Since(start).Seconds())
			return clip, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// WarpToClip positions the playback head within a clip, paused.
func (c *Client) WarpToClip(ctx context.Context, clipID int, timeSec float64) error {
	c.mu.RLock()
	clip, ok := c.clips[clipID]
	c.mu.RUnlock()
	if !ok {
		err := &UnknownClipError{ClipID: clipID}
		metrics.RecordHyperdeckCommand("warp", err)
		return err
	}

	frames := int(timeSec * clip.VideoFormat.FrameRate)
	request := &models.PlaybackState{
		Type:       models.PlaybackJog,
		Loop:       false,
		SingleClip: true,
		Speed:      0,
		Position:   c.timelinePosition(clipID, frames),
	}

	// The deck sometimes ignores a single seek while it loads the clip,
	// so the position is set twice.
	for i := 0; i < 2; i++ {
		if err := c.do(ctx, http.MethodPut, playbackPath, request); err != nil {
			metrics.RecordHyperdeckCommand("warp", err)
			return err
		}
	}
	metrics.RecordHyperdeckCommand("warp", nil)
	c.log.Debug().Int("clip_id", clipID).Float64("time_sec", timeSec).Int("position", request.Position).Msg("Warped playback")
	return nil
}

// timelinePosition maps a frame offset within a clip to an absolute
// timeline position, clamped to the clip's extent.
func (c *Client) timelinePosition(clipID, frames int) int {
	c.mu.RLock()
	entry, ok := c.timeline[clipID]
	c.mu.RUnlock()
	if !ok {
		c.log.Error().Int("clip_id", clipID).Msg("No timeline entry for clip, warping to timeline start")
		return 0
	}

	frame := frames
	if frame < entry.ClipIn {
		frame = entry.ClipIn
	}
	if last := entry.ClipIn + entry.FrameCount - 1; frame > last {
		frame = last
	}
	return entry.TimelineIn + frame - entry.ClipIn
}

// ShowLiveView switches the deck output back to the camera input.
func (c *Client) ShowLiveView(ctx context.Context) error {
	err := c.do(ctx, http.MethodPut, transportPath, &models.TransportInfo{Mode: models.TransportInputPreview})
	metrics.RecordHyperdeckCommand("live_view", err)
	if err != nil {
		return err
	}
	c.log.Debug().Msg("Switched recorder to live view")
	return nil
}

func (c *Client) baseURL() string {
	return "http://" + c.address + apiBasePath
}

// do issues a REST command and accepts any 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &UnexpectedStatusError{Endpoint: path, Code: resp.StatusCode}
	}
	return nil
}

// get issues a REST query and returns the raw body on 200.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UnexpectedStatusError{Endpoint: path, Code: resp.StatusCode}
	}
	return body, nil
}
