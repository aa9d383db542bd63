// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"context"
	"fmt"
	"sync"

	internal_analysis "github.com/rapidaai/voicememo/internal/analysis"
	internal_capture "github.com/rapidaai/voicememo/internal/capture"
	internal_playback "github.com/rapidaai/voicememo/internal/playback"
	internal_recording "github.com/rapidaai/voicememo/internal/recording"
	internal_registry "github.com/rapidaai/voicememo/internal/registry"
	"github.com/rapidaai/voicememo/pkg/commons"
	"github.com/rapidaai/voicememo/pkg/utils"
)

// State is the controller's single tagged lifecycle value. One value
// replaces independent capturing/playing booleans so impossible
// combinations cannot be represented.
type State string

const (
	StateIdle              State = "idle"
	StateCapturing         State = "capturing"
	StateStopped           State = "stopped"
	StatePreparingPlayback State = "preparing_playback"
	StatePlaying           State = "playing"
	StatePaused            State = "paused"
)

// Controller manages one active capture session and one active playback
// session at a time. Uploading is a side-branch latch, not a state: it
// never blocks capture/playback controls from being re-armed, and
// re-entrant upload triggers are ignored rather than queued.
//
// Every asynchronous suspension point (permission grant, playback
// handle creation, upload round-trip) runs outside the mutex. Each
// capture/playback generation owns a monotonically increasing session
// token; completion callbacks and late async results compare their
// token against the current one and are discarded silently when stale.
type Controller struct {
	logger     commons.Logger
	registry   internal_registry.Registry
	devices    internal_capture.DeviceFactory
	permission internal_capture.PermissionFunc
	opener     internal_playback.Opener
	analyzer   internal_analysis.Client

	mu      sync.Mutex
	state   State
	session uint64 // current session token

	device    internal_capture.Device // open capture handle, nil unless Capturing
	handle    internal_playback.Handle
	handleUri string
	last      *internal_capture.Result

	uploading     bool
	transcription string
	analysisText  string

	// preselected recording supplied by inbound navigation parameters
	selectedId    string
	selectedTitle string
	selectedUri   string
}

// NewController wires the controller with its collaborators.
func NewController(
	logger commons.Logger,
	registry internal_registry.Registry,
	devices internal_capture.DeviceFactory,
	permission internal_capture.PermissionFunc,
	opener internal_playback.Opener,
	analyzer internal_analysis.Client,
) *Controller {
	return &Controller{
		logger:     logger,
		registry:   registry,
		devices:    devices,
		permission: permission,
		opener:     opener,
		analyzer:   analyzer,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcription and Analysis expose the last applied upload result.
func (c *Controller) Transcription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcription
}

func (c *Controller) Analysis() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysisText
}

// Preselect seeds the controller with an existing recording supplied by
// navigation parameters, for immediate analysis without a fresh capture.
func (c *Controller) Preselect(id, title, uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedId = id
	c.selectedTitle = title
	c.selectedUri = uri
	c.logger.Debugf("preselected recording: id=%s, uri=%s", id, uri)
}

// StartCapture transitions Idle → Capturing. A second start while
// already Capturing is a no-op, keeping exactly one open capture
// handle. Permission denial keeps the state at Idle and surfaces the
// error. Entering capture supersedes any previous session: stale
// playback and analysis state is reset.
func (c *Controller) StartCapture(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateCapturing {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Suspension point: the grant prompt. No state has changed yet, so
	// a denial leaves the controller exactly where it was.
	if err := c.permission(ctx); err != nil {
		c.logger.Errorf("capture permission refused: %v", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCapturing {
		return nil // a parallel trigger won while we awaited the grant
	}

	// New session supersedes whatever was on screen.
	c.session++
	c.resetStaleLocked()

	device := c.devices()
	if err := device.Start(ctx); err != nil {
		c.logger.Errorf("capture hardware failed to start: %v", err)
		c.state = StateIdle
		return fmt.Errorf("failed to start capture: %w", err)
	}
	c.device = device
	c.last = nil
	c.state = StateCapturing
	c.logger.Infof("capture started: session=%d", c.session)
	return nil
}

// resetStaleLocked clears leftovers of a superseded session. Must be
// called with the mutex held.
func (c *Controller) resetStaleLocked() {
	if c.handle != nil {
		c.handle.Unload()
		c.handle = nil
		c.handleUri = ""
	}
	c.transcription = ""
	c.analysisText = ""
	c.selectedId = ""
	c.selectedTitle = ""
	c.selectedUri = ""
}

// Write forwards a PCM frame to the active capture session. Frames
// arriving outside a capture session are dropped.
func (c *Controller) Write(pcm []byte) error {
	c.mu.Lock()
	device := c.device
	capturing := c.state == StateCapturing
	c.mu.Unlock()
	if !capturing || device == nil {
		return nil
	}
	return device.Write(pcm)
}

// StopCapture transitions Capturing → Stopped and produces the session's
// (uri, duration) pair — the sole producer of a new recording's handle.
// A stop with no active capture is a no-op.
func (c *Controller) StopCapture(ctx context.Context) (*internal_capture.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCapturing || c.device == nil {
		return nil, nil
	}

	result, err := c.device.Stop(ctx)
	c.device = nil
	if err != nil {
		c.logger.Errorf("capture hardware failed to stop: %v", err)
		c.state = StateIdle
		return nil, fmt.Errorf("failed to stop capture: %w", err)
	}

	c.last = &result
	c.state = StateStopped
	c.logger.Infof("capture stopped: uri=%s, duration=%.1fs", result.Uri, result.Duration)
	return &result, nil
}

// SaveRecording persists the last stopped capture as a new registry
// entity and returns it.
func (c *Controller) SaveRecording(ctx context.Context) (*internal_recording.Recording, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last == nil {
		return nil, fmt.Errorf("no stopped capture to save")
	}

	rec := internal_recording.New(last.Uri, last.Duration)
	if err := c.registry.Add(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TogglePlayback drives Stopped/Paused → Playing and Playing → Paused.
// The first entry from Stopped lazily opens a handle for the uri; later
// toggles act on the already-open handle. Natural end-of-audio releases
// the handle and returns to Stopped without user action.
func (c *Controller) TogglePlayback(ctx context.Context, uri string) error {
	c.mu.Lock()

	switch c.state {
	case StatePlaying:
		err := c.handle.Pause()
		if err == nil {
			c.state = StatePaused
		}
		c.mu.Unlock()
		return err

	case StatePaused:
		if c.handleUri == uri && c.handle != nil {
			err := c.handle.Play()
			if err == nil {
				c.state = StatePlaying
			}
			c.mu.Unlock()
			return err
		}
		// Different clip requested: fall through to a fresh open.

	case StateIdle, StateStopped:
		// fresh or re-entry, open below if needed

	default:
		// Capturing / PreparingPlayback: playback toggles are ignored.
		c.mu.Unlock()
		return nil
	}

	if c.handle != nil && c.handleUri == uri {
		err := c.handle.Play()
		if err == nil {
			c.state = StatePlaying
		}
		c.mu.Unlock()
		return err
	}

	// Replace any handle bound to another clip.
	if c.handle != nil {
		c.handle.Unload()
		c.handle = nil
		c.handleUri = ""
	}

	c.session++
	token := c.session
	c.state = StatePreparingPlayback
	c.mu.Unlock()

	// Suspension point: handle creation is asynchronous.
	handle, err := c.opener(ctx, uri)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.session {
		// A newer session superseded this open; discard the late handle.
		if handle != nil {
			handle.Unload()
		}
		return nil
	}
	if err != nil {
		c.logger.Errorf("playback failed to open %s: %v", uri, err)
		c.state = StateStopped
		return fmt.Errorf("failed to prepare playback: %w", err)
	}

	handle.OnComplete(func() { c.playbackComplete(token) })
	if err := handle.Play(); err != nil {
		c.logger.Errorf("playback failed to start %s: %v", uri, err)
		handle.Unload()
		c.state = StateStopped
		return fmt.Errorf("failed to start playback: %w", err)
	}
	c.handle = handle
	c.handleUri = uri
	c.state = StatePlaying
	return nil
}

// playbackComplete is the natural end-of-audio listener. A stale token
// means the handle was superseded; its completion is discarded.
func (c *Controller) playbackComplete(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.session || c.state != StatePlaying {
		return
	}
	if c.handle != nil {
		c.handle.Unload()
		c.handle = nil
		c.handleUri = ""
	}
	c.state = StateStopped
	c.logger.Debugf("playback reached end of audio")
}

// Upload sends a captured or registered clip to the analysis endpoint.
// Only one upload is in flight at a time; re-entrant triggers while
// uploading are ignored, not queued. A success applies the result to
// the session view (token-checked) and attaches the analysis as the
// recording's summary when the uri belongs to a registry entry.
func (c *Controller) Upload(ctx context.Context, uri string, title string) (*internal_analysis.Result, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, nil
	}
	c.uploading = true
	token := c.session
	if utils.IsEmpty(uri) {
		uri = c.selectedUri
		title = utils.FirstNonEmpty(title, c.selectedTitle)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	if utils.IsEmpty(uri) {
		return nil, fmt.Errorf("no recording selected for analysis")
	}

	// Suspension point: the network round-trip.
	result, err := c.analyzer.Send(ctx, uri, title)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if token == c.session {
		c.transcription = result.Transcription
		c.analysisText = result.Analysis
	}
	c.mu.Unlock()

	c.attachSummary(ctx, uri, result.Analysis)
	return result, nil
}

// attachSummary writes the analysis back onto the matching registry
// entry, if any. A failed write is logged, not surfaced: the user
// already has the analysis on screen.
func (c *Controller) attachSummary(ctx context.Context, uri, summary string) {
	for _, rec := range c.registry.All() {
		if rec.Uri == uri {
			patch := internal_recording.Patch{Summary: &summary}
			if err := c.registry.Update(ctx, rec.Id, patch); err != nil {
				c.logger.Errorf("failed to attach summary to %s: %v", rec.Id, err)
			}
			return
		}
	}
}

// Rename updates a recording's title.
func (c *Controller) Rename(ctx context.Context, id, title string) error {
	return c.registry.Update(ctx, id, internal_recording.Patch{Title: &title})
}

// DeleteRecording removes a recording. Any playback handle referencing
// its uri is unloaded synchronously before the registry delete.
func (c *Controller) DeleteRecording(ctx context.Context, id string) error {
	rec, ok := c.registry.Get(id)
	if !ok {
		return nil
	}

	c.mu.Lock()
	if c.handle != nil && c.handleUri == rec.Uri {
		c.handle.Unload()
		c.handle = nil
		c.handleUri = ""
		c.session++ // orphan any in-flight callbacks for this handle
		if c.state == StatePlaying || c.state == StatePaused || c.state == StatePreparingPlayback {
			c.state = StateStopped
		}
	}
	c.mu.Unlock()

	return c.registry.Delete(ctx, id)
}
