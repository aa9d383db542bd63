// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_playback

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rapidaai/voicememo/pkg/commons"
)

// wavHandle drives playback timing off the clip's WAV header: Play arms
// a timer for the remaining duration, Pause banks the remainder, and
// the timer firing is the natural end-of-audio event.
type wavHandle struct {
	logger commons.Logger
	uri    string

	mu        sync.Mutex
	remaining time.Duration
	playingAt time.Time
	timer     *time.Timer
	unloaded  bool
	onDone    func()
}

// NewWavOpener returns the default Opener for rendered WAV clips.
func NewWavOpener(logger commons.Logger) Opener {
	return func(ctx context.Context, uri string) (Handle, error) {
		duration, err := ReadWAVDuration(uri)
		if err != nil {
			return nil, err
		}
		logger.Debugf("playback handle opened: uri=%s, duration=%s", uri, duration)
		return &wavHandle{
			logger:    logger,
			uri:       uri,
			remaining: duration,
		}, nil
	}
}

func (h *wavHandle) OnComplete(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDone = fn
}

func (h *wavHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return fmt.Errorf("playback handle already unloaded")
	}
	if h.timer != nil {
		return nil // already playing
	}
	if h.remaining <= 0 {
		h.remaining = 0
	}
	h.playingAt = time.Now()
	h.timer = time.AfterFunc(h.remaining, h.complete)
	return nil
}

func (h *wavHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return fmt.Errorf("playback handle already unloaded")
	}
	if h.timer == nil {
		return nil // not playing
	}
	h.timer.Stop()
	h.timer = nil
	h.remaining -= time.Since(h.playingAt)
	if h.remaining < 0 {
		h.remaining = 0
	}
	return nil
}

func (h *wavHandle) Unload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.unloaded = true
	return nil
}

// complete fires on the timer goroutine at natural end-of-audio.
func (h *wavHandle) complete() {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	h.remaining = 0
	done := h.onDone
	h.mu.Unlock()

	if done != nil {
		done()
	}
}

// ReadWAVDuration reads a canonical PCM WAV header and derives the clip
// duration from its byte rate and data length.
func ReadWAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 44)
	if _, err := f.Read(header); err != nil {
		return 0, fmt.Errorf("failed to read audio header %s: %w", path, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a WAV file: %s", path)
	}

	byteRate := binary.LittleEndian.Uint32(header[28:32])
	dataLen := binary.LittleEndian.Uint32(header[40:44])
	if byteRate == 0 {
		return 0, fmt.Errorf("invalid WAV byte rate: %s", path)
	}
	seconds := float64(dataLen) / float64(byteRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
