// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rapidaai/voicememo/pkg/commons"
)

const (
	AudioSampleRate     = 16000
	AudioChannels       = 1
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag
)

// chunk is a captured audio fragment placed at a specific position on
// the session timeline. ByteOffset is the byte position relative to
// Start().
type chunk struct {
	ByteOffset int
	Data       []byte
}

// wavDevice captures mic PCM frames on a wall-clock timeline and renders
// one WAV file on Stop. Frames are positioned based on WHEN they arrive,
// not just appended; gaps become silence so the rendered duration
// matches the wall-clock session length.
type wavDevice struct {
	logger commons.Logger
	dir    string

	mu        sync.Mutex
	startTime time.Time
	started   bool
	chunks    []chunk
	// cursor is the byte position just past the last written byte. The
	// mic delivers at real-time rate, so wall-clock placement is the
	// correct timeline position; the cursor only guards against overlap.
	cursor int
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewWavDevice returns a capture device rendering into dir.
func NewWavDevice(logger commons.Logger, dir string) Device {
	return &wavDevice{
		logger: logger,
		dir:    dir,
		clock:  time.Now,
	}
}

// WavDeviceFactory builds a DeviceFactory so each capture session gets
// its own device handle.
func WavDeviceFactory(logger commons.Logger, dir string) DeviceFactory {
	return func() Device {
		return NewWavDevice(logger, dir)
	}
}

func bytesPerSecond() int {
	return AudioSampleRate * AudioChannels * AudioBytesPerSample
}

// durationBytes converts a wall-clock duration to a frame-aligned byte count.
func durationBytes(d time.Duration) int {
	raw := int(d.Seconds() * float64(bytesPerSecond()))
	frameSize := AudioBytesPerSample * AudioChannels
	return (raw / frameSize) * frameSize
}

// Start begins the capture timeline. All subsequent Write calls are
// placed relative to this moment.
func (d *wavDevice) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("capture already started")
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare audio dir %s: %w", d.dir, err)
	}
	d.startTime = d.clock()
	d.started = true
	return nil
}

func (d *wavDevice) Write(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return fmt.Errorf("capture not started")
	}

	offset := durationBytes(d.clock().Sub(d.startTime))
	if d.cursor > offset {
		offset = d.cursor
	}

	// Copy to avoid caller mutations.
	buf := make([]byte, len(pcm))
	copy(buf, pcm)

	d.chunks = append(d.chunks, chunk{ByteOffset: offset, Data: buf})
	d.cursor = offset + len(buf)
	return nil
}

// Stop ends the session, renders the WAV and returns its location and
// elapsed duration. The device is spent afterwards.
func (d *wavDevice) Stop(ctx context.Context) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return Result{}, fmt.Errorf("capture not started")
	}
	d.started = false

	// Session length in bytes, extended to the furthest chunk end.
	totalLen := durationBytes(d.clock().Sub(d.startTime))
	for _, c := range d.chunks {
		if end := c.ByteOffset + len(c.Data); end > totalLen {
			totalLen = end
		}
	}

	// Zero-filled (silence) buffer; paint each chunk at its position.
	pcm := make([]byte, totalLen)
	audioBytes := 0
	for _, c := range d.chunks {
		copy(pcm[c.ByteOffset:], c.Data)
		audioBytes += len(c.Data)
	}
	d.chunks = nil

	path := filepath.Join(d.dir, uuid.New().String()+".wav")
	if err := os.WriteFile(path, renderWAV(pcm), 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write captured audio %s: %w", path, err)
	}

	duration := float64(totalLen) / float64(bytesPerSecond())
	d.logger.Infof("capture stopped: audio=%d bytes, session=%.2fs, file=%s",
		audioBytes, duration, path)

	return Result{Uri: path, Duration: duration}, nil
}

func renderWAV(pcmData []byte) []byte {
	var buf bytes.Buffer
	bps := bytesPerSecond()

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(AudioSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBytesPerSample*AudioChannels))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)

	return buf.Bytes()
}
