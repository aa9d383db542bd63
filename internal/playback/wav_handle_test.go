// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_playback

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rapidaai/voicememo/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-playback"),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// writeWAV renders a canonical 16kHz mono PCM header plus pcmLen zero bytes.
func writeWAV(t *testing.T, pcmLen int) string {
	t.Helper()
	var buf bytes.Buffer
	byteRate := 16000 * 2

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+pcmLen))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(pcmLen))
	buf.Write(make([]byte, pcmLen))

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadWAVDuration(t *testing.T) {
	path := writeWAV(t, 16000*2*3) // 3 seconds

	duration, err := ReadWAVDuration(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duration != 3*time.Second {
		t.Errorf("expected 3s, got %s", duration)
	}
}

func TestReadWAVDurationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	os.WriteFile(path, []byte("this is definitely not RIFF data, not at all"), 0o644)

	if _, err := ReadWAVDuration(path); err == nil {
		t.Fatal("expected error for non-WAV payload")
	}
}

func TestOpenMissingFileFails(t *testing.T) {
	opener := NewWavOpener(newTestLogger(t))
	if _, err := opener(context.Background(), "/nope/missing.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNaturalEndFiresCompletion(t *testing.T) {
	opener := NewWavOpener(newTestLogger(t))
	handle, err := opener(context.Background(), writeWAV(t, 320)) // 10ms clip
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Unload()

	done := make(chan struct{})
	handle.OnComplete(func() { close(done) })
	if err := handle.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion listener never fired")
	}
}

func TestUnloadSuppressesCompletion(t *testing.T) {
	opener := NewWavOpener(newTestLogger(t))
	handle, err := opener(context.Background(), writeWAV(t, 16000*2)) // 1s clip
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	fired := make(chan struct{}, 1)
	handle.OnComplete(func() { fired <- struct{}{} })
	handle.Play()
	handle.Unload()

	select {
	case <-fired:
		t.Fatal("completion fired after Unload")
	case <-time.After(1200 * time.Millisecond):
	}
}

func TestPauseBanksRemainder(t *testing.T) {
	opener := NewWavOpener(newTestLogger(t))
	handle, err := opener(context.Background(), writeWAV(t, 16000*2)) // 1s clip
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Unload()

	fired := make(chan struct{}, 1)
	handle.OnComplete(func() { fired <- struct{}{} })
	handle.Play()
	handle.Pause()

	// Paused: nothing should complete.
	select {
	case <-fired:
		t.Fatal("completion fired while paused")
	case <-time.After(1200 * time.Millisecond):
	}

	handle.Play()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("completion never fired after resume")
	}
}
