// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by a PermissionFunc when microphone
// access is refused. The controller surfaces it and stays idle.
var ErrPermissionDenied = errors.New("microphone permission denied")

// PermissionFunc gates the start of a capture session. Requesting the
// grant is asynchronous on-device, so it takes a context.
type PermissionFunc func(ctx context.Context) error

// GrantAlways is the permission gate used where the platform has
// already granted microphone access.
func GrantAlways(ctx context.Context) error { return nil }

// Result is what a completed capture session produces: the location of
// the rendered audio and its elapsed duration. This pair is the sole
// source of a new recording entity's uri and duration.
type Result struct {
	Uri      string
	Duration float64 // seconds
}

// Device is one in-progress audio capture. At most one is open at a
// time; Stop releases it and renders the captured audio.
type Device interface {
	Start(ctx context.Context) error
	// Write places a PCM frame on the session timeline.
	Write(pcm []byte) error
	Stop(ctx context.Context) (Result, error)
}

// DeviceFactory opens a fresh capture device for one session.
type DeviceFactory func() Device
