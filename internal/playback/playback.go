// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_playback

import "context"

// Handle is one loaded, controllable audio clip. At most one is open at
// a time; Unload releases it. The completion callback fires once when
// the clip reaches its natural end, never on Pause or Unload.
type Handle interface {
	Play() error
	Pause() error
	Unload() error
	// OnComplete registers the natural end-of-audio listener. Must be
	// set before the first Play.
	OnComplete(fn func())
}

// Opener creates a handle for a uri. Handle creation is asynchronous
// on-device, so it takes a context.
type Opener func(ctx context.Context, uri string) (Handle, error)
