// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_store

import (
	"context"

	internal_recording "github.com/rapidaai/voicememo/internal/recording"
)

// Store persists the complete recording history as one serialized unit
// under one fixed key. There are no partial or incremental writes: every
// Save replaces the whole collection.
//
// Load is fail-soft: a missing or corrupt payload degrades to an empty
// history rather than blocking startup. Save failures are reported to
// the caller (the registry decides what to do with its cache).
type Store interface {
	Load(ctx context.Context) ([]internal_recording.Recording, error)
	Save(ctx context.Context, recordings []internal_recording.Recording) error
}
