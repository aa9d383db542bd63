// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recording

import (
	"time"

	"github.com/google/uuid"
)

// Recording is the persisted metadata record for one captured memo.
// The audio payload itself lives at Uri; the registry never validates
// that the file exists at write time.
//
// Serialized as plain JSON with no version tag — readers must tolerate
// missing fields and ignore unknown ones so old histories keep loading.
type Recording struct {
	Id        string  `json:"id"`
	Uri       string  `json:"uri"`
	Duration  float64 `json:"duration"`  // seconds, captured once at stop time
	Timestamp int64   `json:"timestamp"` // creation instant, epoch millis
	Title     string  `json:"title"`
	Summary   string  `json:"summary,omitempty"` // set by later analysis
}

// Patch carries a partial update. Nil fields are left untouched on the
// target recording.
type Patch struct {
	Uri      *string
	Duration *float64
	Title    *string
	Summary  *string
}

// Apply merges the patch into r.
func (p Patch) Apply(r *Recording) {
	if p.Uri != nil {
		r.Uri = *p.Uri
	}
	if p.Duration != nil {
		r.Duration = *p.Duration
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Summary != nil {
		r.Summary = *p.Summary
	}
}

// New creates a recording for a just-stopped capture session. The id is
// a fresh UUID and the title defaults to a timestamp-derived label the
// user can rename later.
func New(uri string, duration float64) Recording {
	now := time.Now()
	return Recording{
		Id:        uuid.New().String(),
		Uri:       uri,
		Duration:  duration,
		Timestamp: now.UnixMilli(),
		Title:     "Recording " + now.Format("2006-01-02 15:04"),
	}
}
