// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_registry

import (
	"context"
	"fmt"
	"sync"

	internal_recording "github.com/rapidaai/voicememo/internal/recording"
	internal_store "github.com/rapidaai/voicememo/internal/store"
	"github.com/rapidaai/voicememo/pkg/commons"
)

// Registry is the single access point for recording history. It owns the
// in-memory cache and the injected store; every screen holds a reference
// to the same Registry and all mutation flows through its methods.
//
// Each mutation is read-modify-write over the entire collection: it
// builds the full next sequence, persists it wholesale, and only then
// installs it in memory. On a persistence failure the cache is left
// untouched, so memory never runs ahead of disk. This O(n)-per-mutation
// shape caps practical history size; acceptable for a memo history.
type Registry interface {
	// Add appends a recording. The caller supplies a unique id; the
	// registry does not check for collisions.
	Add(ctx context.Context, rec internal_recording.Recording) error

	// Delete removes the entry with the given id and is a silent no-op
	// when the id is absent.
	Delete(ctx context.Context, id string) error

	// Update merges the patch into the matching entry, leaving
	// unspecified fields untouched. Silent no-op when the id is absent.
	Update(ctx context.Context, id string, patch internal_recording.Patch) error

	// Get looks up a recording by id. The second return is false when
	// the id is unknown; a missing id is never an error.
	Get(id string) (internal_recording.Recording, bool)

	// All returns the history in insertion (chronological) order.
	All() []internal_recording.Recording
}

type registry struct {
	logger commons.Logger
	store  internal_store.Store

	mu         sync.Mutex
	recordings []internal_recording.Recording
}

// NewRegistry loads the persisted history once and serves it from
// memory from then on.
func NewRegistry(ctx context.Context, logger commons.Logger, store internal_store.Store) (Registry, error) {
	recordings, err := store.Load(ctx)
	if err != nil {
		// Load is fail-soft in every store backend; an error here means
		// the backend itself is broken.
		return nil, fmt.Errorf("failed to load recording history: %w", err)
	}
	logger.Infof("recording registry loaded: %d entries", len(recordings))
	return &registry{
		logger:     logger,
		store:      store,
		recordings: recordings,
	}, nil
}

func (r *registry) Add(ctx context.Context, rec internal_recording.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]internal_recording.Recording, 0, len(r.recordings)+1)
	next = append(next, r.recordings...)
	next = append(next, rec)

	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Errorf("failed to persist recording %s: %v", rec.Id, err)
		return err
	}
	r.recordings = next
	r.logger.Debugf("added recording: id=%s, duration=%.1fs", rec.Id, rec.Duration)
	return nil
}

func (r *registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := make([]internal_recording.Recording, 0, len(r.recordings)-1)
	next = append(next, r.recordings[:idx]...)
	next = append(next, r.recordings[idx+1:]...)

	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Errorf("failed to persist delete of %s: %v", id, err)
		return err
	}
	r.recordings = next
	r.logger.Debugf("deleted recording: id=%s", id)
	return nil
}

func (r *registry) Update(ctx context.Context, id string, patch internal_recording.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := make([]internal_recording.Recording, len(r.recordings))
	copy(next, r.recordings)
	patch.Apply(&next[idx])

	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Errorf("failed to persist update of %s: %v", id, err)
		return err
	}
	r.recordings = next
	r.logger.Debugf("updated recording: id=%s", id)
	return nil
}

func (r *registry) Get(id string) (internal_recording.Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return internal_recording.Recording{}, false
	}
	return r.recordings[idx], true
}

func (r *registry) All() []internal_recording.Recording {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]internal_recording.Recording, len(r.recordings))
	copy(out, r.recordings)
	return out
}

// indexOf must be called with the mutex held.
func (r *registry) indexOf(id string) int {
	for i := range r.recordings {
		if r.recordings[i].Id == id {
			return i
		}
	}
	return -1
}
