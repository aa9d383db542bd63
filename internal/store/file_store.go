// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	internal_recording "github.com/rapidaai/voicememo/internal/recording"
	"github.com/rapidaai/voicememo/pkg/commons"
)

type fileStore struct {
	logger commons.Logger
	path   string
}

// NewFileStore persists the history as a single JSON blob at path.
// Writes go through an atomic rename so a crash mid-save never leaves a
// truncated history behind.
func NewFileStore(logger commons.Logger, path string) Store {
	return &fileStore{
		logger: logger,
		path:   path,
	}
}

func (s *fileStore) Load(ctx context.Context) ([]internal_recording.Recording, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debugf("no recording history at %s, starting empty", s.path)
			return []internal_recording.Recording{}, nil
		}
		s.logger.Errorf("failed to read recording history %s: %v", s.path, err)
		return []internal_recording.Recording{}, nil
	}

	var recordings []internal_recording.Recording
	if err := json.Unmarshal(data, &recordings); err != nil {
		// Corrupt history degrades to "no history", it never blocks startup.
		s.logger.Errorf("corrupt recording history %s: %v", s.path, err)
		return []internal_recording.Recording{}, nil
	}
	if recordings == nil {
		recordings = []internal_recording.Recording{}
	}
	return recordings, nil
}

func (s *fileStore) Save(ctx context.Context, recordings []internal_recording.Recording) error {
	data, err := json.Marshal(recordings)
	if err != nil {
		return fmt.Errorf("failed to serialize recording history: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recording history %s: %w", s.path, err)
	}
	s.logger.Debugf("saved recording history: %d entries", len(recordings))
	return nil
}
