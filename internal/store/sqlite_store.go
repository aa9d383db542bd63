// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gorm_logger "gorm.io/gorm/logger"

	internal_recording "github.com/rapidaai/voicememo/internal/recording"
	"github.com/rapidaai/voicememo/pkg/commons"
)

// historyKey is the single storage key the whole collection lives under.
const historyKey = "history"

// MemoBlob is the one-row keyed table holding the serialized collection.
type MemoBlob struct {
	Key     string `gorm:"column:key;type:varchar(50);primaryKey"`
	Payload string `gorm:"column:payload;type:text;not null"`
}

type sqliteStore struct {
	logger commons.Logger
	db     *gorm.DB
}

// NewSqliteStore persists the history in a sqlite database at path,
// serialized under one fixed key like the file backend.
func NewSqliteStore(logger commons.Logger, path string) (Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open recording store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&MemoBlob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate recording store: %w", err)
	}
	return &sqliteStore{
		logger: logger,
		db:     db,
	}, nil
}

func (s *sqliteStore) Load(ctx context.Context) ([]internal_recording.Recording, error) {
	var blob MemoBlob
	err := s.db.WithContext(ctx).Where("key = ?", historyKey).First(&blob).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Errorf("failed to read recording history: %v", err)
		}
		return []internal_recording.Recording{}, nil
	}

	var recordings []internal_recording.Recording
	if err := json.Unmarshal([]byte(blob.Payload), &recordings); err != nil {
		s.logger.Errorf("corrupt recording history payload: %v", err)
		return []internal_recording.Recording{}, nil
	}
	if recordings == nil {
		recordings = []internal_recording.Recording{}
	}
	return recordings, nil
}

func (s *sqliteStore) Save(ctx context.Context, recordings []internal_recording.Recording) error {
	data, err := json.Marshal(recordings)
	if err != nil {
		return fmt.Errorf("failed to serialize recording history: %w", err)
	}
	blob := MemoBlob{Key: historyKey, Payload: string(data)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&blob).Error
	if err != nil {
		return fmt.Errorf("failed to write recording history: %w", err)
	}
	s.logger.Debugf("saved recording history: %d entries", len(recordings))
	return nil
}
