// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recording

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	rec := New("file:///tmp/a.wav", 12.5)

	if rec.Id == "" {
		t.Fatal("expected generated id")
	}
	if rec.Uri != "file:///tmp/a.wav" {
		t.Errorf("uri mismatch: %s", rec.Uri)
	}
	if rec.Duration != 12.5 {
		t.Errorf("duration mismatch: %f", rec.Duration)
	}
	if rec.Timestamp == 0 {
		t.Error("expected creation timestamp")
	}
	if !strings.HasPrefix(rec.Title, "Recording ") {
		t.Errorf("expected timestamp-derived title, got %q", rec.Title)
	}
	if rec.Summary != "" {
		t.Errorf("summary should be absent on creation, got %q", rec.Summary)
	}
}

func TestNewIdsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		rec := New("uri", 1)
		if seen[rec.Id] {
			t.Fatalf("duplicate id %s", rec.Id)
		}
		seen[rec.Id] = true
	}
}

func TestPatchApplyPartial(t *testing.T) {
	rec := Recording{Id: "r1", Uri: "u", Duration: 3, Timestamp: 42, Title: "old"}
	title := "X"
	Patch{Title: &title}.Apply(&rec)

	if rec.Title != "X" {
		t.Errorf("title not updated: %q", rec.Title)
	}
	if rec.Id != "r1" || rec.Uri != "u" || rec.Duration != 3 || rec.Timestamp != 42 {
		t.Errorf("untouched fields changed: %+v", rec)
	}
}

func TestDecodeToleratesUnknownAndMissingFields(t *testing.T) {
	// Histories written by older or newer builds carry no version tag.
	raw := `{"id":"r1","uri":"u","futureField":true}`

	var rec Recording
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rec.Id != "r1" || rec.Uri != "u" {
		t.Errorf("unexpected decode: %+v", rec)
	}
	if rec.Duration != 0 || rec.Summary != "" {
		t.Errorf("missing fields should default: %+v", rec)
	}
}

func TestSummaryOmittedWhenAbsent(t *testing.T) {
	data, err := json.Marshal(Recording{Id: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "summary") {
		t.Errorf("empty summary should be omitted: %s", data)
	}
}
