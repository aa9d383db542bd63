// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicememo/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-analysis"),
		commons.Level("debug"),
	)
	require.NoError(t, err)
	return logger
}

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memo.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake-audio-payload"), 0o644))
	return path
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(newTestLogger(t), server.URL, "/analyze-speech", 5*time.Second)
}

func TestSendSuccess(t *testing.T) {
	var gotFilename, gotContentType string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotContentType = header.Header.Get("Content-Type")

		payload, _ := io.ReadAll(file)
		assert.Equal(t, "RIFFfake-audio-payload", string(payload))
		assert.Equal(t, "morning memo", r.FormValue("title"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"transcription":"T","analysis":"A"}`))
	})

	result, err := client.Send(context.Background(), audioFixture(t), "morning memo")
	require.NoError(t, err)
	assert.Equal(t, "T", result.Transcription)
	assert.Equal(t, "A", result.Analysis)
	assert.Equal(t, "recording.m4a", gotFilename)
	assert.Equal(t, "audio/x-m4a", gotContentType)
}

func TestSendWithoutTitleOmitsField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("title"))
		w.Write([]byte(`{"transcription":"T","analysis":"A"}`))
	})

	_, err := client.Send(context.Background(), audioFixture(t), "")
	require.NoError(t, err)
}

func TestSendServerFailureCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.Send(context.Background(), audioFixture(t), "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 500, statusErr.Code)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestSendEmptyBodyIsMalformedDespiteSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	_, err := client.Send(context.Background(), audioFixture(t), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendPartialBodyIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transcription":"T"}`))
	})

	_, err := client.Send(context.Background(), audioFixture(t), "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendNonJSONBodyIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	})

	_, err := client.Send(context.Background(), audioFixture(t), "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendMissingFileIsPreconditionFailure(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	_, err := client.Send(context.Background(), "/nope/missing.wav", "")
	assert.ErrorIs(t, err, ErrAudioMissing)
	assert.Zero(t, requests, "missing file must not reach the network")
}
