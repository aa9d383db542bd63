// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/voicememo/pkg/commons"
	"github.com/rapidaai/voicememo/pkg/utils"
)

const (
	uploadFieldName   = "file"
	uploadFileName    = "recording.m4a"
	uploadContentType = "audio/x-m4a"
)

// ErrAudioMissing means the referenced audio payload does not exist on
// disk. A precondition failure, not a network failure.
var ErrAudioMissing = errors.New("audio file missing")

// ErrMalformedResponse means the endpoint reported success but the body
// did not carry both expected fields.
var ErrMalformedResponse = errors.New("malformed analysis response")

// StatusError carries a non-2xx status and the response body verbatim.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis endpoint returned %d: %s", e.Code, e.Body)
}

// Result is the analysis endpoint's response contract.
type Result struct {
	Transcription string `json:"transcription"`
	Analysis      string `json:"analysis"`
}

// Client uploads one captured audio file per call and parses the
// transcription+coaching response. Stateless and reentrant; overlap
// guarding for one session belongs to the caller.
type Client interface {
	Send(ctx context.Context, uri string, title string) (*Result, error)
}

type restyClient struct {
	logger commons.Logger
	http   *resty.Client
	path   string
}

// NewClient builds the upload client for a configured endpoint.
// One attempt per call: no retry, no backoff.
func NewClient(logger commons.Logger, baseURL, path string, timeout time.Duration) Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &restyClient{
		logger: logger,
		http:   http,
		path:   path,
	}
}

func (c *restyClient) Send(ctx context.Context, uri string, title string) (*Result, error) {
	if _, err := os.Stat(uri); err != nil {
		c.logger.Errorf("analysis upload precondition failed: %s: %v", uri, err)
		return nil, fmt.Errorf("%w: %s", ErrAudioMissing, uri)
	}

	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio %s: %w", uri, err)
	}
	defer f.Close()

	req := c.http.R().
		SetContext(ctx).
		SetMultipartField(uploadFieldName, uploadFileName, uploadContentType, f)
	if !utils.IsEmpty(title) {
		req.SetFormData(map[string]string{"title": title})
	}

	resp, err := req.Post(c.path)
	if err != nil {
		c.logger.Errorf("analysis upload failed: %v", err)
		return nil, fmt.Errorf("analysis upload failed: %w", err)
	}

	if resp.IsError() {
		c.logger.Errorf("analysis endpoint error: status=%d, body=%s",
			resp.StatusCode(), resp.String())
		return nil, &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	var result Result
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		c.logger.Errorf("analysis response not JSON: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	// A success response must carry both fields.
	if utils.IsEmpty(result.Transcription) || utils.IsEmpty(result.Analysis) {
		c.logger.Errorf("analysis response missing fields: %s", resp.String())
		return nil, fmt.Errorf("%w: missing transcription or analysis", ErrMalformedResponse)
	}

	c.logger.Debugf("analysis completed: transcription=%d chars, analysis=%d chars",
		len(result.Transcription), len(result.Analysis))
	return &result, nil
}
