// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rapidaai/voicememo/config"
	internal_analysis "github.com/rapidaai/voicememo/internal/analysis"
	internal_capture "github.com/rapidaai/voicememo/internal/capture"
	internal_playback "github.com/rapidaai/voicememo/internal/playback"
	internal_registry "github.com/rapidaai/voicememo/internal/registry"
	internal_session "github.com/rapidaai/voicememo/internal/session"
	internal_store "github.com/rapidaai/voicememo/internal/store"
	"github.com/rapidaai/voicememo/pkg/commons"
)

const usage = `voicememo <command>

commands:
  record                capture a memo from stdin PCM (LINEAR16 16kHz mono) until EOF
  list                  show recording history
  play <id>             play a recording to the end
  rename <id> <title>   set a recording title
  delete <id>           remove a recording
  analyze [<id>]        upload a recording for transcription + coaching feedback
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	vConfig, err := config.InitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store internal_store.Store
	switch cfg.StorageBackend {
	case "sqlite":
		store, err = internal_store.NewSqliteStore(logger, cfg.StoragePath)
		if err != nil {
			logger.Fatalf("failed to open sqlite store: %v", err)
		}
	default:
		store = internal_store.NewFileStore(logger, cfg.StoragePath)
	}

	registry, err := internal_registry.NewRegistry(ctx, logger, store)
	if err != nil {
		logger.Fatalf("failed to initialize registry: %v", err)
	}

	analyzer := internal_analysis.NewClient(
		logger,
		cfg.AnalysisHost,
		cfg.AnalysisPath,
		time.Duration(cfg.AnalysisTimeout)*time.Second,
	)
	controller := internal_session.NewController(
		logger,
		registry,
		internal_capture.WavDeviceFactory(logger, cfg.AudioDir),
		internal_capture.GrantAlways,
		internal_playback.NewWavOpener(logger),
		analyzer,
	)

	if err := run(ctx, controller, registry, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	controller *internal_session.Controller,
	registry internal_registry.Registry,
	command string,
	args []string,
) error {
	switch command {
	case "record":
		return record(ctx, controller)
	case "list":
		return list(registry)
	case "play":
		if len(args) < 1 {
			return fmt.Errorf("usage: voicememo play <id>")
		}
		return play(ctx, controller, registry, args[0])
	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("usage: voicememo rename <id> <title>")
		}
		return controller.Rename(ctx, args[0], args[1])
	case "delete":
		if len(args) < 1 {
			return fmt.Errorf("usage: voicememo delete <id>")
		}
		return controller.DeleteRecording(ctx, args[0])
	case "analyze":
		return analyze(ctx, controller, registry, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// record captures raw PCM from stdin onto the session timeline until
// EOF or interrupt, then persists the rendered memo.
func record(ctx context.Context, controller *internal_session.Controller) error {
	if err := controller.StartCapture(ctx); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	frame := make([]byte, 3200) // 100ms of LINEAR16 16kHz mono
	for ctx.Err() == nil {
		n, err := reader.Read(frame)
		if n > 0 {
			if werr := controller.Write(frame[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read audio input: %w", err)
		}
	}

	result, err := controller.StopCapture(context.Background())
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	rec, err := controller.SaveRecording(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("saved %s (%.1fs) as %q\n", rec.Id, rec.Duration, rec.Title)
	return nil
}

func list(registry internal_registry.Registry) error {
	recordings := registry.All()
	if len(recordings) == 0 {
		fmt.Println("no recordings yet")
		return nil
	}
	for _, rec := range recordings {
		created := time.UnixMilli(rec.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s  %6.1fs  %s\n", rec.Id, created, rec.Duration, rec.Title)
		if rec.Summary != "" {
			fmt.Printf("    %s\n", rec.Summary)
		}
	}
	return nil
}

func play(
	ctx context.Context,
	controller *internal_session.Controller,
	registry internal_registry.Registry,
	id string,
) error {
	rec, ok := registry.Get(id)
	if !ok {
		return fmt.Errorf("unknown recording %q", id)
	}
	if err := controller.TogglePlayback(ctx, rec.Uri); err != nil {
		return err
	}
	// Wait for the natural end-of-audio transition.
	for controller.State() == internal_session.StatePlaying {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

func analyze(
	ctx context.Context,
	controller *internal_session.Controller,
	registry internal_registry.Registry,
	args []string,
) error {
	var uri, title string
	if len(args) > 0 {
		rec, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown recording %q", args[0])
		}
		// Navigation-style preselection of an existing recording.
		controller.Preselect(rec.Id, rec.Title, rec.Uri)
	} else {
		recordings := registry.All()
		if len(recordings) == 0 {
			return fmt.Errorf("no recordings to analyze")
		}
		latest := recordings[len(recordings)-1]
		uri, title = latest.Uri, latest.Title
	}

	result, err := controller.Upload(ctx, uri, title)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("an analysis is already in progress")
	}
	fmt.Printf("transcription:\n%s\n\nfeedback:\n%s\n", result.Transcription, result.Analysis)
	return nil
}
