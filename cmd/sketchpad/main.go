// Command sketchpad opens the composite sketch editor window.
//
// Configuration comes from sketchpad.cfg.json in the config directory and
// from command-line flags, which take precedence:
//
//	sketchpad --config-dir ~/.config/sketchpad --sketch 65f0c2e1a4b7 --log-level debug
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eyedentify/sketchpad"
	"github.com/eyedentify/sketchpad/draftstore"
	"github.com/eyedentify/sketchpad/internal/config"
	"github.com/eyedentify/sketchpad/internal/logging"
	"github.com/eyedentify/sketchpad/remote"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const closeTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sketchpad:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.CommandLine
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)
	sketchID := fs.String("sketch", "", "sketch id to open; empty restores the unsaved draft")
	scriptPath := fs.String("script", "", "YAML replay script to run after loading")
	showFPS := fs.Bool("show-fps", false, "show the frame rate in the status line")
	debug := fs.Bool("debug", false, "log per-frame render statistics")
	if err := config.RegisterFlags(fs); err != nil {
		return err
	}
	pflag.Parse()

	if err := config.Load(*configDir); err != nil {
		return err
	}

	log, closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	api := config.GetAPI()
	client := remote.New(api.BaseURL, remote.Options{Token: api.Token, Timeout: api.Timeout})

	dc := config.GetDrafts()
	drafts, err := draftstore.Open(draftstore.Config{
		Driver: dc.Driver,
		Path:   dc.Path,
		Postgres: draftstore.PostgresConfig{
			Host:     dc.DB.Host,
			Port:     dc.DB.Port,
			Username: dc.DB.Username,
			Password: dc.DB.Password,
			Database: dc.DB.Database,
		},
	}, log.With().Str("component", "drafts").Logger())
	if err != nil {
		return err
	}
	defer drafts.Close()

	ec := config.GetEditor()
	catalog := sketchpad.NewCatalog(remote.NewAssetClient(client), ec.AssetCacheTTL)

	editor := sketchpad.NewEditor(sketchpad.Options{
		Width:         ec.Width,
		Height:        ec.Height,
		Records:       remote.NewSketchClient(client),
		Drafts:        drafts,
		Images:        remote.NewImageClient(client),
		Catalog:       catalog,
		Probe:         client.Healthcheck,
		ProbeInterval: ec.ProbeInterval,
		Log:           &log,
		Persist: sketchpad.PersistConfig{
			DraftDebounce:    ec.DraftDebounce,
			AutosaveInterval: ec.AutosaveInterval,
		},
		HistoryCapacity: ec.HistoryCapacity,
		GridSize:        ec.GridSize,
		Quality:         sketchpad.ExportQuality(ec.Quality),
		ExportDir:       ec.ExportDir,
		ScreenshotDir:   ec.ScreenshotDir,
	})
	editor.SetDebug(*debug)

	if *scriptPath != "" {
		data, err := os.ReadFile(*scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script, err := sketchpad.LoadScript(data)
		if err != nil {
			return err
		}
		editor.SetScript(script)
	}

	log.Info().
		Str("api", client.BaseURL()).
		Bool("localDrafts", drafts.Local()).
		Str("sketch", *sketchID).
		Msg("Starting editor")
	editor.Load(*sketchID)

	runErr := sketchpad.Run(editor, sketchpad.RunConfig{
		Title:   sketchpad.SoftwareName,
		Width:   ec.Width,
		Height:  ec.Height,
		ShowFPS: *showFPS,
	})

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := editor.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush draft on exit")
	}
	if script := editor.Script(); script != nil {
		for _, err := range script.Errors() {
			log.Warn().Err(err).Msg("Script step failed")
		}
	}
	return runErr
}

// setupLogging builds the process logger, adding a session log file when a
// logs directory is configured.
func setupLogging() (zerolog.Logger, func(), error) {
	level := config.GetString("logLevel")
	dir := config.GetString("logsDir")
	if dir == "" {
		return logging.New(level, os.Stdout, nil), func() {}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := logging.LogFilePath(dir, filepath.Base(os.Args[0]), time.Now())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.New(level, os.Stdout, f), func() { _ = f.Close() }, nil
}
