package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/api"
	"github.com/snarg/scribed/internal/config"
	"github.com/snarg/scribed/internal/database"
	"github.com/snarg/scribed/internal/encode"
	"github.com/snarg/scribed/internal/events"
	"github.com/snarg/scribed/internal/pipeline"
	"github.com/snarg/scribed/internal/storage"
	"github.com/snarg/scribed/internal/transcribe"
	"github.com/snarg/scribed/internal/watch"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.WatchDir, "watch-dir", "", "directory to watch for audio files")
	flag.StringVar(&overrides.APIKey, "api-key", "", "transcription service API key")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("scribed starting")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (optional)
	var db *database.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	// Audio archive (optional)
	var archive storage.AudioStore
	if cfg.ArchiveUploads {
		archive, err = storage.New(cfg.S3, cfg.AudioDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize audio archive")
		}
		log.Info().Str("type", archive.Type()).Msg("audio archive enabled")
	}

	// MQTT (optional)
	var publisher *events.Publisher
	if cfg.MQTTBrokerURL != "" {
		publisher, err = events.Connect(events.Options{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			Log:         log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer publisher.Close()
	}

	// Transcription pipeline
	client := transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperAPIKey, cfg.WhisperModel, cfg.WhisperTimeout)

	pipeLog := log.With().Str("component", "pipeline").Logger()
	pipeOpts := pipeline.Options{
		Client:        client,
		SizeThreshold: cfg.SizeThresholdBytes,
		MinChunkBytes: cfg.MinChunkBytes,
		Workers:       cfg.PipelineWorkers,
		Log:           pipeLog,
	}
	if encode.CheckFFmpeg() {
		pipeOpts.Encoder = pipeline.EncoderFunc(encode.Compress)
	} else {
		log.Warn().Msg("ffmpeg not found, oversized files will be chunked without compression")
	}
	if encode.CheckFFprobe() {
		pipeOpts.Prober = pipeline.ProberFunc(encode.Duration)
	}
	pipe := pipeline.New(pipeOpts)

	// Watch directory (optional)
	if cfg.WatchDir != "" {
		watcher := watch.New(pipe, cfg.WatchDir, cfg.Language, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.WatchDir).Msg("failed to start file watcher")
		}
		defer watcher.Stop()
	}

	// HTTP server
	jobs := api.NewJobStore(0, log)
	go jobs.Sweep(ctx)

	handler := api.NewTranscriptionsHandler(api.TranscriptionsOptions{
		Runner:    pipe,
		Jobs:      jobs,
		DB:        db,
		Archive:   archive,
		Publisher: publisher,
	}, log)
	health := api.NewHealthHandler(db, publisher, version, startTime)

	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.ServerOptions{
		Transcriptions: handler,
		Health:         health,
	}, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("scribed stopped")
}
