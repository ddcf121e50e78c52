// Pushtalk - push-to-talk voice capture that types, translates, or runs what you say
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/pushtalk/internal/audio"
	"github.com/GriffinCanCode/pushtalk/internal/command"
	"github.com/GriffinCanCode/pushtalk/internal/config"
	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/grpcclient"
	"github.com/GriffinCanCode/pushtalk/internal/notify"
	"github.com/GriffinCanCode/pushtalk/internal/observe"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/archive"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/assist"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/history"
	"github.com/GriffinCanCode/pushtalk/internal/resilience"
	"github.com/GriffinCanCode/pushtalk/internal/screen"
	"github.com/GriffinCanCode/pushtalk/internal/server"
	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/storage"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
	"github.com/GriffinCanCode/pushtalk/internal/typer"
	"github.com/GriffinCanCode/pushtalk/internal/vad"
	"github.com/GriffinCanCode/pushtalk/internal/wakeword"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

// backend is an audio backend that holds a library context until Terminate.
type backend interface {
	audio.Backend
	Terminate() error
}

func main() {
	check := flag.Bool("check", false, "check the gRPC health endpoint of a running instance and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *check {
		if err := checkHealth(cfg.GRPCAddr); err != nil {
			slog.Error("health check failed", "addr", cfg.GRPCAddr, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("pushtalk exited", "error", err)
		os.Exit(1)
	}
}

func checkHealth(addr string) error {
	c, err := grpcclient.New(addr)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.WaitServing(ctx, server.ServiceName)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	var (
		metrics  *observe.Metrics
		promHTTP http.Handler
	)
	if cfg.MetricsEnabled {
		prov, err := observe.InitProvider("pushtalk", version)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ConfigInvalid, "init metrics")
		}
		defer func() { _ = prov.Shutdown(context.Background()) }()
		metrics, promHTTP = prov.Metrics, prov.Handler()
	}

	// Audio capture
	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = be.Terminate() }()
	capture := audio.NewEngine(be)
	defer func() { _ = capture.Close() }()

	// Transcription providers
	var (
		providers []transcribe.Provider
		gemini    *transcribe.Gemini
	)
	if cfg.GroqAPIKey != "" {
		w, err := transcribe.NewWhisper(cfg.GroqAPIKey,
			transcribe.WithBaseURL(cfg.GroqBaseURL),
			transcribe.WithWhisperModel(cfg.WhisperModel),
			transcribe.WithLanguage(cfg.DefaultLanguage),
			transcribe.WithWhisperTimeout(cfg.TranscribeTimeout),
		)
		if err != nil {
			return err
		}
		providers = append(providers, w)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err = transcribe.NewGemini(ctx, transcribe.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.ProxyEndpoint,
			Timeout: cfg.TranscribeTimeout,
		})
		if err != nil {
			return err
		}
		providers = append(providers, gemini)
	}
	if len(providers) == 0 {
		return apperrors.New(apperrors.ConfigInvalid, "no transcription provider: set GROQ_API_KEY or GEMINI_API_KEY")
	}
	chain := transcribe.NewChain(resilience.TranscribeRetryConfig(), resilience.ProviderConfig(), providers...)
	chain.OnBreakerTransition(func(name string, _, to resilience.State) {
		metrics.RecordBreaker(context.Background(), name, to.String())
	})

	// Desktop adapters
	scr := screen.New()
	typ, err := typer.New(scr)
	if err != nil {
		return err
	}
	notifier := notify.New(cfg.NotificationsEnabled)

	// Orchestration
	hist := history.NewStore(cfg.HistorySize)
	var mopts []orchestrator.Option
	if gemini != nil {
		mopts = append(mopts, orchestrator.WithAssistant(
			assist.New(gemini, typ, assist.DefaultLanguage, assist.DefaultCooldown, cfg.AIEditing)))
		if cfg.WakewordEnabled {
			detector := transcribe.NewPhraseDetector(gemini, cfg.Wakeword, audio.EncodeWAV)
			mopts = append(mopts, orchestrator.WithWakeListener(wakeword.New(be, detector, wakeword.Config{
				Hysteresis: vad.DefaultHysteresisConfig(),
				Metrics:    metrics,
			})))
		}
	} else if cfg.WakewordEnabled {
		slog.Warn("wake word needs a Gemini key; listener disabled", "wakeword", cfg.Wakeword)
	}
	manager := orchestrator.New(notifier, hist, mopts...)

	executor := command.NewExecutor(
		command.WithScreenshots(scr, screenshotDir()),
		command.WithNotifier(manager),
	)
	defer executor.Close()

	var archiver session.Archiver
	if cfg.ArchiveEnabled() {
		s3, err := storage.NewS3(storage.S3Config{
			Bucket:    cfg.ArchiveBucket,
			Endpoint:  cfg.ArchiveEndpoint,
			Region:    cfg.ArchiveRegion,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			Prefix:    cfg.ArchivePrefix,
		})
		if err != nil {
			return err
		}
		batcher := archive.NewBatcher(s3, archive.DefaultMaxSize, archive.DefaultFlushDelay)
		defer batcher.Stop()
		archiver = batcher
		slog.Info("archiving recordings", "bucket", s3.Bucket())
	}

	scfg := session.DefaultConfig()
	scfg.TranscribeTimeout = cfg.TranscribeTimeout
	scfg.CommandsEnabled = cfg.CommandsEnabled
	scfg.Preferences = transcribe.Context{
		AIEditing:      cfg.AIEditing,
		FormatCommands: cfg.FormatCommands,
		Dictionary:     cfg.Dictionary,
		WritingStyle:   cfg.WritingStyle,
		WhisperMode:    cfg.WhisperMode,
	}
	engine, err := session.New(session.Deps{
		Capture:     capture,
		Transcriber: chain,
		Typer:       typ,
		Commands:    executor,
		Apps:        scr,
		Notifier:    manager,
		Archiver:    archiver,
		Metrics:     metrics,
	}, scfg)
	if err != nil {
		return err
	}
	defer engine.Close()
	manager.Attach(engine)

	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	// Control surface
	var sopts []server.Option
	if promHTTP != nil {
		sopts = append(sopts, server.WithMetrics(metrics, promHTTP))
	}
	srv := server.New(engine, hist, manager.Events(), sopts...)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcSrv := server.NewGRPC()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.Unavailable, "listen %s", cfg.GRPCAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.Broadcast(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("pushtalk starting", "http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr, "version", version)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return grpcSrv.Serve(lis)
	})
	grpcSrv.SetServing(true)

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		grpcSrv.SetServing(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
		grpcSrv.Stop()
		return nil
	})

	err = g.Wait()
	slog.Info("shutdown complete")
	return err
}

func openBackend(cfg *config.Config) (backend, error) {
	switch cfg.AudioBackend {
	case "malgo":
		return audio.NewMalgo(cfg.PeriodMs)
	default:
		format, err := audio.ParseFormat(cfg.SampleFormat)
		if err != nil {
			return nil, err
		}
		return audio.NewPortAudio(
			audio.WithFramesPerBuffer(cfg.FramesPerBuffer),
			audio.WithSampleFormat(format),
			audio.WithDevice(cfg.InputDevice, cfg.ExcludedDevices),
		)
	}
}

func screenshotDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Desktop")
	}
	return os.TempDir()
}
