package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/felixgeelhaar/langhelper/internal/api"
	"github.com/felixgeelhaar/langhelper/internal/auth"
	"github.com/felixgeelhaar/langhelper/internal/config"
	"github.com/felixgeelhaar/langhelper/internal/engine"
	"github.com/felixgeelhaar/langhelper/internal/exercise"
	"github.com/felixgeelhaar/langhelper/internal/practice"
	"github.com/felixgeelhaar/langhelper/internal/saver"
	"github.com/felixgeelhaar/langhelper/internal/storage/local"
	"github.com/felixgeelhaar/langhelper/internal/storage/sqlite"
)

// app holds the components shared by the commands
type app struct {
	dir     string
	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
	tokens  *auth.FileStore
	client  *api.Client
}

func newApp() (*app, error) {
	dir, err := config.EnsureDir()
	if err != nil {
		return nil, fmt.Errorf("ensure langhelper dir: %w", err)
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, logFile, err := setupLogging(cfg.LogFile, parseLogLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	tokens, err := auth.NewFileStore(dir)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open token store: %w", err)
	}

	client := api.NewClient(api.Config{
		BaseURL:           cfg.API.BaseURL,
		PublicBaseURL:     cfg.API.PublicBaseURL,
		Endpoints:         cfg.API.Endpoints,
		Tokens:            tokens,
		RequestTimeout:    cfg.API.RequestTimeout(),
		GenerationTimeout: cfg.API.GenerationTimeout(),
		Logger:            logger,
		Resilience:        api.DefaultResilienceConfig(),
	})

	return &app{
		dir:     dir,
		cfg:     cfg,
		logger:  logger,
		logFile: logFile,
		tokens:  tokens,
		client:  client,
	}, nil
}

func (a *app) Close() {
	if err := a.client.Close(); err != nil {
		a.logger.Warn("close client", "error", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func (a *app) newSaver() *saver.Saver {
	eps := a.client.Endpoints()
	return saver.New(a.client, saver.Config{
		PrimaryURL:  a.client.URL(eps.Save),
		FallbackURL: a.client.URL(eps.Upload),
		Logger:      a.logger,
		Defaults: &saver.SaveOptions{
			UseFallback: a.cfg.Saver.UseFallback,
			LogErrors:   a.cfg.Saver.LogErrors,
		},
	})
}

func (a *app) newOutbox() (*saver.Outbox, error) {
	store, err := local.NewStore(a.dir)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	return saver.NewOutbox(store, a.logger), nil
}

func (a *app) openHistoryCache() (*sqlite.HistoryStore, func(), error) {
	db, err := sqlite.OpenCache(a.cfg.CachePath, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open history cache: %w", err)
	}
	return sqlite.NewHistoryStore(db), func() { db.Close() }, nil
}

func (a *app) openResults() (*practice.ResultStore, error) {
	results, err := practice.NewResultStore(a.dir)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return results, nil
}

func (a *app) newPractice() (*practice.Service, error) {
	results, err := a.openResults()
	if err != nil {
		return nil, err
	}
	return practice.NewService(
		practice.WithLogger(a.logger),
		practice.WithResultStore(results),
		practice.WithEngineOptions(engine.WithRevertDelay(a.cfg.Engine.RevertDelay())),
	), nil
}

func (a *app) exercises() *exercise.Loader {
	return exercise.NewLoader(filepath.Join(a.dir, "exercises"))
}

// loadExercises reads path, or every exercise file in it when it is a
// directory.
func (a *app) loadExercises(path string) ([]exercise.Entry, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		entry, err := a.exercises().Load(path)
		if err != nil {
			return nil, err
		}
		return []exercise.Entry{*entry}, nil
	}

	entries, errs := exercise.LoadAll(path)
	for _, err := range errs {
		a.logger.Warn("skipping exercise file", "error", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no exercise files in %s", path)
	}
	return entries, nil
}

// cacheUserID keys the history cache by the token subject so listing works
// offline. Tokens without a numeric subject share key 0.
func (a *app) cacheUserID() int64 {
	info, err := auth.Inspect(a.tokens.Token())
	if err != nil {
		return 0
	}
	id, err := strconv.ParseInt(info.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func configPath(dir string) string {
	return filepath.Join(dir, "config.yaml")
}
