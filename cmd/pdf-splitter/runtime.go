package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Epistemic-Technology/pdf-splitter/internal/acquire"
	"github.com/Epistemic-Technology/pdf-splitter/internal/config"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
)

// runtime holds the components every command shares.
type runtime struct {
	cfg      *config.Config
	log      logger.Logger
	store    *storage.FileStore
	janitor  *storage.Janitor
	splitter *operations.Splitter
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	log, err := logger.NewLogger(logger.LogConfig{
		Output:   cfg.Log.Output,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
		Format:   cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.NewFileStore(cfg.Storage.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storing split files in %s (max age %v)", store.Root(), cfg.Storage.MaxFileAge)

	janitor := storage.NewJanitor(store, cfg.Storage.MaxFileAge, cfg.Storage.SweepInterval, log)

	acquirer := acquire.New(acquire.Options{
		Timeout:         cfg.Fetch.Timeout,
		MaxBytes:        cfg.Fetch.MaxBytes,
		UserAgent:       cfg.Fetch.UserAgent,
		RatePerSecond:   cfg.Fetch.RatePerSecond,
		Burst:           cfg.Fetch.Burst,
		ZoteroAPIKey:    cfg.Zotero.APIKey,
		ZoteroLibraryID: cfg.Zotero.LibraryID,
	}, log)

	return &runtime{
		cfg:      cfg,
		log:      log,
		store:    store,
		janitor:  janitor,
		splitter: operations.NewSplitter(acquirer, store, janitor, log),
	}, nil
}

func (r *runtime) Close() {
	r.janitor.Stop()
	r.log.Sync()
}
