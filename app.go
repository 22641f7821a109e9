package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/httpapi"
	"github.com/lexandro/localsearch-mcp/ignore"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/lexandro/localsearch-mcp/scanner"
	"github.com/lexandro/localsearch-mcp/search"
	"github.com/lexandro/localsearch-mcp/server"
	"github.com/lexandro/localsearch-mcp/tools"
)

// app is the wired set of components for one workspace.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *index.Store
	indexer   *indexer.Indexer
	engine    *search.Engine
	startTime time.Time
}

// openApp opens the store and builds the scanner, indexer and engine.
// Nothing is scanned until the caller starts the indexer or runs a pass.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := index.Open(ctx, index.Options{
		Path:            cfg.ResolvedDBPath(),
		DisableFullText: cfg.DisableFTS,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	matcher := ignore.NewMatcher(cfg.MatcherOptions())
	fileScanner := scanner.New(cfg.WorkspaceRoot, matcher)
	ix := indexer.New(fileScanner, store, indexer.Options{
		Interval:          cfg.ScanInterval(),
		BatchSize:         cfg.BatchSize,
		MaxFileBytes:      cfg.MaxFileBytes,
		Workers:           cfg.Workers,
		RescanMinInterval: cfg.RescanMinInterval(),
		Logger:            logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		indexer:   ix,
		engine:    search.NewEngine(store, logger),
		startTime: time.Now(),
	}, nil
}

func (a *app) Close() error {
	a.indexer.Stop()
	return a.store.Close()
}

// startIndexer runs the indexer in the background unless another process
// owns the index, in which case this process only serves queries.
func (a *app) startIndexer(ctx context.Context) {
	if a.store.ReadOnly() {
		a.logger.Warn("index is owned by another process, serving read-only", "db", a.store.Path())
		return
	}
	go func() {
		if err := a.indexer.Start(ctx); err != nil {
			a.logger.Error("indexer failed to start", "error", err)
		}
	}()
}

// requestRescan is the rescan hook exposed to MCP and HTTP callers.
func (a *app) requestRescan() bool {
	if a.store.ReadOnly() {
		return false
	}
	return a.indexer.RequestRescan()
}

func (a *app) handlers() server.Handlers {
	return server.Handlers{
		Search:         &tools.SearchHandler{Engine: a.engine, Logger: a.logger},
		Files:          &tools.FilesHandler{Store: a.store, Logger: a.logger},
		RepoCandidates: &tools.RepoCandidatesHandler{Engine: a.engine, Logger: a.logger},
		Status: &tools.StatusHandler{
			Store:     a.store,
			Status:    a.indexer.Status(),
			Config:    a.cfg,
			StartTime: a.startTime,
			Logger:    a.logger,
		},
		Rescan: &tools.RescanHandler{DoRescan: a.requestRescan, Logger: a.logger},
		Read:   &tools.ReadHandler{Store: a.store, Logger: a.logger},
	}
}

func (a *app) httpAPI() *httpapi.API {
	return &httpapi.API{
		Engine:    a.engine,
		Store:     a.store,
		Status:    a.indexer.Status(),
		Config:    a.cfg,
		StartTime: a.startTime,
		DoRescan:  a.requestRescan,
		Logger:    a.logger,
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
