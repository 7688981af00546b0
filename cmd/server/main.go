// Package main is the entry point for the codespace server.
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/CageChen/codespace/internal/config"
	"github.com/CageChen/codespace/internal/handler"
	"github.com/CageChen/codespace/internal/logging"
	"github.com/CageChen/codespace/internal/metrics"
	"github.com/CageChen/codespace/internal/mount"
	"github.com/CageChen/codespace/internal/render"
	"github.com/CageChen/codespace/internal/shell"
	"github.com/CageChen/codespace/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed web/*
var webFS embed.FS

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "codespace: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("codespace starting",
		zap.String("config", cfg.GetConfigFilePath()),
		zap.Int("folders", len(cfg.Folders)))
	for i, f := range cfg.Folders {
		log.Info("folder configured",
			zap.Int("index", i),
			zap.String("alias", f.Alias),
			zap.String("path", f.Path),
			zap.String("ref", f.GitRef))
	}

	m := metrics.New()

	// Workspace
	s := store.New()
	seed := store.DefaultTree()
	if cfg.Seed != "" {
		if seed, err = store.LoadSeedFile(cfg.Seed); err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
	}
	if err := s.Seed(seed); err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}
	sel := handler.NewSelection(cfg.CurrentFile)

	changes := handler.NewWSHandler(m, log)
	s.Subscribe(func(e store.Event) {
		changes.OnStoreEvent(e)
		m.SetStoreNodes(s.Len())
	})
	sel.OnChange(changes.OnSelection)

	importer := mount.NewImporter(s, cfg, log)
	stats := importer.ImportAll()
	m.SetStoreNodes(s.Len())
	log.Info("workspace ready", zap.Int("nodes", s.Len()), zap.Int("mountedFiles", stats.Files))

	// Setup file watcher if enabled
	var watcher handler.FolderWatcher
	if cfg.Watch {
		w, err := mount.NewWatcher(importer, sel)
		if err != nil {
			log.Warn("failed to create file watcher", zap.Error(err))
		} else {
			for _, f := range cfg.Folders {
				if err := w.Add(f); err != nil {
					log.Warn("cannot watch folder", zap.String("path", f.Path), zap.Error(err))
				}
			}
			w.Start()
			defer func() { _ = w.Stop() }()
			watcher = w
			log.Info("file watcher enabled")
		}
	}

	interp := shell.New(s,
		shell.WithSelection(sel),
		shell.WithUser(cfg.Terminal.User),
		shell.WithLogger(log.Named("shell")),
		shell.WithObserver(m.RecordCommand))

	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		return fmt.Errorf("load web assets: %w", err)
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.Handlers{
		Tree:     handler.NewTreeHandler(s, sel, m, log),
		Files:    handler.NewFileHandler(s, sel, render.New(cfg.IsMarkdownFile), m, log),
		Mounts:   handler.NewMountHandler(cfg, importer, watcher, sel, log),
		Changes:  changes,
		Terminal: handler.NewTerminalHandler(interp, cfg.Terminal, m, log.Named("terminal")),
		Metrics:  m,
		Static:   http.FileServer(http.FS(webContent)),
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	url := "http://" + cfg.Addr()
	log.Info("server listening", zap.String("url", url))
	if cfg.Open {
		go openBrowser(url)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
