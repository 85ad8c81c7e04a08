package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qualivision/internal/coding"
	"qualivision/internal/platform/config"
	"qualivision/internal/platform/logger"
	"qualivision/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	storagePath := config.GetEnv("STORAGE_PATH", "")
	exportDir := config.GetEnv("EXPORT_DIR", "exports")
	transcriberURL := config.GetEnv("TRANSCRIBER_URL", "")
	historyLimit := config.GetEnvInt("HISTORY_LIMIT", coding.DefaultHistoryLimit)

	log := logger.New(logLevel, logFormat)

	var store coding.Store = coding.NewInMemoryStore()
	if storagePath != "" {
		sqliteStore, err := coding.OpenSQLiteStore(storagePath, log)
		if err != nil {
			log.Error("open storage", "path", storagePath, "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	repo, err := coding.NewProjectRepository(store)
	if err != nil {
		log.Error("load repository", "error", err)
		os.Exit(1)
	}

	var transcriber coding.Transcriber
	if transcriberURL != "" {
		transcriber = coding.NewHTTPTranscriber(transcriberURL)
	}

	svc := coding.NewService(repo, transcriber, &coding.DirExporter{Dir: exportDir}, historyLimit)
	met := metrics.New()
	h := coding.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetProjects(repo.Count()) }).ServeHTTP(w, r)
	})
	r.Mount("/", h.Routes())

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"storage", storagePath,
		"export_dir", exportDir,
		"transcriber_configured", transcriberURL != "",
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
