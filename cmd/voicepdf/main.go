package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"

	"voicepdf/internal/cleanup"
	"voicepdf/internal/config"
	"voicepdf/internal/dispatch"
	"voicepdf/internal/engine"
	"voicepdf/internal/filestore"
	"voicepdf/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("service terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load()
	if err != nil {
		return err
	}

	blob, err := newBlobStorage(ctx, settings)
	if err != nil {
		return err
	}

	eng := engine.NewPDFEngine()

	storeOpts := []filestore.Option{}
	if settings.FirestoreCollection != "" {
		index, err := filestore.NewFirestoreIndex(ctx, settings.ProjectID, settings.FirestoreCollection)
		if err != nil {
			return err
		}
		defer index.Close()
		storeOpts = append(storeOpts, filestore.WithIndex(index))
		slog.Info("firestore index enabled", "collection", settings.FirestoreCollection)
	}

	store := filestore.New(filestore.Config{
		MaxUploadBytes:  settings.MaxUploadBytes,
		SoftPageLimit:   settings.SoftPageLimit,
		HardPageLimit:   settings.HardPageLimit,
		SourceRetention: settings.SourceRetention,
		ResultRetention: settings.ResultRetention,
	}, blob, eng, storeOpts...)

	dispatcher := dispatch.New(store, eng, slog.Default())

	scheduler := cleanup.New(store, settings.CleanupInterval, slog.Default())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(store, dispatcher, scheduler, settings, slog.Default())
	httpServer := &http.Server{
		Addr:         settings.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("voicepdf service listening",
		"addr", settings.Addr,
		"storageBackend", settings.StorageBackend,
		"cleanupInterval", settings.CleanupInterval.String())

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newBlobStorage(ctx context.Context, settings *config.Settings) (filestore.BlobStorage, error) {
	switch settings.StorageBackend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return filestore.NewGCSStorage(client, settings.GCSBucket)
	default:
		local, err := filestore.NewLocalStorage(settings.DataDir)
		if err != nil {
			return nil, err
		}
		slog.Info("local storage initialized", "root", local.Root())
		return local, nil
	}
}
