package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jhalves/rss-sync/app/api"
	"github.com/jhalves/rss-sync/app/cfg"
	"github.com/jhalves/rss-sync/app/database"
	"github.com/jhalves/rss-sync/app/feed"
	"github.com/jhalves/rss-sync/app/media"
	"github.com/jhalves/rss-sync/app/sync"
	"github.com/jhalves/rss-sync/app/tasks"
	"github.com/jhalves/rss-sync/app/tenant"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RSS Sync server", "version", appCfg.Version)

	if err := os.MkdirAll(appCfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	tenantCache := tenant.NewCache(appCfg.TenantsDir)
	if err := tenantCache.Run(); err != nil {
		log.Fatalf("Failed to load tenant settings: %v", err)
	}
	slog.Info("Tenant settings loaded", "count", tenantCache.GetConfigCount())

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.HTTPTimeout) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}

	feedClient := feed.NewClient(httpClient, appCfg.UserAgent,
		time.Duration(appCfg.FetchCacheTTL)*time.Second)
	extractor := feed.NewContentExtractor(httpClient, appCfg.UserAgent)

	uploadsRoot := filepath.Join(appCfg.DataDir, "uploads")

	// One content store and sync pipeline per tenant.
	runners := make(map[string]tasks.SyncRunner)
	var databases []*database.DB
	for tenantID, tenantConfig := range tenantCache.GetConfigs() {
		db, err := database.NewConnection(filepath.Join(appCfg.DataDir, tenantID+".db"))
		if err != nil {
			log.Fatalf("Failed to open content store for tenant %s: %v", tenantID, err)
		}
		databases = append(databases, db)

		postRepo := database.NewPostRepository(db)
		attachmentRepo := database.NewAttachmentRepository(db)
		termRepo := database.NewTermRepository(db)

		uploads := media.NewUploadStore(
			filepath.Join(uploadsRoot, tenantID),
			fmt.Sprintf("%s/uploads/%s", appCfg.BaseUrl, tenantID))
		localizer := media.NewLocalizer(attachmentRepo, uploads, httpClient,
			appCfg.UserAgent, tenantConfig.MaxAttachmentSize)

		runners[tenantID] = sync.NewOrchestrator(feedClient, postRepo, termRepo, localizer, extractor)

		slog.Info("Tenant initialized", "tenant", tenantID, "enabled", tenantConfig.Enabled,
			"sources", len(tenantConfig.SourceURLs()), "image_storage", tenantConfig.ImageStorage)
	}
	defer func() {
		for _, db := range databases {
			db.Close()
		}
	}()

	scheduler := tasks.NewScheduler(tenantCache, runners)
	scheduler.Start()
	defer scheduler.Stop()

	// Activation fan-out: every enabled tenant gets its schedule installed,
	// which also enqueues an immediate first run; disabled tenants get any
	// stale schedule cleared.
	for tenantID, tenantConfig := range tenantCache.GetConfigs() {
		if tenantConfig.Enabled {
			if err := scheduler.InstallSchedule(tenantID); err != nil {
				slog.Warn("Failed to install schedule", "tenant", tenantID, "error", err)
			}
		} else {
			scheduler.ClearSchedule(tenantID)
		}
	}

	apiHandler := api.NewHandler(tenantCache, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey, uploadsRoot)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("RSS Sync server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("RSS Sync server shutdown complete")
}
