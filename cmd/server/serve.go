package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/stwalsh4118/sitetrack/internal/database"
	"github.com/stwalsh4118/sitetrack/internal/database/migrations"
	"github.com/stwalsh4118/sitetrack/internal/handlers"
	"github.com/stwalsh4118/sitetrack/internal/repository"
	"github.com/stwalsh4118/sitetrack/internal/services"
	"github.com/stwalsh4118/sitetrack/internal/session"
	"github.com/stwalsh4118/sitetrack/internal/storage"
	"github.com/stwalsh4118/sitetrack/internal/viewer"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, log, err := bootstrap()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log.Info("Starting SiteTrack API", map[string]interface{}{
		"version":     version,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Backend,
	})

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	schemaDB := migrations.OpenDB(db.Pool)
	schemaErr := migrations.CheckStatus(schemaDB)
	schemaDB.Close()
	if schemaErr != nil {
		log.Fatal("Database schema is not current, run `server migrate up`", schemaErr, nil)
	}

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize object storage", err, map[string]interface{}{
			"backend": cfg.Storage.Backend,
			"bucket":  cfg.Storage.Bucket,
		})
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	keys := storage.NewKeys()

	floorPlanRepo := repository.NewFloorPlanRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := services.NewAuditService(auditRepo, cfg.Audit.Timeout, log)
	defer auditService.Close()
	floorPlanService := services.NewFloorPlanService(floorPlanRepo, store, keys, auditService, log)
	targetService := services.NewTargetService(targetRepo, auditService, log)
	visitService := services.NewVisitService(visitRepo, targetRepo, store, keys, auditService, log)

	registry := session.NewRegistry(session.Deps{
		Plans:   floorPlanService,
		Targets: targetService,
		Visits:  visitService,
		Viewer:  viewer.Options{SyncInterval: cfg.Viewer.SyncInterval},
	}, cfg.Session, log)
	if err := registry.Start(); err != nil {
		log.Fatal("Failed to start session sweeper", err, nil)
	}
	defer registry.Shutdown()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(log, handlers.RouterConfig{
		AllowedOrigins: cfg.CORS.Origins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, handlers.Handlers{
		Health:     handlers.NewHealthHandler(db, registry, cfg.Storage.Backend, cfg.Server.Env),
		FloorPlans: handlers.NewFloorPlanHandler(floorPlanService),
		Catalog:    handlers.NewCatalogHandler(targetService, visitService),
		Audit:      handlers.NewAuditHandler(auditService),
		Sessions:   handlers.NewSessionHandler(registry),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
	return nil
}
