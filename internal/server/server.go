package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"daybook-ndjson-backend/internal/config"
	"daybook-ndjson-backend/internal/logging"
	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/routes"
	"daybook-ndjson-backend/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewEngine builds the gin engine with middleware and all routes registered.
func NewEngine(db *gorm.DB, store *storage.NDJSONStore, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(log))
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, store, cfg, log)
	return r
}

// Run opens the database and output directory, serves HTTP and shuts down gracefully once
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if !cfg.DotEnvLoaded {
		log.Info().Msg("No .env file found, relying on system env")
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repository.NewConversionRepository(db).Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")

	store, err := storage.NewNDJSONStore(cfg.OutputDir)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewEngine(db, store, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("output_dir", store.Dir()).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
