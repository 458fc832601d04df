package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"daybook-ndjson-backend/internal/config"
	handler "daybook-ndjson-backend/internal/handlers"
	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/services/conversion"
	"daybook-ndjson-backend/internal/storage"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, store *storage.NDJSONStore, cfg *config.Config, log zerolog.Logger) {
	conversionRepo := repository.NewConversionRepository(db)
	conversionService := conversion.NewService(store, conversionRepo, log)

	convHandler := handler.NewConversionHandler(
		conversionService,
		store,
		conversionRepo,
		cfg.MaxUploadBytes(),
		log,
	)

	// Conversion endpoints keep their historical top-level paths.
	r.POST("/convert-daybook-ndjson", convHandler.Convert)
	r.GET("/download-ndjson", convHandler.Download)

	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	conversions := api.Group("/conversions")
	conversions.GET("", convHandler.ListConversions)
	conversions.GET("/:id", convHandler.GetConversion)

	api.GET("/artifacts", convHandler.ListArtifacts)
}
