package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/labelforge-backend/internal/handlers"
	"github.com/yungbote/labelforge-backend/internal/middleware"
)

type RouterConfig struct {
	DatasetHandler     *handlers.DatasetHandler
	FileHandler        *handlers.FileHandler
	IdentityMiddleware *middleware.IdentityMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("labelforge"))
	router.Use(cfg.IdentityMiddleware.Resolve())

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		datasets := api.Group("/datasets")
		{
			datasets.POST("", cfg.DatasetHandler.Create)
			datasets.GET("", cfg.DatasetHandler.List)
			datasets.GET("/:id", cfg.DatasetHandler.Get)
			datasets.PUT("/:id", cfg.DatasetHandler.Rename)
			datasets.POST("/:id/upload", cfg.DatasetHandler.Upload)
			datasets.GET("/:id/images", cfg.DatasetHandler.ListImages)
			datasets.GET("/:id/labeled", cfg.DatasetHandler.ListLabeled)
			datasets.PUT("/:id/images/:imageId", cfg.DatasetHandler.SaveLabel)
			datasets.DELETE("/:id/images/:imageId", cfg.DatasetHandler.ResetLabel)
			datasets.GET("/:id/images/:imageId/label-stats", cfg.DatasetHandler.LabelStats)
			datasets.GET("/:id/stats", cfg.DatasetHandler.Stats)
			datasets.GET("/:id/export", cfg.DatasetHandler.ExportCSV)
		}

		api.GET("/files/:fileId", cfg.FileHandler.Stream)

		// Administrative bulk wipe, test/reset flows only.
		api.DELETE("/admin/datasets", cfg.DatasetHandler.DeleteAll)
	}

	return router
}
