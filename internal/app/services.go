package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/platform/blob"
	"github.com/yungbote/labelforge-backend/internal/services"
)

type Services struct {
	Dataset   services.DatasetService
	Ingestion services.IngestionService
	Label     services.LabelService
	Export    services.ExportService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, blobStore blob.BlobStore) Services {
	log.Info("Wiring services...")
	return Services{
		Dataset:   services.NewDatasetService(db, log, reposet.Dataset, reposet.Image),
		Ingestion: services.NewIngestionService(db, log, reposet.Dataset, reposet.Image, blobStore),
		Label:     services.NewLabelService(db, log, reposet.Image),
		Export:    services.NewExportService(db, log, reposet.Dataset, reposet.Image, cfg.PublicBaseURL),
	}
}
