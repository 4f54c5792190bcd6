package app

import (
	"github.com/yungbote/labelforge-backend/internal/handlers"
	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/platform/blob"
)

type Handlers struct {
	Dataset *handlers.DatasetHandler
	File    *handlers.FileHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, blobStore blob.BlobStore) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Dataset: handlers.NewDatasetHandler(log, serviceset.Dataset, serviceset.Ingestion, serviceset.Label, serviceset.Export),
		File:    handlers.NewFileHandler(log, blobStore),
	}
}
