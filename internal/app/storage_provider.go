package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/platform/blob"
)

// resolveBlobStore selects a blob backend from config. The store handle is
// injected into every component that needs it at construction time; there
// is no process-wide mutable handle to race on.
func resolveBlobStore(log *logger.Logger, cfg Config) (blob.BlobStore, error) {
	mode := strings.TrimSpace(strings.ToLower(cfg.StorageMode))
	log.Info("Selecting blob storage provider", "mode", mode)
	switch mode {
	case "gcs":
		return blob.NewGCSStore(log)
	case "local":
		return blob.NewLocalStore(cfg.LocalBlobDir, log)
	case "memory":
		return blob.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage mode %q (expected gcs, local or memory)", cfg.StorageMode)
	}
}
