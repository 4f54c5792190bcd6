package app

import (
	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/utils"
)

type Config struct {
	Port          string
	DBDriver      string
	SQLitePath    string
	StorageMode   string
	LocalBlobDir  string
	PublicBaseURL string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:          utils.GetEnv("PORT", "8080", log),
		DBDriver:      utils.GetEnv("DB_DRIVER", "postgres", log),
		SQLitePath:    utils.GetEnv("SQLITE_PATH", "labelforge.db", log),
		StorageMode:   utils.GetEnv("STORAGE_MODE", "gcs", log),
		LocalBlobDir:  utils.GetEnv("LOCAL_BLOB_DIR", "blobdata", log),
		PublicBaseURL: utils.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080", log),
	}
}
