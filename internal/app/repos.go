package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/repos"
)

type Repos struct {
	Dataset repos.DatasetRepo
	Image   repos.ImageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Dataset: repos.NewDatasetRepo(db, log),
		Image:   repos.NewImageRepo(db, log),
	}
}
