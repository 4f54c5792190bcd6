package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/repos"
	"github.com/yungbote/labelforge-backend/internal/types"
)

// DatasetStats is the labeled/unlabeled breakdown for one dataset.
type DatasetStats struct {
	Total     int64 `json:"total"`
	Labeled   int64 `json:"labeled"`
	Unlabeled int64 `json:"unlabeled"`
}

type DatasetService interface {
	Create(ctx context.Context, name, ownerID, description string) (*types.Dataset, error)
	Rename(ctx context.Context, id uuid.UUID, newName string) (*types.Dataset, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Dataset, error)
	List(ctx context.Context, newestFirst bool) ([]*types.Dataset, error)
	RepairOwner(ctx context.Context, id uuid.UUID, ownerID string) (*types.Dataset, error)
	DeleteAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context, id uuid.UUID) (DatasetStats, error)
}

type datasetService struct {
	db          *gorm.DB
	log         *logger.Logger
	datasetRepo repos.DatasetRepo
	imageRepo   repos.ImageRepo
}

func NewDatasetService(db *gorm.DB, log *logger.Logger, datasetRepo repos.DatasetRepo, imageRepo repos.ImageRepo) DatasetService {
	return &datasetService{
		db:          db,
		log:         log.With("service", "DatasetService"),
		datasetRepo: datasetRepo,
		imageRepo:   imageRepo,
	}
}

func (s *datasetService) Create(ctx context.Context, name, ownerID, description string) (*types.Dataset, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, &types.ValidationError{Field: "name", Reason: "dataset name cannot be empty"}
	}

	ds := &types.Dataset{
		Name:        trimmed,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
	}
	created, err := s.datasetRepo.Create(ctx, nil, ds)
	if err != nil {
		return nil, err
	}
	s.log.Info("Dataset created", "dataset_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *datasetService) Rename(ctx context.Context, id uuid.UUID, newName string) (*types.Dataset, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return nil, &types.ValidationError{Field: "name", Reason: "dataset name cannot be empty"}
	}

	ds, err := s.datasetRepo.Rename(ctx, nil, id, trimmed)
	if err != nil {
		return nil, err
	}
	return s.withImageCount(ctx, ds)
}

func (s *datasetService) Get(ctx context.Context, id uuid.UUID) (*types.Dataset, error) {
	ds, err := s.datasetRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	images, err := s.imageRepo.ListByDataset(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	ds.Images = images
	ds.ImageCount = int64(len(images))
	return ds, nil
}

func (s *datasetService) List(ctx context.Context, newestFirst bool) ([]*types.Dataset, error) {
	datasets, err := s.datasetRepo.List(ctx, nil, newestFirst)
	if err != nil {
		return nil, err
	}
	for _, ds := range datasets {
		count, err := s.imageRepo.CountByDataset(ctx, nil, ds.ID)
		if err != nil {
			return nil, err
		}
		ds.ImageCount = count
	}
	return datasets, nil
}

func (s *datasetService) RepairOwner(ctx context.Context, id uuid.UUID, ownerID string) (*types.Dataset, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &types.ValidationError{Field: "ownerId", Reason: "owner identity cannot be empty"}
	}
	ds, err := s.datasetRepo.RepairOwner(ctx, nil, id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withImageCount(ctx, ds)
}

func (s *datasetService) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.datasetRepo.DeleteAll(ctx, nil)
	if err != nil {
		return 0, err
	}
	s.log.Warn("All datasets deleted", "count", deleted)
	return deleted, nil
}

func (s *datasetService) Stats(ctx context.Context, id uuid.UUID) (DatasetStats, error) {
	if _, err := s.datasetRepo.GetByID(ctx, nil, id); err != nil {
		return DatasetStats{}, err
	}
	images, err := s.imageRepo.ListByDataset(ctx, nil, id)
	if err != nil {
		return DatasetStats{}, err
	}

	stats := DatasetStats{Total: int64(len(images))}
	for _, img := range images {
		if img.Labeled() {
			stats.Labeled++
		}
	}
	stats.Unlabeled = stats.Total - stats.Labeled
	return stats, nil
}

func (s *datasetService) withImageCount(ctx context.Context, ds *types.Dataset) (*types.Dataset, error) {
	count, err := s.imageRepo.CountByDataset(ctx, nil, ds.ID)
	if err != nil {
		return nil, err
	}
	ds.ImageCount = count
	return ds, nil
}
