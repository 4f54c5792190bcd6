package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/types"
)

// ImageRepo owns the per-record primitives the aggregate store is built
// on. Single-record mutations go through UpdateVersioned; batch appends
// through CreateBatch. Nothing else writes image rows.
type ImageRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID, records []*types.ImageRecord) ([]*types.ImageRecord, error)
	GetByID(ctx context.Context, tx *gorm.DB, datasetID, imageID uuid.UUID) (*types.ImageRecord, error)
	ListByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) ([]*types.ImageRecord, error)
	CountByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) (int64, error)
	UpdateVersioned(ctx context.Context, tx *gorm.DB, rec *types.ImageRecord) (bool, error)
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	repoLog := baseLog.With("repo", "ImageRepo")
	return &imageRepo{db: db, log: repoLog}
}

// CreateBatch appends records to a dataset in insertion order. The dataset
// row is locked for the duration of the transaction so that concurrent
// batches cannot be assigned overlapping positions; blob I/O has already
// happened by the time this runs, so the lock covers index assignment and
// the INSERT only.
func (r *imageRepo) CreateBatch(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID, records []*types.ImageRecord) ([]*types.ImageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.ImageRecord{}, nil
	}

	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var ds types.Dataset
		query := inner.Where("id = ?", datasetID)
		if inner.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&ds).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Kind: "dataset", ID: datasetID.String()}
			}
			return err
		}

		var maxPosition int64
		if err := inner.Model(&types.ImageRecord{}).
			Where("dataset_id = ?", datasetID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}

		for i, rec := range records {
			rec.DatasetID = datasetID
			rec.Position = maxPosition + int64(i) + 1
		}
		if err := inner.Create(&records).Error; err != nil {
			return err
		}

		return inner.Model(&types.Dataset{}).
			Where("id = ?", datasetID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *imageRepo) GetByID(ctx context.Context, tx *gorm.DB, datasetID, imageID uuid.UUID) (*types.ImageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rec types.ImageRecord
	if err := transaction.WithContext(ctx).
		Where("id = ? AND dataset_id = ?", imageID, datasetID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &types.NotFoundError{Kind: "image", ID: imageID.String()}
		}
		return nil, err
	}
	return &rec, nil
}

func (r *imageRepo) ListByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) ([]*types.ImageRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ImageRecord
	if err := transaction.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *imageRepo) CountByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ImageRecord{}).
		Where("dataset_id = ?", datasetID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateVersioned commits rec's label state as one atomic write, guarded
// by the version the caller read. Returns false when another writer got
// there first; the caller owns the retry loop.
func (r *imageRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, rec *types.ImageRecord) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ImageRecord{}).
		Where("id = ? AND dataset_id = ? AND version = ?", rec.ID, rec.DatasetID, rec.Version).
		Updates(map[string]interface{}{
			"current_label":      rec.CurrentLabel,
			"current_labeled_by": rec.CurrentLabeledBy,
			"current_labeled_at": rec.CurrentLabeledAt,
			"bounding_box":       rec.BoundingBox,
			"label_history":      rec.LabelHistory,
			"version":            rec.Version + 1,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.Version++
	return true, nil
}
