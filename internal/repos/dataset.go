package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/types"
)

type DatasetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ds *types.Dataset) (*types.Dataset, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Dataset, error)
	List(ctx context.Context, tx *gorm.DB, newestFirst bool) ([]*types.Dataset, error)
	Rename(ctx context.Context, tx *gorm.DB, id uuid.UUID, name string) (*types.Dataset, error)
	RepairOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID string) (*types.Dataset, error)
	DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	repoLog := baseLog.With("repo", "DatasetRepo")
	return &datasetRepo{db: db, log: repoLog}
}

func (r *datasetRepo) Create(ctx context.Context, tx *gorm.DB, ds *types.Dataset) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(ds).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &types.DuplicateNameError{Name: ds.Name}
		}
		return nil, err
	}
	return ds, nil
}

func (r *datasetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ds types.Dataset
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&ds).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &types.NotFoundError{Kind: "dataset", ID: id.String()}
		}
		return nil, err
	}
	return &ds, nil
}

func (r *datasetRepo) List(ctx context.Context, tx *gorm.DB, newestFirst bool) ([]*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx)
	if newestFirst {
		query = query.Order("created_at DESC")
	}

	var results []*types.Dataset
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Rename is a single conditional UPDATE so that concurrent renames cannot
// interleave with whole-aggregate writes. The aggregate version bumps with
// every committed rename.
func (r *datasetRepo) Rename(ctx context.Context, tx *gorm.DB, id uuid.UUID, name string) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Dataset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       name,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, &types.DuplicateNameError{Name: name}
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &types.NotFoundError{Kind: "dataset", ID: id.String()}
	}
	return r.GetByID(ctx, transaction, id)
}

// RepairOwner backfills the owner of a dataset created before owner
// tracking existed. The WHERE clause makes it a no-op whenever an owner is
// already set, so repeated calls are idempotent and never overwrite.
func (r *datasetRepo) RepairOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID string) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Dataset{}).
		Where("id = ? AND (owner_id IS NULL OR owner_id = '')", id).
		Updates(map[string]interface{}{
			"owner_id":   ownerID,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Info("Backfilled dataset owner", "dataset_id", id, "owner_id", ownerID)
	}
	return r.GetByID(ctx, transaction, id)
}

func (r *datasetRepo) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var deleted int64
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		// Image rows are removed explicitly rather than relying on the FK
		// cascade, which sqlite only honors with foreign_keys=on.
		if err := inner.Where("1 = 1").Delete(&types.ImageRecord{}).Error; err != nil {
			return err
		}
		res := inner.Where("1 = 1").Delete(&types.Dataset{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
