package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/types"
)

// fakeDatasetRepo and fakeImageRepo stand in for the database layer so the
// service semantics can be exercised without a live connection. They honor
// the same contracts the real repos do: copies out, versioned updates,
// position assignment in insertion order.

type fakeDatasetRepo struct {
	mu       sync.Mutex
	datasets map[uuid.UUID]*types.Dataset
}

func newFakeDatasetRepo() *fakeDatasetRepo {
	return &fakeDatasetRepo{datasets: make(map[uuid.UUID]*types.Dataset)}
}

func (f *fakeDatasetRepo) Create(ctx context.Context, tx *gorm.DB, ds *types.Dataset) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.datasets {
		if existing.Name == ds.Name {
			return nil, &types.DuplicateNameError{Name: ds.Name}
		}
	}
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	ds.CreatedAt = time.Now().UTC()
	ds.UpdatedAt = ds.CreatedAt
	stored := *ds
	f.datasets[ds.ID] = &stored
	return ds, nil
}

func (f *fakeDatasetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "dataset", ID: id.String()}
	}
	out := *ds
	return &out, nil
}

func (f *fakeDatasetRepo) List(ctx context.Context, tx *gorm.DB, newestFirst bool) ([]*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Dataset, 0, len(f.datasets))
	for _, ds := range f.datasets {
		cp := *ds
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeDatasetRepo) Rename(ctx context.Context, tx *gorm.DB, id uuid.UUID, name string) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "dataset", ID: id.String()}
	}
	for otherID, other := range f.datasets {
		if otherID != id && other.Name == name {
			return nil, &types.DuplicateNameError{Name: name}
		}
	}
	ds.Name = name
	ds.Version++
	ds.UpdatedAt = time.Now().UTC()
	out := *ds
	return &out, nil
}

func (f *fakeDatasetRepo) RepairOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerID string) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "dataset", ID: id.String()}
	}
	if ds.OwnerID == "" {
		ds.OwnerID = ownerID
		ds.Version++
		ds.UpdatedAt = time.Now().UTC()
	}
	out := *ds
	return &out, nil
}

func (f *fakeDatasetRepo) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := int64(len(f.datasets))
	f.datasets = make(map[uuid.UUID]*types.Dataset)
	return deleted, nil
}

type fakeImageRepo struct {
	mu       sync.Mutex
	datasets *fakeDatasetRepo
	records  map[uuid.UUID]*types.ImageRecord
}

func newFakeImageRepo(datasets *fakeDatasetRepo) *fakeImageRepo {
	return &fakeImageRepo{
		datasets: datasets,
		records:  make(map[uuid.UUID]*types.ImageRecord),
	}
}

func copyRecord(rec *types.ImageRecord) *types.ImageRecord {
	out := *rec
	if rec.LabelHistory != nil {
		out.LabelHistory = append(out.LabelHistory[:0:0], rec.LabelHistory...)
	}
	if rec.BoundingBox != nil {
		box := *rec.BoundingBox
		out.BoundingBox = &box
	}
	return &out
}

func (f *fakeImageRepo) CreateBatch(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID, records []*types.ImageRecord) ([]*types.ImageRecord, error) {
	if _, err := f.datasets.GetByID(ctx, tx, datasetID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var maxPosition int64
	for _, rec := range f.records {
		if rec.DatasetID == datasetID && rec.Position > maxPosition {
			maxPosition = rec.Position
		}
	}
	for i, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.DatasetID = datasetID
		rec.Position = maxPosition + int64(i) + 1
		f.records[rec.ID] = copyRecord(rec)
	}
	return records, nil
}

func (f *fakeImageRepo) GetByID(ctx context.Context, tx *gorm.DB, datasetID, imageID uuid.UUID) (*types.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[imageID]
	if !ok || rec.DatasetID != datasetID {
		return nil, &types.NotFoundError{Kind: "image", ID: imageID.String()}
	}
	return copyRecord(rec), nil
}

func (f *fakeImageRepo) ListByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) ([]*types.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ImageRecord
	for _, rec := range f.records {
		if rec.DatasetID == datasetID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeImageRepo) CountByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, rec := range f.records {
		if rec.DatasetID == datasetID {
			count++
		}
	}
	return count, nil
}

func (f *fakeImageRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, rec *types.ImageRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.records[rec.ID]
	if !ok || stored.DatasetID != rec.DatasetID || stored.Version != rec.Version {
		return false, nil
	}
	next := copyRecord(rec)
	next.Version = rec.Version + 1
	next.UpdatedAt = time.Now().UTC()
	f.records[rec.ID] = next
	rec.Version++
	return true, nil
}
