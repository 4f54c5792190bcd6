package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/types"
)

func seedDatasetWithImage(t *testing.T, datasets *fakeDatasetRepo, images *fakeImageRepo) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ds, err := datasets.Create(ctx, nil, &types.Dataset{Name: "animals-" + uuid.NewString(), OwnerID: "alice"})
	if err != nil {
		t.Fatalf("seed dataset: %v", err)
	}
	recs, err := images.CreateBatch(ctx, nil, ds.ID, []*types.ImageRecord{{
		BlobKey:      uuid.NewString() + ".jpg",
		OriginalName: "cat.jpg",
		UploadDate:   time.Now().UTC(),
		IsCropped:    true,
	}})
	if err != nil {
		t.Fatalf("seed image: %v", err)
	}
	return ds.ID, recs[0].ID
}

func TestLabelAppend(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	rec, err := svc.Append(ctx, datasetID, imageID, "  cat  ", "alice", nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.CurrentLabel != "cat" {
		t.Fatalf("label not trimmed: %q", rec.CurrentLabel)
	}
	if rec.CurrentLabeledBy != "alice" {
		t.Fatalf("labeledBy = %q, want alice", rec.CurrentLabeledBy)
	}
	if rec.CurrentLabeledAt == nil {
		t.Fatal("labeledAt not set")
	}
	if len(rec.LabelHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(rec.LabelHistory))
	}

	rec, err = svc.Append(ctx, datasetID, imageID, "dog", "bob", nil)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if rec.CurrentLabel != "dog" || rec.CurrentLabeledBy != "bob" {
		t.Fatalf("latest append should be current, got %q by %q", rec.CurrentLabel, rec.CurrentLabeledBy)
	}
	if len(rec.LabelHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(rec.LabelHistory))
	}
	if rec.LabelHistory[0].Label != "cat" || rec.LabelHistory[1].Label != "dog" {
		t.Fatalf("history out of append order: %+v", rec.LabelHistory)
	}
}

func TestLabelAppendRejectsEmptyLabel(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	_, err := svc.Append(context.Background(), datasetID, imageID, "   ", "alice", nil)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLabelAppendUnknownImage(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)

	datasetID, _ := seedDatasetWithImage(t, datasets, images)

	_, err := svc.Append(context.Background(), datasetID, uuid.New(), "cat", "alice", nil)
	var nferr *types.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestLabelAppendStoresBoundingBox(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	x, y, w, h := 10.0, 20.0, 30.0, 40.0
	box := &types.BoundingBoxInput{X: &x, Y: &y, Width: &w, Height: &h}
	rec, err := svc.Append(ctx, datasetID, imageID, "cat", "alice", box)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.BoundingBox == nil || *rec.BoundingBox != (types.BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}) {
		t.Fatalf("bounding box not stored: %+v", rec.BoundingBox)
	}

	// A later append without a box keeps the existing one.
	rec, err = svc.Append(ctx, datasetID, imageID, "dog", "bob", nil)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if rec.BoundingBox == nil {
		t.Fatal("bounding box should survive a boxless append")
	}
}

func TestLabelReset(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	x, y, w, h := 1.0, 2.0, 3.0, 4.0
	if _, err := svc.Append(ctx, datasetID, imageID, "cat", "alice", &types.BoundingBoxInput{X: &x, Y: &y, Width: &w, Height: &h}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, err := svc.Reset(ctx, datasetID, imageID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if rec.CurrentLabel != "" || rec.CurrentLabeledBy != "" || rec.CurrentLabeledAt != nil {
		t.Fatalf("current fields not cleared: %+v", rec)
	}
	if rec.BoundingBox != nil {
		t.Fatal("bounding box not cleared")
	}
	if len(rec.LabelHistory) != 0 {
		t.Fatalf("history not cleared: %+v", rec.LabelHistory)
	}
	if rec.BlobKey == "" {
		t.Fatal("reset must not touch the blob reference")
	}
	if !rec.IsCropped {
		t.Fatal("reset must not clear the cropped flag")
	}

	// Resetting an already-clean record is a no-op, not an error.
	again, err := svc.Reset(ctx, datasetID, imageID)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if again.CurrentLabel != "" || len(again.LabelHistory) != 0 {
		t.Fatalf("second reset changed state: %+v", again)
	}
}

func TestLabelConsensus(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	// alice labels cat, bob labels dog, then alice changes her mind to dog.
	// One vote per labeler: dog 2, cat 0.
	for _, step := range []struct{ label, by string }{
		{"cat", "alice"},
		{"dog", "bob"},
		{"dog", "alice"},
	} {
		if _, err := svc.Append(ctx, datasetID, imageID, step.label, step.by, nil); err != nil {
			t.Fatalf("append %s/%s: %v", step.label, step.by, err)
		}
	}

	counts, err := svc.Consensus(ctx, datasetID, imageID)
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(counts), counts)
	}
	if counts[0].Label != "dog" || counts[0].Count != 2 {
		t.Fatalf("got %+v, want dog=2", counts[0])
	}
}

func TestLabelConsensusEmptyHistory(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	counts, err := svc.Consensus(context.Background(), datasetID, imageID)
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty consensus, got %+v", counts)
	}
}

func TestLabelConsensusSplitVote(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	for _, step := range []struct{ label, by string }{
		{"cat", "alice"},
		{"dog", "bob"},
		{"cat", "carol"},
	} {
		if _, err := svc.Append(ctx, datasetID, imageID, step.label, step.by, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	counts, err := svc.Consensus(ctx, datasetID, imageID)
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	want := map[string]int{"cat": 2, "dog": 1}
	if len(counts) != len(want) {
		t.Fatalf("got %+v, want %+v", counts, want)
	}
	for _, c := range counts {
		if want[c.Label] != c.Count {
			t.Fatalf("label %q: got %d, want %d", c.Label, c.Count, want[c.Label])
		}
	}
}

func TestLabelConsensusTimestampTie(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	ds, err := datasets.Create(ctx, nil, &types.Dataset{Name: "ties", OwnerID: "alice"})
	if err != nil {
		t.Fatalf("seed dataset: %v", err)
	}

	// Two events from the same labeler carrying an identical timestamp:
	// the later-appended one is that labeler's vote.
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	recs, err := images.CreateBatch(ctx, nil, ds.ID, []*types.ImageRecord{{
		BlobKey:      "tie.jpg",
		OriginalName: "tie.jpg",
		UploadDate:   at,
		LabelHistory: []types.LabelEvent{
			{Label: "cat", LabeledBy: "alice", LabeledAt: at},
			{Label: "dog", LabeledBy: "alice", LabeledAt: at},
		},
	}})
	if err != nil {
		t.Fatalf("seed image: %v", err)
	}

	counts, err := svc.Consensus(ctx, ds.ID, recs[0].ID)
	if err != nil {
		t.Fatalf("consensus: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(counts), counts)
	}
	if counts[0].Label != "dog" || counts[0].Count != 1 {
		t.Fatalf("later append should win the timestamp tie, got %+v", counts[0])
	}
}

func TestLabelAppendConcurrentAcrossImages(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	ds, err := datasets.Create(ctx, nil, &types.Dataset{Name: "pair", OwnerID: "alice"})
	if err != nil {
		t.Fatalf("seed dataset: %v", err)
	}
	now := time.Now().UTC()
	recs, err := images.CreateBatch(ctx, nil, ds.ID, []*types.ImageRecord{
		{BlobKey: "a.jpg", OriginalName: "a.jpg", UploadDate: now},
		{BlobKey: "b.jpg", OriginalName: "b.jpg", UploadDate: now},
	})
	if err != nil {
		t.Fatalf("seed images: %v", err)
	}

	// Writers touching different records in one dataset must never
	// interfere with each other.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	labels := []string{"cat", "dog"}
	for i := range recs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Append(ctx, ds.ID, recs[i].ID, labels[i], "alice", nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("append on image %d: %v", i, err)
		}
	}
	for i, want := range labels {
		rec, err := images.GetByID(ctx, nil, ds.ID, recs[i].ID)
		if err != nil {
			t.Fatalf("get image %d: %v", i, err)
		}
		if rec.CurrentLabel != want {
			t.Fatalf("image %d label = %q, want %q", i, rec.CurrentLabel, want)
		}
		if len(rec.LabelHistory) != 1 || rec.Version != 1 {
			t.Fatalf("image %d: history %d, version %d; writes bled across records", i, len(rec.LabelHistory), rec.Version)
		}
	}
}

func TestLabelAppendConcurrent(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	svc := NewLabelService(nil, logger.NewNop(), images)
	ctx := context.Background()

	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	labelers := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	errs := make([]error, len(labelers))
	for i, by := range labelers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Append(ctx, datasetID, imageID, "cat", by, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("append by %s: %v", labelers[i], err)
		}
	}

	rec, err := images.GetByID(ctx, nil, datasetID, imageID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.LabelHistory) != len(labelers) {
		t.Fatalf("history length = %d, want %d; a concurrent append was lost", len(rec.LabelHistory), len(labelers))
	}
	if rec.Version != len(labelers) {
		t.Fatalf("version = %d, want %d", rec.Version, len(labelers))
	}
}

func TestLabelAppendExhaustsRetries(t *testing.T) {
	datasets := newFakeDatasetRepo()
	images := newFakeImageRepo(datasets)
	datasetID, imageID := seedDatasetWithImage(t, datasets, images)

	svc := &labelService{
		log:        logger.NewNop(),
		imageRepo:  &alwaysConflicting{inner: images},
		maxRetries: 3,
	}

	_, err := svc.Append(context.Background(), datasetID, imageID, "cat", "alice", nil)
	var cerr *types.ConcurrentUpdateError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConcurrentUpdateError, got %v", err)
	}
}

// alwaysConflicting simulates a writer that loses every version race.
type alwaysConflicting struct {
	inner *fakeImageRepo
}

func (a *alwaysConflicting) CreateBatch(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID, records []*types.ImageRecord) ([]*types.ImageRecord, error) {
	return a.inner.CreateBatch(ctx, tx, datasetID, records)
}

func (a *alwaysConflicting) GetByID(ctx context.Context, tx *gorm.DB, datasetID, imageID uuid.UUID) (*types.ImageRecord, error) {
	return a.inner.GetByID(ctx, tx, datasetID, imageID)
}

func (a *alwaysConflicting) ListByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) ([]*types.ImageRecord, error) {
	return a.inner.ListByDataset(ctx, tx, datasetID)
}

func (a *alwaysConflicting) CountByDataset(ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) (int64, error) {
	return a.inner.CountByDataset(ctx, tx, datasetID)
}

func (a *alwaysConflicting) UpdateVersioned(ctx context.Context, tx *gorm.DB, rec *types.ImageRecord) (bool, error) {
	return false, nil
}
