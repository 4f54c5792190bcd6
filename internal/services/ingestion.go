package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/platform/blob"
	"github.com/yungbote/labelforge-backend/internal/repos"
	"github.com/yungbote/labelforge-backend/internal/types"
)

const (
	maxBatchFiles    = 10
	maxFileSizeBytes = 10 << 20 // 10 MiB

	// blobPutConcurrency bounds parallel blob writes per batch.
	blobPutConcurrency = 4
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// UploadFile is one file of an ingestion batch.
type UploadFile struct {
	Data         []byte
	OriginalName string
	ContentType  string
}

// IngestMeta carries the optional per-file labeling metadata. The labeling
// fields support both scalar broadcast and positional forms (types.PerFile);
// IsCropped is batch-wide, the only granularity clients ever send it at.
type IngestMeta struct {
	Label       types.PerFile[string]
	LabeledBy   types.PerFile[string]
	LabeledAt   types.PerFile[string]
	BoundingBox types.PerFile[*types.BoundingBoxInput]
	IsCropped   bool
}

type IngestionService interface {
	Ingest(ctx context.Context, datasetID uuid.UUID, callerID string, files []UploadFile, meta IngestMeta) ([]*types.ImageRecord, error)
}

type ingestionService struct {
	db          *gorm.DB
	log         *logger.Logger
	datasetRepo repos.DatasetRepo
	imageRepo   repos.ImageRepo
	blobStore   blob.BlobStore
}

func NewIngestionService(db *gorm.DB, log *logger.Logger, datasetRepo repos.DatasetRepo, imageRepo repos.ImageRepo, blobStore blob.BlobStore) IngestionService {
	return &ingestionService{
		db:          db,
		log:         log.With("service", "IngestionService"),
		datasetRepo: datasetRepo,
		imageRepo:   imageRepo,
		blobStore:   blobStore,
	}
}

// Ingest validates the whole batch, writes blobs, then appends the records
// to the dataset through the atomic batch primitive. Validation is
// all-or-nothing and runs before any blob write. A failure after blobs are
// written leaves them orphaned for out-of-band reconciliation; that window
// is accepted and surfaced, never hidden.
func (s *ingestionService) Ingest(ctx context.Context, datasetID uuid.UUID, callerID string, files []UploadFile, meta IngestMeta) ([]*types.ImageRecord, error) {
	if len(files) == 0 {
		return nil, &types.ValidationError{Field: "files", Reason: "no files were uploaded"}
	}
	if len(files) > maxBatchFiles {
		return nil, &types.ValidationError{Field: "files", Reason: fmt.Sprintf("batch exceeds %d files", maxBatchFiles)}
	}

	boxes := make([]*types.BoundingBox, len(files))
	for i, f := range files {
		field := fmt.Sprintf("files[%d]", i)
		ext := strings.ToLower(filepath.Ext(f.OriginalName))
		if _, ok := allowedExtensions[ext]; !ok {
			return nil, &types.ValidationError{Field: field, Reason: "only jpg, jpeg, png and gif files are accepted"}
		}
		if len(f.Data) > maxFileSizeBytes {
			return nil, &types.ValidationError{Field: field, Reason: "file exceeds the 10 MiB limit"}
		}
		box, err := meta.BoundingBox.Resolve(i).Normalize()
		if err != nil {
			return nil, err
		}
		boxes[i] = box
	}

	ds, err := s.datasetRepo.GetByID(ctx, nil, datasetID)
	if err != nil {
		return nil, err
	}
	if ds.OwnerID == "" {
		if callerID == "" {
			return nil, &types.ValidationError{Field: "ownerId", Reason: "dataset has no owner and caller identity is missing"}
		}
		if _, err := s.datasetRepo.RepairOwner(ctx, nil, datasetID, callerID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = uuid.NewString() + strings.ToLower(filepath.Ext(f.OriginalName))
	}

	// Blob writes run outside any transaction; no in-process lock is held
	// across a store round trip.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobPutConcurrency)
	for i := range files {
		g.Go(func() error {
			f := files[i]
			err := s.blobStore.Put(gctx, keys[i], bytes.NewReader(f.Data), blob.PutOptions{
				ContentType: f.ContentType,
				Metadata: map[string]string{
					"datasetId":    datasetID.String(),
					"originalName": f.OriginalName,
					"uploadDate":   now.Format(time.RFC3339),
				},
			})
			if err != nil {
				return &types.BlobStoreError{Op: "put", Key: keys[i], Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("Batch blob write failed, already written blobs are orphaned",
			"dataset_id", datasetID, "keys", keys, "error", err)
		return nil, err
	}

	records := make([]*types.ImageRecord, len(files))
	for i, f := range files {
		rec := &types.ImageRecord{
			BlobKey:      keys[i],
			OriginalName: f.OriginalName,
			UploadDate:   now,
			IsCropped:    meta.IsCropped,
			LabelHistory: nil,
		}
		if label := meta.Label.Resolve(i); label != "" {
			labeledAt := parseLabeledAt(meta.LabeledAt.Resolve(i), now)
			rec.CurrentLabel = label
			rec.CurrentLabeledBy = meta.LabeledBy.Resolve(i)
			rec.CurrentLabeledAt = &labeledAt
		}
		rec.BoundingBox = boxes[i]
		records[i] = rec
	}

	created, err := s.imageRepo.CreateBatch(ctx, nil, datasetID, records)
	if err != nil {
		s.log.Error("Appending ingested records failed, blobs retained for reconciliation",
			"dataset_id", datasetID, "keys", keys, "error", err)
		return nil, err
	}

	s.log.Info("Batch ingested", "dataset_id", datasetID, "files", len(created))
	return created, nil
}

// parseLabeledAt accepts the timestamp formats upload clients send and
// falls back to the ingestion time when the value is absent or
// unparseable.
func parseLabeledAt(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
