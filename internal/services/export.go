package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/repos"
	"github.com/yungbote/labelforge-backend/internal/types"
)

// labeledPageSize is the fixed window of the labeled-image listing.
const labeledPageSize = 6

// LabeledPage is one window of labeled images plus the filtered total.
type LabeledPage struct {
	Images []*types.ImageRecord `json:"images"`
	Total  int                  `json:"total"`
}

type ExportService interface {
	ListImages(ctx context.Context, datasetID uuid.UUID) ([]*types.ImageRecord, error)
	ListLabeled(ctx context.Context, datasetID uuid.UUID, page int) (LabeledPage, error)
	ExportCSV(ctx context.Context, datasetID uuid.UUID) (datasetName string, csv string, err error)
}

type exportService struct {
	db            *gorm.DB
	log           *logger.Logger
	datasetRepo   repos.DatasetRepo
	imageRepo     repos.ImageRepo
	publicBaseURL string
}

func NewExportService(db *gorm.DB, log *logger.Logger, datasetRepo repos.DatasetRepo, imageRepo repos.ImageRepo, publicBaseURL string) ExportService {
	return &exportService{
		db:            db,
		log:           log.With("service", "ExportService"),
		datasetRepo:   datasetRepo,
		imageRepo:     imageRepo,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *exportService) ListImages(ctx context.Context, datasetID uuid.UUID) ([]*types.ImageRecord, error) {
	if _, err := s.datasetRepo.GetByID(ctx, nil, datasetID); err != nil {
		return nil, err
	}
	return s.imageRepo.ListByDataset(ctx, nil, datasetID)
}

// ListLabeled windows the labeled subset, newest label first. Records that
// somehow carry a label but no timestamp sort as earliest.
func (s *exportService) ListLabeled(ctx context.Context, datasetID uuid.UUID, page int) (LabeledPage, error) {
	if page < 0 {
		return LabeledPage{}, &types.ValidationError{Field: "page", Reason: "page must be >= 0"}
	}
	images, err := s.ListImages(ctx, datasetID)
	if err != nil {
		return LabeledPage{}, err
	}

	labeled := make([]*types.ImageRecord, 0, len(images))
	for _, img := range images {
		if img.Labeled() {
			labeled = append(labeled, img)
		}
	}

	sort.SliceStable(labeled, func(i, j int) bool {
		return labeledAtOrZero(labeled[i]).After(labeledAtOrZero(labeled[j]))
	})

	total := len(labeled)
	start := page * labeledPageSize
	if start > total {
		start = total
	}
	end := start + labeledPageSize
	if end > total {
		end = total
	}
	return LabeledPage{Images: labeled[start:end], Total: total}, nil
}

// ExportCSV serializes the labeled subset in the dataset's natural image
// order. The output format is wire-compatibility sensitive: header,
// RFC4180-style quoting, rows joined by a bare newline with no trailing
// newline.
func (s *exportService) ExportCSV(ctx context.Context, datasetID uuid.UUID) (string, string, error) {
	ds, err := s.datasetRepo.GetByID(ctx, nil, datasetID)
	if err != nil {
		return "", "", err
	}
	images, err := s.imageRepo.ListByDataset(ctx, nil, datasetID)
	if err != nil {
		return "", "", err
	}

	rows := []string{"imageUrl,label,labeledBy,labeledAt,boundingBox"}
	for _, img := range images {
		if img.CurrentLabel == "" {
			continue
		}

		labeledAt := ""
		if img.CurrentLabeledAt != nil {
			labeledAt = img.CurrentLabeledAt.UTC().Format(time.RFC3339)
		}
		boundingBox := ""
		if img.BoundingBox != nil {
			boundingBox = img.BoundingBox.Flatten()
		}

		fields := []string{
			escapeCSV(s.imageURL(img.BlobKey)),
			escapeCSV(img.CurrentLabel),
			escapeCSV(img.CurrentLabeledBy),
			escapeCSV(labeledAt),
			escapeCSV(boundingBox),
		}
		rows = append(rows, strings.Join(fields, ","))
	}

	s.log.Info("CSV export generated", "dataset_id", datasetID, "rows", len(rows)-1)
	return ds.Name, strings.Join(rows, "\n"), nil
}

func (s *exportService) imageURL(blobKey string) string {
	return fmt.Sprintf("%s/api/files/%s", s.publicBaseURL, blobKey)
}

func labeledAtOrZero(img *types.ImageRecord) time.Time {
	if img.CurrentLabeledAt == nil {
		return time.Time{}
	}
	return *img.CurrentLabeledAt
}

// escapeCSV quotes a field when it contains a comma, double quote or
// newline, doubling internal quotes.
func escapeCSV(field string) string {
	if strings.ContainsAny(field, ",\"\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}
