package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/repos"
	"github.com/yungbote/labelforge-backend/internal/types"
)

// defaultLabelRetries bounds the optimistic-conflict retry loop before a
// ConcurrentUpdateError is surfaced.
const defaultLabelRetries = 5

// LabelCount is one entry of a consensus snapshot: a label and how many
// labelers currently stand behind it.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type LabelService interface {
	Append(ctx context.Context, datasetID, imageID uuid.UUID, label, labeledBy string, box *types.BoundingBoxInput) (*types.ImageRecord, error)
	Reset(ctx context.Context, datasetID, imageID uuid.UUID) (*types.ImageRecord, error)
	Consensus(ctx context.Context, datasetID, imageID uuid.UUID) ([]LabelCount, error)
}

type labelService struct {
	db         *gorm.DB
	log        *logger.Logger
	imageRepo  repos.ImageRepo
	maxRetries int
}

func NewLabelService(db *gorm.DB, log *logger.Logger, imageRepo repos.ImageRepo) LabelService {
	return &labelService{
		db:         db,
		log:        log.With("service", "LabelService"),
		imageRepo:  imageRepo,
		maxRetries: defaultLabelRetries,
	}
}

// Append records a label event and derives the current-* fields from it.
// Append order is authoritative: the event goes to the end of the history
// and becomes current no matter what timestamps earlier events carry.
func (s *labelService) Append(ctx context.Context, datasetID, imageID uuid.UUID, label, labeledBy string, box *types.BoundingBoxInput) (*types.ImageRecord, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil, &types.ValidationError{Field: "label", Reason: "label cannot be empty"}
	}
	normalized, err := box.Normalize()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.imageRepo.GetByID(ctx, nil, datasetID, imageID)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		event := types.LabelEvent{Label: trimmed, LabeledBy: labeledBy, LabeledAt: now}
		rec.LabelHistory = append(rec.LabelHistory, event)
		rec.CurrentLabel = event.Label
		rec.CurrentLabeledBy = event.LabeledBy
		rec.CurrentLabeledAt = &event.LabeledAt
		if normalized != nil {
			rec.BoundingBox = normalized
		}

		ok, err := s.imageRepo.UpdateVersioned(ctx, nil, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
		s.log.Debug("Label append lost a version race, retrying",
			"image_id", imageID, "attempt", attempt+1)
	}
	return nil, &types.ConcurrentUpdateError{ID: imageID.String()}
}

// Reset clears label history, bounding box and derived fields, returning
// the record to its just-uploaded state. The record and its blob survive;
// this is a soft reset by design.
func (s *labelService) Reset(ctx context.Context, datasetID, imageID uuid.UUID) (*types.ImageRecord, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.imageRepo.GetByID(ctx, nil, datasetID, imageID)
		if err != nil {
			return nil, err
		}

		rec.LabelHistory = datatypes.JSONSlice[types.LabelEvent]{}
		rec.CurrentLabel = ""
		rec.CurrentLabeledBy = ""
		rec.CurrentLabeledAt = nil
		rec.BoundingBox = nil

		ok, err := s.imageRepo.UpdateVersioned(ctx, nil, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			s.log.Info("Label state reset", "dataset_id", datasetID, "image_id", imageID)
			return rec, nil
		}
	}
	return nil, &types.ConcurrentUpdateError{ID: imageID.String()}
}

// Consensus computes the one-vote-per-labeler snapshot: each labeler's
// latest event (labeledAt, later append wins ties) contributes one vote
// for its label. A labeler who changed their mind counts only once.
func (s *labelService) Consensus(ctx context.Context, datasetID, imageID uuid.UUID) ([]LabelCount, error) {
	rec, err := s.imageRepo.GetByID(ctx, nil, datasetID, imageID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]types.LabelEvent)
	for _, event := range rec.LabelHistory {
		current, seen := latest[event.LabeledBy]
		if !seen || !event.LabeledAt.Before(current.LabeledAt) {
			latest[event.LabeledBy] = event
		}
	}

	counts := make(map[string]int)
	for _, event := range latest {
		if event.Label != "" {
			counts[event.Label]++
		}
	}

	result := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		result = append(result, LabelCount{Label: label, Count: count})
	}
	// Callers must not rely on ordering; sorted here only to keep the
	// output stable across runs.
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result, nil
}
