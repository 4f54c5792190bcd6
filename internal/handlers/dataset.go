package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/middleware"
	"github.com/yungbote/labelforge-backend/internal/services"
	"github.com/yungbote/labelforge-backend/internal/types"
)

type DatasetHandler struct {
	log              *logger.Logger
	datasetService   services.DatasetService
	ingestionService services.IngestionService
	labelService     services.LabelService
	exportService    services.ExportService
}

func NewDatasetHandler(log *logger.Logger, dsvc services.DatasetService, isvc services.IngestionService, lsvc services.LabelService, esvc services.ExportService) *DatasetHandler {
	return &DatasetHandler{
		log:              log.With("handler", "DatasetHandler"),
		datasetService:   dsvc,
		ingestionService: isvc,
		labelService:     lsvc,
		exportService:    esvc,
	}
}

type createDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"userId"`
}

// POST /api/datasets
func (h *DatasetHandler) Create(c *gin.Context) {
	var req createDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	ownerID := req.UserID
	if ownerID == "" {
		ownerID = middleware.CallerID(c)
	}

	ds, err := h.datasetService.Create(c.Request.Context(), req.Name, ownerID, req.Description)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ds)
}

// GET /api/datasets
func (h *DatasetHandler) List(c *gin.Context) {
	newestFirst := c.Query("sort") == "newest"
	datasets, err := h.datasetService.List(c.Request.Context(), newestFirst)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, datasets)
}

// GET /api/datasets/:id
func (h *DatasetHandler) Get(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	ds, err := h.datasetService.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, ds)
}

type renameDatasetRequest struct {
	Name string `json:"name"`
}

// PUT /api/datasets/:id
func (h *DatasetHandler) Rename(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	var req renameDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	ds, err := h.datasetService.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, ds)
}

// POST /api/datasets/:id/upload
//
// Multipart batch upload. Files arrive under "images"; the optional
// label/labeledBy/labeledAt/boundingBox fields may each be sent once
// (broadcast to the whole batch) or once per file.
func (h *DatasetHandler) Upload(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	fileHeaders := form.File["images"]
	files := make([]services.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		files = append(files, services.UploadFile{
			Data:         data,
			OriginalName: fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
		})
	}

	boxes, err := perFileBoxes(form.Value)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	meta := services.IngestMeta{
		Label:       types.PerFileStrings(form.Value["label"]),
		LabeledBy:   types.PerFileStrings(form.Value["labeledBy"]),
		LabeledAt:   types.PerFileStrings(form.Value["labeledAt"]),
		BoundingBox: boxes,
		IsCropped:   len(form.Value["isCropped"]) > 0 && form.Value["isCropped"][0] == "true",
	}

	records, err := h.ingestionService.Ingest(c.Request.Context(), id, middleware.CallerID(c), files, meta)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"message": "Images uploaded successfully",
		"images":  records,
	})
}

// GET /api/datasets/:id/images
func (h *DatasetHandler) ListImages(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	images, err := h.exportService.ListImages(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, images)
}

// GET /api/datasets/:id/labeled?page=N
func (h *DatasetHandler) ListLabeled(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	page := 0
	if raw := c.Query("page"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &page); err != nil {
			page = 0
		}
	}
	result, err := h.exportService.ListLabeled(c.Request.Context(), id, page)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

type saveLabelRequest struct {
	Label       string                  `json:"label"`
	LabeledBy   string                  `json:"labeledBy"`
	BoundingBox *types.BoundingBoxInput `json:"boundingBox"`
}

// PUT /api/datasets/:id/images/:imageId
func (h *DatasetHandler) SaveLabel(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}
	var req saveLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	labeledBy := req.LabeledBy
	if labeledBy == "" {
		labeledBy = middleware.CallerID(c)
	}

	rec, err := h.labelService.Append(c.Request.Context(), id, imageID, req.Label, labeledBy, req.BoundingBox)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, rec)
}

// DELETE /api/datasets/:id/images/:imageId
//
// Clears label state only. The record and its blob survive; this is a
// soft reset, not a delete.
func (h *DatasetHandler) ResetLabel(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}
	if _, err := h.labelService.Reset(c.Request.Context(), id, imageID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"message":   "Image label information deleted successfully",
		"datasetId": id.String(),
		"imageId":   imageID.String(),
	})
}

// GET /api/datasets/:id/images/:imageId/label-stats
func (h *DatasetHandler) LabelStats(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	imageID, ok := h.imageID(c)
	if !ok {
		return
	}
	stats, err := h.labelService.Consensus(c.Request.Context(), id, imageID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, stats)
}

// GET /api/datasets/:id/stats
func (h *DatasetHandler) Stats(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	stats, err := h.datasetService.Stats(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, stats)
}

// GET /api/datasets/:id/export
func (h *DatasetHandler) ExportCSV(c *gin.Context) {
	id, ok := h.datasetID(c)
	if !ok {
		return
	}
	name, csv, err := h.exportService.ExportCSV(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_labeled_images.csv", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

// DELETE /api/admin/datasets
func (h *DatasetHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.datasetService.DeleteAll(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"message": "All datasets deleted",
		"count":   deleted,
	})
}

func (h *DatasetHandler) datasetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid dataset id format"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *DatasetHandler) imageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid image id format"))
		return uuid.Nil, false
	}
	return id, true
}

// perFileBoxes decodes boundingBox form values, accepting the legacy
// "coordinates" field name as a fallback.
func perFileBoxes(values map[string][]string) (types.PerFile[*types.BoundingBoxInput], error) {
	raw := values["boundingBox"]
	if len(raw) == 0 {
		raw = values["coordinates"]
	}
	parsed := make([]*types.BoundingBoxInput, len(raw))
	for i, v := range raw {
		in, err := types.ParseBoundingBoxInput(v)
		if err != nil {
			return types.PerFile[*types.BoundingBoxInput]{}, err
		}
		parsed[i] = in
	}
	switch len(parsed) {
	case 0:
		return types.PerFile[*types.BoundingBoxInput]{}, nil
	case 1:
		return types.Scalar(parsed[0]), nil
	default:
		return types.PerEach(parsed), nil
	}
}
