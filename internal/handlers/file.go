package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelforge-backend/internal/logger"
	"github.com/yungbote/labelforge-backend/internal/platform/blob"
)

type FileHandler struct {
	log       *logger.Logger
	blobStore blob.BlobStore
}

func NewFileHandler(log *logger.Logger, blobStore blob.BlobStore) *FileHandler {
	return &FileHandler{
		log:       log.With("handler", "FileHandler"),
		blobStore: blobStore,
	}
}

// GET /api/files/:fileId
//
// Streams the stored blob without buffering it in memory.
func (h *FileHandler) Stream(c *gin.Context) {
	key := c.Param("fileId")
	info, rc, err := h.blobStore.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("file not found"))
			return
		}
		h.log.Error("Blob read failed", "key", key, "error", err)
		RespondError(c, http.StatusBadGateway, "blob_store_error", err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}
