package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ssnlakshya/mela/internal/storage"
)

// MediaHandler proxies stall media through the API so the bucket stays
// private.
type MediaHandler struct {
	storage storage.IMediaStorage
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaStorage storage.IMediaStorage) *MediaHandler {
	return &MediaHandler{storage: mediaStorage}
}

// GetMedia handles GET /v1/media?key=... and streams the object to the
// client.
func (h *MediaHandler) GetMedia(c *gin.Context) {
	key := c.Query("key")

	body, contentType, length, err := h.storage.Fetch(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media key"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch media"})
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "public, max-age=3600")
	c.DataFromReader(http.StatusOK, length, contentType, body, nil)
}

// UploadMedia handles POST /v1/upload?folder=... with the raw file as the
// request body and the original name in X-File-Name.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	filename := c.GetHeader("X-File-Name")
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-File-Name header required"})
		return
	}

	key, err := storage.BuildObjectKey(c.Query("folder"), filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid folder or filename"})
		return
	}

	url, err := h.storage.Upload(c.Request.Context(), key, c.ContentType(), c.Request.Body)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media key"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload media"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "url": url})
}
