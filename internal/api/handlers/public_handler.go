package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ssnlakshya/mela/internal/services"
)

// PublicHandler handles the anonymous read endpoints the site consumes.
type PublicHandler struct {
	stallService services.IStallService
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(stallService services.IStallService) *PublicHandler {
	return &PublicHandler{stallService: stallService}
}

// ListStalls handles GET /v1/stalls. An optional category query parameter
// filters the directory; the match is case-insensitive.
func (h *PublicHandler) ListStalls(c *gin.Context) {
	stalls, err := h.stallService.ListByCategory(c.Request.Context(), c.Query("category"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list stalls"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stalls})
}

// GetStallBySlug handles GET /v1/stalls/:slug.
func (h *PublicHandler) GetStallBySlug(c *gin.Context) {
	stall, err := h.stallService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stall not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stall"})
		return
	}

	c.JSON(http.StatusOK, stall.Public())
}
