package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ssnlakshya/mela/internal/api/middleware"
	"github.com/ssnlakshya/mela/internal/config"
	"github.com/ssnlakshya/mela/internal/models"
	"github.com/ssnlakshya/mela/internal/services"
)

// StallHandler handles the authenticated owner portal endpoints.
type StallHandler struct {
	cfg          *config.Config
	stallService services.IStallService
}

// NewStallHandler creates a new StallHandler.
func NewStallHandler(cfg *config.Config, stallService services.IStallService) *StallHandler {
	return &StallHandler{cfg: cfg, stallService: stallService}
}

func (h *StallHandler) ownerEmail(c *gin.Context) (string, bool) {
	email := c.GetString(middleware.ContextKeyOwnerEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return "", false
	}
	return email, true
}

// GetMyStall handles GET /v1/stall. Returns the caller's own listing,
// including fields the public endpoints hide.
func (h *StallHandler) GetMyStall(c *gin.Context) {
	email, ok := h.ownerEmail(c)
	if !ok {
		return
	}

	stall, err := h.stallService.FetchActive(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No stall found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stall"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stall":    stall,
		"shortUrl": h.cfg.ShortLinkBaseURL + "/" + stall.Slug,
	})
}

// UpsertStall handles POST and PUT /v1/stall. Both verbs reconcile the
// caller's submission against their single listing; the service decides
// create-vs-update.
func (h *StallHandler) UpsertStall(c *gin.Context) {
	email, ok := h.ownerEmail(c)
	if !ok {
		return
	}

	var payload models.StallPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	stall, shortURL, err := h.stallService.Reconcile(c.Request.Context(), email, payload)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
			return
		}
		if errors.Is(err, services.ErrShortLinkSync) {
			// The listing saved; only the short link is behind. Report the
			// save and the degraded link in one response.
			c.JSON(http.StatusBadGateway, gin.H{
				"stall":    stall,
				"shortUrl": shortURL,
				"warning":  "Stall saved, but the short link could not be updated yet",
			})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save stall"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stall":    stall,
		"shortUrl": shortURL,
	})
}

// DeleteStall handles DELETE /v1/stall. Idempotent.
func (h *StallHandler) DeleteStall(c *gin.Context) {
	email, ok := h.ownerEmail(c)
	if !ok {
		return
	}

	deleted, err := h.stallService.DeleteAll(c.Request.Context(), email)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete stall"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
