package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"linklet/internal/models"
	"linklet/internal/service"
	"linklet/internal/store"

	"github.com/gin-gonic/gin"
)

type ShortLinkController struct {
	service service.ShortLinkService
}

func NewShortLinkController(svc service.ShortLinkService) *ShortLinkController {
	return &ShortLinkController{
		service: svc,
	}
}

// Create handles POST /api/v1/shorten
func (sc *ShortLinkController) Create(c *gin.Context) {
	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	meta := models.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	response, err := sc.service.Create(c.Request.Context(), &req, meta)
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Redirect handles GET /:code
func (sc *ShortLinkController) Redirect(c *gin.Context) {
	target, err := sc.service.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, target)
}

// ResolveJSON handles GET /api/v1/redirect/:code - returns the target as
// JSON instead of redirecting
func (sc *ShortLinkController) ResolveJSON(c *gin.Context) {
	target, err := sc.service.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target_url": target,
	})
}

// Info handles GET /api/v1/info/:code - returns link statistics
func (sc *ShortLinkController) Info(c *gin.Context) {
	stats, err := sc.service.Info(c.Request.Context(), c.Param("code"))
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// List handles GET /api/v1/urls
func (sc *ShortLinkController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "is_active must be a boolean",
			})
			return
		}
		isActive = &active
	}

	response, err := sc.service.List(c.Request.Context(), page, size, isActive)
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateExpiry handles PATCH /api/v1/urls/:code/expiry. A null expires_at
// clears the expiry.
func (sc *ShortLinkController) UpdateExpiry(c *gin.Context) {
	var req models.UpdateExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "expires_at must be an RFC 3339 timestamp",
			})
			return
		}
		utc := parsed.UTC()
		expiresAt = &utc
	}

	response, err := sc.service.UpdateExpiry(c.Request.Context(), c.Param("code"), expiresAt)
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Deactivate handles PATCH /api/v1/urls/:code/deactivate
func (sc *ShortLinkController) Deactivate(c *gin.Context) {
	if err := sc.service.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Short link deactivated",
	})
}

// Delete handles DELETE /api/v1/urls/:code
func (sc *ShortLinkController) Delete(c *gin.Context) {
	if err := sc.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Short link deleted",
	})
}

// Cleanup handles POST /api/v1/admin/cleanup - deactivates expired links now
func (sc *ShortLinkController) Cleanup(c *gin.Context) {
	count, err := sc.service.CleanupExpired(c.Request.Context())
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deactivated": count,
	})
}

// writeError maps service errors onto HTTP statuses
func (sc *ShortLinkController) writeError(c *gin.Context, err error) {
	var conflict *store.ConflictError
	switch {
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrTargetTooLong),
		errors.Is(err, service.ErrInvalidAlias):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": conflict.Error(),
			"field": conflict.Field,
			"value": conflict.Value,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Short link not found"})
	case errors.Is(err, service.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Short link has expired"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
