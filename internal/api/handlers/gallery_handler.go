package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/andresuchdata/gallery-feed/internal/gallery"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GalleryReader is the process cache tier as seen by the HTTP layer.
type GalleryReader interface {
	Items(ctx context.Context, fresh bool) ([]domain.GalleryItem, error)
}

type GalleryHandler struct {
	gallery GalleryReader
}

func NewGalleryHandler(g GalleryReader) *GalleryHandler {
	return &GalleryHandler{gallery: g}
}

// GetGallery returns the gallery items. fresh=true bypasses the cache; sort is optional
// and, when absent, the listing order is kept.
func (h *GalleryHandler) GetGallery(c *gin.Context) {
	var (
		criterion domain.SortCriterion
		sorted    bool
	)
	if raw, ok := c.GetQuery("sort"); ok {
		parsed, err := domain.ParseSortCriterion(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort", "details": err.Error()})
			return
		}
		criterion, sorted = parsed, true
	}

	items, err := h.gallery.Items(c.Request.Context(), isTrue(c.Query("fresh")))
	if err != nil {
		log.Error().Err(err).Msg("gallery: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch images",
			"details": err.Error(),
		})
		return
	}

	if sorted {
		items = gallery.Sort(items, criterion)
	}

	if len(items) == 0 {
		log.Info().Msg("gallery: no images found, check the folder ID and its permissions")
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, items)
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
