// internal/domain/gallery.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// GalleryItem is one image of the gallery feed.
type GalleryItem struct {
	ID           string     `json:"id"`
	DisplaySrc   string     `json:"src"`
	ThumbnailSrc string     `json:"thumbnail,omitempty"`
	Alt          string     `json:"alt"`
	Title        string     `json:"title"`
	CreatedTime  *time.Time `json:"createdTime,omitempty"`
	TakenDate    *time.Time `json:"takenDate,omitempty"`
}

// HasDate reports whether either date field is present.
func (i GalleryItem) HasDate() bool {
	return i.TakenDate != nil || i.CreatedTime != nil
}

// SortCriterion selects the ordering applied to a feed.
type SortCriterion string

const (
	SortNewest       SortCriterion = "newest"
	SortOldest       SortCriterion = "oldest"
	SortAlphabetical SortCriterion = "alphabetical"
)

// ParseSortCriterion returns the criterion for a label (case-insensitive).
// An empty label means newest.
func ParseSortCriterion(label string) (SortCriterion, error) {
	switch SortCriterion(strings.ToLower(strings.TrimSpace(label))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortAlphabetical:
		return SortAlphabetical, nil
	default:
		return "", fmt.Errorf("unknown sort criterion %q", label)
	}
}
