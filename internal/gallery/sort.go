package gallery

import (
	"slices"
	"strings"

	"github.com/andresuchdata/gallery-feed/internal/domain"
)

// Sort returns a sorted copy of items. The input slice is left untouched and items
// comparing equal keep their input order.
func Sort(items []domain.GalleryItem, criterion domain.SortCriterion) []domain.GalleryItem {
	sorted := slices.Clone(items)
	if sorted == nil {
		sorted = []domain.GalleryItem{}
	}

	switch criterion {
	case domain.SortAlphabetical:
		slices.SortStableFunc(sorted, compareTitle)
	case domain.SortOldest:
		slices.SortStableFunc(sorted, func(a, b domain.GalleryItem) int {
			return compareDates(a, b, false)
		})
	default:
		slices.SortStableFunc(sorted, func(a, b domain.GalleryItem) int {
			return compareDates(a, b, true)
		})
	}
	return sorted
}

// compareDates picks its rule per pair, from what the two items actually carry:
//  1. both have a taken date: compare taken dates
//  2. both have a created time: compare created times
//  3. only one has any date: it goes first for newest, last for oldest
//  4. otherwise: compare titles
//
// An item with only a taken date against one with only a created time matches none
// of 1-3 and is ordered by title.
func compareDates(a, b domain.GalleryItem, newest bool) int {
	dir := 1
	if newest {
		dir = -1
	}

	switch {
	case a.TakenDate != nil && b.TakenDate != nil:
		return dir * a.TakenDate.Compare(*b.TakenDate)
	case a.CreatedTime != nil && b.CreatedTime != nil:
		return dir * a.CreatedTime.Compare(*b.CreatedTime)
	case a.HasDate() && !b.HasDate():
		return dir
	case !a.HasDate() && b.HasDate():
		return -dir
	}
	return compareTitle(a, b)
}

// compareTitle is a case-sensitive byte-wise comparison.
func compareTitle(a, b domain.GalleryItem) int {
	return strings.Compare(a.Title, b.Title)
}
