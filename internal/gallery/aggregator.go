// internal/gallery/aggregator.go
package gallery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/andresuchdata/gallery-feed/internal/drive"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrMissingFolderID is a configuration error: there is no folder to aggregate.
var ErrMissingFolderID = errors.New("missing Google Drive folder ID configuration")

// ListingError wraps a failed remote listing. It aborts the whole aggregation.
type ListingError struct {
	FolderID string
	Err      error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("list images in folder %s: %v", e.FolderID, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// Lister lists the image files of a folder.
type Lister interface {
	ListImages(ctx context.Context, folderID string, pageSize int) ([]drive.File, error)
}

// Grantor makes a file readable through its link.
type Grantor interface {
	GrantLinkRead(ctx context.Context, fileID string) error
}

// DateExtractor returns a file's capture timestamp, nil when it has none.
type DateExtractor interface {
	CaptureDate(ctx context.Context, fileID string) (*time.Time, error)
}

type AggregatorConfig struct {
	FolderID    string
	PageSize    int
	Concurrency int
}

// Aggregator turns the configured Drive folder into gallery items.
type Aggregator struct {
	cfg       AggregatorConfig
	lister    Lister
	grantor   Grantor
	extractor DateExtractor
	metrics   *Metrics
}

func NewAggregator(cfg AggregatorConfig, lister Lister, grantor Grantor, extractor DateExtractor, metrics *Metrics) *Aggregator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Aggregator{
		cfg:       cfg,
		lister:    lister,
		grantor:   grantor,
		extractor: extractor,
		metrics:   metrics,
	}
}

// outcome is the per-file result; every file gets one before any is filtered.
type outcome struct {
	item domain.GalleryItem
	err  error
}

// Aggregate lists the folder and builds one item per file, in listing order.
// Only a configuration or listing failure is returned; a file whose link grant or
// download fails is logged and left out.
func (a *Aggregator) Aggregate(ctx context.Context) ([]domain.GalleryItem, error) {
	start := time.Now()

	if a.cfg.FolderID == "" {
		log.Error().Msg("gallery: no Google Drive folder ID specified in configuration")
		return nil, ErrMissingFolderID
	}

	files, err := a.lister.ListImages(ctx, a.cfg.FolderID, a.cfg.PageSize)
	if err != nil {
		a.metrics.aggregated(false, time.Since(start))
		return nil, &ListingError{FolderID: a.cfg.FolderID, Err: err}
	}

	if len(files) == 0 {
		log.Info().Str("folder_id", a.cfg.FolderID).Msg("gallery: no image files found in folder")
		a.metrics.aggregated(true, time.Since(start))
		a.metrics.setItems(0)
		return []domain.GalleryItem{}, nil
	}

	log.Info().Int("files", len(files)).Msg("gallery: found images in Google Drive")

	outcomes := make([]outcome, len(files))

	// No shared context: one file failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			item, err := a.processFile(ctx, f)
			outcomes[i] = outcome{item: item, err: err}
			return nil
		})
	}
	_ = g.Wait()

	items := make([]domain.GalleryItem, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for i, o := range outcomes {
		if o.err != nil {
			a.metrics.dropped()
			log.Warn().Err(o.err).
				Str("file_id", files[i].ID).
				Str("name", files[i].Name).
				Msg("gallery: dropping file")
			continue
		}
		if _, dup := seen[o.item.ID]; dup {
			continue
		}
		seen[o.item.ID] = struct{}{}
		items = append(items, o.item)
	}

	a.metrics.aggregated(true, time.Since(start))
	a.metrics.setItems(len(items))
	log.Info().
		Int("items", len(items)).
		Int("dropped", len(files)-len(items)).
		Dur("latency", time.Since(start)).
		Msg("gallery: aggregation complete")

	return items, nil
}

func (a *Aggregator) processFile(ctx context.Context, f drive.File) (domain.GalleryItem, error) {
	if err := a.grantor.GrantLinkRead(ctx, f.ID); err != nil {
		return domain.GalleryItem{}, err
	}

	var taken *time.Time
	if IsJPEG(f.MimeType) {
		t, err := a.extractor.CaptureDate(ctx, f.ID)
		if err != nil {
			return domain.GalleryItem{}, err
		}
		taken = t
	}

	item := NewItem(f)
	item.TakenDate = taken

	log.Debug().
		Str("file_id", f.ID).
		Str("name", f.Name).
		Bool("taken_date", taken != nil).
		Msg("gallery: processed image")

	return item, nil
}

// NewItem maps a Drive file to a gallery item without a capture date.
func NewItem(f drive.File) domain.GalleryItem {
	alt := f.Name
	if alt == "" {
		alt = "Gallery image"
	}
	title := StripExtension(f.Name)
	if title == "" {
		title = "Untitled"
	}

	item := domain.GalleryItem{
		ID:           f.ID,
		DisplaySrc:   drive.DisplayURL(f.ID),
		ThumbnailSrc: drive.ThumbnailURL(f.ID),
		Alt:          alt,
		Title:        title,
	}
	if created, ok := f.Created(); ok {
		item.CreatedTime = &created
	}
	return item
}

var extensionPattern = regexp.MustCompile(`\.[^/.]+$`)

// StripExtension removes the last extension from a file name.
func StripExtension(name string) string {
	return extensionPattern.ReplaceAllString(name, "")
}

var jpegMimeTypes = map[string]struct{}{
	"image/jpeg":  {},
	"image/jpg":   {},
	"image/pjpeg": {},
}

// IsJPEG reports whether the MIME type is a JPEG variant.
func IsJPEG(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	_, ok := jpegMimeTypes[mt]
	return ok
}
