// Package metadata reads capture timestamps embedded in image files.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
)

// exifTimeLayout is the EXIF 2.x date format. Values carry no zone and are read as UTC.
const exifTimeLayout = "2006:01:02 15:04:05"

// maxImageBytes bounds how much of a download is buffered for parsing.
const maxImageBytes = 64 << 20

// URLFunc maps a file id to a URL serving the file's original bytes.
type URLFunc func(fileID string) string

// Extractor downloads a file and parses its EXIF capture time.
type Extractor struct {
	client *http.Client
	urlFor URLFunc
}

func NewExtractor(client *http.Client, urlFor URLFunc) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{client: client, urlFor: urlFor}
}

// CaptureDate returns the capture timestamp of fileID, or nil when the file has none.
//
// A non-2xx answer and unparseable content are both "no date" and produce (nil, nil).
// Only a transport failure, where no answer arrived at all, is reported as an error; the
// aggregator drops the item in that case instead of publishing it without a date.
func (e *Extractor) CaptureDate(ctx context.Context, fileID string) (*time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.urlFor(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request for %s: %w", fileID, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Str("file_id", fileID).Int("status", resp.StatusCode).Msg("metadata: download not ok, no capture date")
		return nil, nil
	}

	return ParseCaptureDate(io.LimitReader(resp.Body, maxImageBytes)), nil
}

// ParseCaptureDate reads EXIF from r. DateTimeOriginal is preferred, the IFD0 DateTime
// (last modification) is the fallback. It never fails: any problem yields nil.
func ParseCaptureDate(r io.Reader) (taken *time.Time) {
	defer func() {
		// goexif can panic on truncated or hostile input
		if rec := recover(); rec != nil {
			log.Debug().Interface("panic", rec).Msg("metadata: exif decoder panicked")
			taken = nil
		}
	}()

	x, err := exif.Decode(r)
	if err != nil && x == nil {
		return nil
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		if t, ok := tagTime(x, field); ok {
			return &t
		}
	}
	return nil
}

func tagTime(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}, false
	}
	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if raw == "" {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(exifTimeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	// whole seconds since the epoch
	return time.Unix(t.Unix(), 0).UTC(), true
}
