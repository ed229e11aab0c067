// Package order records customer orders in a spreadsheet.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingFields is returned when any of the order fields is blank.
var ErrMissingFields = errors.New("missing required fields")

// ErrNotConfigured is returned by a Service built without a log.
var ErrNotConfigured = errors.New("order log is not configured")

// timestampLayout is RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Order struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate reports ErrMissingFields when a field is empty or whitespace.
func (o Order) Validate() error {
	for _, v := range []string{o.Name, o.Email, o.Phone, o.Message} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// Recorder persists order rows.
type Recorder interface {
	EnsureSheet(ctx context.Context) error
	Append(ctx context.Context, row []string) error
}

type Service struct {
	log Recorder
	now func() time.Time
}

func NewService(log Recorder) *Service {
	return &Service{log: log, now: time.Now}
}

// WithClock replaces time.Now for the timestamp column.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit validates the order, stamps it and appends it to the log. It returns the
// timestamp that was written.
func (s *Service) Submit(ctx context.Context, o Order) (time.Time, error) {
	if err := o.Validate(); err != nil {
		return time.Time{}, err
	}
	if s.log == nil {
		return time.Time{}, ErrNotConfigured
	}

	stamp := s.now().UTC()

	if err := s.log.EnsureSheet(ctx); err != nil {
		return time.Time{}, fmt.Errorf("prepare order sheet: %w", err)
	}

	row := []string{stamp.Format(timestampLayout), o.Name, o.Email, o.Phone, o.Message}
	if err := s.log.Append(ctx, row); err != nil {
		return time.Time{}, err
	}
	return stamp, nil
}
