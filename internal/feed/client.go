// Package feed is the caller-side view of a gallery server: its own cache tier in front
// of GET /api/gallery.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/andresuchdata/gallery-feed/internal/gallery"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CallerTier is the name of the client-side cache tier.
const CallerTier = "caller"

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 32 << 20
)

// ErrTimeout is returned when the gallery server does not answer in time.
var ErrTimeout = errors.New("request timed out, please try again")

// Client fetches the gallery feed from a server and caches it for the caller.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	now      func() time.Time
	tierOpts []cache.Option
	tier     *cache.Tier
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds a single fetch. Zero keeps the default of ten seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock is shared with the cache tier.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
		c.tierOpts = append(c.tierOpts, cache.WithClock(now))
	}
}

// WithTierOptions passes extra options (metrics, snapshot store) to the cache tier.
func WithTierOptions(opts ...cache.Option) Option {
	return func(c *Client) { c.tierOpts = append(c.tierOpts, opts...) }
}

func NewClient(baseURL string, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tier = cache.NewTier(CallerTier, ttl, c.fetch, c.tierOpts...)
	return c
}

type forceFreshKey struct{}

// Items returns the cached feed, fetching from the server when the cache is not VALID
// or fresh is set. Only a forced call asks the server to bypass its own cache.
// A failed fetch keeps serving the previous items; see Snapshot.
func (c *Client) Items(ctx context.Context, fresh bool) ([]domain.GalleryItem, error) {
	if fresh {
		ctx = context.WithValue(ctx, forceFreshKey{}, true)
	}
	return c.tier.Get(ctx, fresh)
}

func forcedFresh(ctx context.Context) bool {
	forced, _ := ctx.Value(forceFreshKey{}).(bool)
	return forced
}

// Sorted is Items ordered by criterion. The cached order is unchanged.
func (c *Client) Sorted(ctx context.Context, fresh bool, criterion domain.SortCriterion) ([]domain.GalleryItem, error) {
	items, err := c.Items(ctx, fresh)
	if err != nil {
		return items, err
	}
	return gallery.Sort(items, criterion), nil
}

// Result is what a caller renders: the items it has, when they were fetched and the
// last refresh failure, if any.
type Result struct {
	Items     []domain.GalleryItem
	FetchedAt time.Time
	State     cache.State
	LastError error
}

func (c *Client) Snapshot() Result {
	r := Result{
		Items:     []domain.GalleryItem{},
		State:     c.tier.State(),
		LastError: c.tier.LastError(),
	}
	if e := c.tier.Entry(); e != nil {
		r.Items = e.Items
		r.FetchedAt = e.FetchedAt
	}
	return r
}

// StartAutoRefresh forces a refresh every interval until ctx is done. The returned
// channel is closed once the loop has exited.
func (c *Client) StartAutoRefresh(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				items, err := c.Items(ctx, true)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Warn().Err(err).Str("tier", CallerTier).Msg("feed: auto refresh failed")
					continue
				}
				log.Debug().Int("items", len(items)).Msg("feed: auto refresh")
			}
		}
	}()
	return done
}

func (c *Client) Tier() *cache.Tier { return c.tier }

func (c *Client) fetch(ctx context.Context) ([]domain.GalleryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint, err := c.galleryURL(forcedFresh(ctx))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build gallery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")

	log.Debug().Str("url", endpoint).Msg("feed: fetching gallery")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("fetch gallery: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read gallery response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch gallery images: %s%s", resp.Status, serverMessage(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("invalid data format received from gallery: expected an array")
	}

	var items []domain.GalleryItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode gallery response: %w", err)
	}

	log.Info().Int("items", len(items)).Msg("feed: received gallery")
	return items, nil
}

func (c *Client) galleryURL(forceFresh bool) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/gallery")
	if err != nil {
		return "", fmt.Errorf("invalid gallery base url %q: %w", c.baseURL, err)
	}
	q := u.Query()
	if forceFresh {
		q.Set("fresh", "true")
	}
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// serverMessage extracts the error field of a JSON error body, if present.
func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return ""
	}
	return ": " + payload.Error
}
