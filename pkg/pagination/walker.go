package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/congress-api-client/pkg/record"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_pages_fetched_total",
		Help: "Total list pages fetched by data key",
	}, []string{"data_key"})

	itemsYieldedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_items_yielded_total",
		Help: "Total list items yielded to consumers by data key",
	}, []string{"data_key"})
)

// MaxPageSize is the largest page the upstream serves.
const MaxPageSize = 250

// DefaultPageSize requests full pages.
const DefaultPageSize = MaxPageSize

// Fetcher issues single-page requests. *client.Client implements it.
type Fetcher interface {
	// Get fetches a path relative to the API root with query params.
	Get(ctx context.Context, path string, params url.Values) (record.RawRecord, error)
	// GetURL fetches an absolute URL such as a next-page link.
	GetURL(ctx context.Context, rawURL string) (record.RawRecord, error)
}

// Endpoint describes one list traversal.
type Endpoint struct {
	// Path relative to the API root, e.g. "bill/118/hr".
	Path string

	// DataKey names the items block in each page, e.g. "bills".
	DataKey string

	// Params are the base filters sent with the first page.
	Params url.Values

	// Limit caps the number of items yielded. Zero or negative means no cap.
	Limit int

	// ResumeKey identifies the traversal in the cursor store. Empty disables
	// checkpointing.
	ResumeKey string
}

// Config holds walker configuration.
type Config struct {
	// PageSize is sent as the limit parameter on the first page
	PageSize int

	// Store persists next-page cursors for resumable traversals (optional)
	Store CursorStore
}

// DefaultConfig returns a walker configuration with the maximum page size and no store.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize}
}

// Walker follows next-page cursors across a list endpoint.
type Walker struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewWalker creates a new walker.
func NewWalker(fetcher Fetcher, config Config, logger zerolog.Logger) *Walker {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	logger = logger.With().Str("component", "pagination").Logger()
	switch {
	case config.PageSize <= 0:
		config.PageSize = DefaultPageSize
	case config.PageSize > MaxPageSize:
		logger.Warn().
			Int("page_size", config.PageSize).
			Int("max", MaxPageSize).
			Msg("Page size above upstream maximum, clamping")
		config.PageSize = MaxPageSize
	}
	return &Walker{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// Walk returns a lazy sequence of the endpoint's items in server order. A page
// failure is yielded once as the final element. The sequence can be iterated
// again to restart the traversal from its beginning or its checkpoint.
func (w *Walker) Walk(ctx context.Context, ep Endpoint) iter.Seq2[record.RawRecord, error] {
	return func(yield func(record.RawRecord, error) bool) {
		t := &traversal{
			walker:  w,
			ep:      ep,
			id:      uuid.NewString(),
			started: time.Now(),
			seen:    make(map[string]struct{}),
		}
		t.logger = w.logger.With().
			Str("traversal_id", t.id).
			Str("endpoint", ep.Path).
			Str("data_key", ep.DataKey).
			Logger()
		t.run(ctx, yield)
	}
}

// Collect drains a sequence into a slice, stopping at the first error.
func Collect(seq iter.Seq2[record.RawRecord, error]) ([]record.RawRecord, error) {
	var out []record.RawRecord
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// traversal is the state of one Walk iteration.
type traversal struct {
	walker  *Walker
	ep      Endpoint
	id      string
	logger  zerolog.Logger
	started time.Time

	seen    map[string]struct{}
	pages   int
	yielded int
}

func (t *traversal) run(ctx context.Context, yield func(record.RawRecord, error) bool) {
	if t.limitReached() {
		return
	}

	cursor := t.loadCursor(ctx)

	for {
		page, err := t.fetch(ctx, cursor)
		if err != nil {
			t.logger.Warn().
				Err(err).
				Int("page", t.pages+1).
				Int("items", t.yielded).
				Msg("Page fetch failed, aborting traversal")
			yield(nil, err)
			return
		}
		t.pages++
		pagesFetchedTotal.WithLabelValues(t.ep.DataKey).Inc()

		items := record.Items(page[t.ep.DataKey])
		t.logger.Debug().
			Int("page", t.pages).
			Int("items", len(items)).
			Msg("Page fetched")

		for _, item := range items {
			t.yielded++
			itemsYieldedTotal.WithLabelValues(t.ep.DataKey).Inc()
			if !yield(item, nil) {
				t.logger.Debug().Int("items", t.yielded).Msg("Consumer stopped traversal")
				return
			}
			if t.limitReached() {
				t.logger.Debug().
					Int("limit", t.ep.Limit).
					Int("pages", t.pages).
					Msg("Item limit reached, stopping traversal")
				return
			}
		}

		next, ok := t.nextCursor(page)
		if !ok {
			t.clearCursor(ctx)
			t.logger.Info().
				Int("pages", t.pages).
				Int("items", t.yielded).
				Dur("duration", time.Since(t.started)).
				Msg("Traversal complete")
			return
		}
		t.saveCursor(ctx, next)
		cursor = next
	}
}

// fetch requests the first page when cursor is empty, otherwise the cursor URL.
func (t *traversal) fetch(ctx context.Context, cursor string) (record.RawRecord, error) {
	if cursor == "" {
		params := url.Values{}
		for key, values := range t.ep.Params {
			params[key] = append([]string(nil), values...)
		}
		params.Set("limit", strconv.Itoa(t.walker.config.PageSize))

		page, err := t.walker.fetcher.Get(ctx, t.ep.Path, params)
		if err != nil {
			return nil, fmt.Errorf("fetch first page of %s: %w", t.ep.Path, err)
		}
		return page, nil
	}

	page, err := t.walker.fetcher.GetURL(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d of %s: %w", t.pages+1, t.ep.Path, err)
	}
	return page, nil
}

// nextCursor extracts pagination.next. A missing or empty pagination block, a
// null next, or a link already visited in this traversal ends the walk.
func (t *traversal) nextCursor(page record.RawRecord) (string, bool) {
	pag := page.Map("pagination")
	if len(pag) == 0 {
		t.logger.Debug().Int("page", t.pages).Msg("No pagination block, last page")
		return "", false
	}

	next := StripAPIKey(pag.String("next"))
	if next == "" {
		return "", false
	}
	if _, dup := t.seen[next]; dup {
		t.logger.Warn().
			Str("next", next).
			Int("page", t.pages).
			Msg("Server repeated a next link, stopping traversal")
		return "", false
	}
	t.seen[next] = struct{}{}
	return next, true
}

func (t *traversal) limitReached() bool {
	return t.ep.Limit > 0 && t.yielded >= t.ep.Limit
}

func (t *traversal) store() CursorStore {
	if t.ep.ResumeKey == "" {
		return nil
	}
	return t.walker.config.Store
}

func (t *traversal) loadCursor(ctx context.Context) string {
	store := t.store()
	if store == nil {
		return ""
	}

	cursor, err := store.Load(ctx, t.ep.ResumeKey)
	switch {
	case errors.Is(err, ErrNoCursor):
		return ""
	case err != nil:
		t.logger.Warn().Err(err).Str("resume_key", t.ep.ResumeKey).Msg("Failed to load cursor, starting from first page")
		return ""
	}

	t.seen[cursor] = struct{}{}
	t.logger.Info().Str("resume_key", t.ep.ResumeKey).Str("cursor", cursor).Msg("Resuming traversal from checkpoint")
	return cursor
}

func (t *traversal) saveCursor(ctx context.Context, cursor string) {
	store := t.store()
	if store == nil {
		return
	}
	if err := store.Save(ctx, t.ep.ResumeKey, cursor); err != nil {
		t.logger.Warn().Err(err).Str("resume_key", t.ep.ResumeKey).Msg("Failed to checkpoint cursor")
	}
}

func (t *traversal) clearCursor(ctx context.Context) {
	store := t.store()
	if store == nil {
		return
	}
	if err := store.Clear(ctx, t.ep.ResumeKey); err != nil {
		t.logger.Warn().Err(err).Str("resume_key", t.ep.ResumeKey).Msg("Failed to clear cursor")
	}
}

// StripAPIKey removes the api_key query parameter so cursors can be logged and
// persisted. Unparseable input is returned unchanged.
func StripAPIKey(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has("api_key") {
		return rawURL
	}
	q.Del("api_key")
	u.RawQuery = q.Encode()
	return u.String()
}
