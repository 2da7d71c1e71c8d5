package congress

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/congress-api-client/pkg/hydration"
	"github.com/Sternrassler/congress-api-client/pkg/pagination"
	"github.com/Sternrassler/congress-api-client/pkg/record"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownEntity is returned for entity names outside Entities.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidQuery is returned when a query cannot be turned into list requests.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNoDetail is returned when a detail response lacks the expected object.
	ErrNoDetail = errors.New("detail payload missing")
)

// Query selects what Iter streams.
type Query struct {
	Entity Entity

	// Chamber narrows hearings, committee meetings, committees and members.
	Chamber string

	// Congress selects one congress. CongressRange, when non-zero, selects an
	// inclusive range instead and may be given in either order.
	Congress      int
	CongressRange [2]int

	// Hydrate replaces each list item by the item merged with its detail record.
	Hydrate bool

	// Where filters records after fetch: the list item when not hydrating,
	// the enriched record otherwise. Nil keeps everything.
	Where func(record.RawRecord) bool

	// Bills
	BillType        string
	IntroducedStart string
	IntroducedEnd   string

	// IncludeCosponsors makes bill and amendment hydration also walk the
	// cosponsor sub-resource (and for bills, actions and amendments).
	IncludeCosponsors bool

	// Amendments
	AmendmentType string

	// Members
	State    string
	District string
	Current  *bool

	// ContinueOnError skips items whose hydration fails instead of ending the stream.
	ContinueOnError bool

	// Limit caps the number of records yielded. Zero means no cap.
	Limit int

	// Workers overrides the service's hydration fan-out when positive.
	Workers int

	// ResumeKey enables cursor checkpoints; each congress gets its own key.
	ResumeKey string
}

// Congresses returns the congress numbers the query lists, ascending.
func (q Query) Congresses() []int {
	a, b := q.CongressRange[0], q.CongressRange[1]
	if a > 0 || b > 0 {
		if a > b {
			a, b = b, a
		}
		out := make([]int, 0, b-a+1)
		for cg := a; cg <= b; cg++ {
			out = append(out, cg)
		}
		return out
	}
	if q.Congress > 0 {
		return []int{q.Congress}
	}
	return nil
}

// Validate checks the query before any request is made.
func (q Query) Validate() error {
	if _, err := ParseEntity(string(q.Entity)); err != nil {
		return err
	}
	if q.Entity.CongressScoped() {
		if r := q.CongressRange; (r[0] != 0 || r[1] != 0) && (r[0] <= 0 || r[1] <= 0) {
			return fmt.Errorf("%w: congress range needs two positive bounds (got %v)", ErrInvalidQuery, r)
		}
		if len(q.Congresses()) == 0 {
			return fmt.Errorf("%w: provide congress or congress range for %s", ErrInvalidQuery, q.Entity)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must be >= 0 (got %d)", ErrInvalidQuery, q.Limit)
	}
	return nil
}

// Config holds service configuration.
type Config struct {
	// PageSize for list traversals
	PageSize int

	// Workers bounds concurrent detail fetches during hydration
	Workers int

	// Store enables resumable traversals (optional)
	Store pagination.CursorStore
}

// DefaultConfig returns sequential hydration with the maximum page size.
func DefaultConfig() Config {
	return Config{
		PageSize: pagination.DefaultPageSize,
		Workers:  1,
	}
}

// Validate checks the page size against the upstream limit and the worker count.
func (c Config) Validate() error {
	if c.PageSize < 1 || c.PageSize > pagination.MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d (got %d)", pagination.MaxPageSize, c.PageSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", c.Workers)
	}
	return nil
}

// Service streams entities through the pagination walker and hydration orchestrator.
type Service struct {
	fetcher pagination.Fetcher
	walker  *pagination.Walker
	config  Config
	logger  zerolog.Logger
}

// NewService creates a service on top of a fetcher, usually *client.Client.
func NewService(fetcher pagination.Fetcher, config Config, logger zerolog.Logger) *Service {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Service{
		fetcher: fetcher,
		walker:  pagination.NewWalker(fetcher, pagination.Config{PageSize: config.PageSize, Store: config.Store}, logger),
		config:  config,
		logger:  logger.With().Str("component", "congress").Logger(),
	}
}

// Iter streams records for q. A validation error, a failed page or (without
// ContinueOnError) a failed hydration is yielded as the final element.
func (s *Service) Iter(ctx context.Context, q Query) iter.Seq2[record.RawRecord, error] {
	return func(yield func(record.RawRecord, error) bool) {
		if err := q.Validate(); err != nil {
			yield(nil, err)
			return
		}

		s.logger.Debug().
			Str("entity", string(q.Entity)).
			Ints("congresses", q.Congresses()).
			Bool("hydrate", q.Hydrate).
			Bool("continue_on_error", q.ContinueOnError).
			Int("limit", q.Limit).
			Msg("Streaming entities")

		stream := s.records(ctx, q)
		yielded := 0
		for rec, err := range stream {
			if err != nil {
				yield(nil, err)
				return
			}
			if q.Where != nil && !q.Where(rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
			yielded++
			if q.Limit > 0 && yielded >= q.Limit {
				return
			}
		}
	}
}

// Typed streams Iter's records mapped to the entity's struct.
func (s *Service) Typed(ctx context.Context, q Query) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for rec, err := range s.Iter(ctx, q) {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := Map(q.Entity, rec)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// records is the list stream, hydrated when requested. Skipped items are
// dropped here; the orchestrator has already logged them.
func (s *Service) records(ctx context.Context, q Query) iter.Seq2[record.RawRecord, error] {
	list := s.list(ctx, q)
	if !q.Hydrate {
		return list
	}

	workers := s.config.Workers
	if q.Workers > 0 {
		workers = q.Workers
	}
	opts := hydration.Options{
		ContinueOnError: q.ContinueOnError,
		Workers:         workers,
	}
	// Every enriched record counts toward Limit only when nothing is filtered.
	if q.Where == nil {
		opts.Limit = q.Limit
	}
	orch := hydration.New(s.hydrator(q), opts, s.logger)

	return func(yield func(record.RawRecord, error) bool) {
		for outcome, err := range orch.Run(ctx, list) {
			if err != nil {
				yield(nil, err)
				return
			}
			rec, ok := outcome.Enriched()
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// list concatenates one traversal per congress in ascending order, or runs
// the single general traversal for committees and members.
func (s *Service) list(ctx context.Context, q Query) iter.Seq2[record.RawRecord, error] {
	return func(yield func(record.RawRecord, error) bool) {
		if !q.Entity.CongressScoped() {
			ep, err := q.generalEndpoint()
			if err != nil {
				yield(nil, err)
				return
			}
			ep.ResumeKey = q.ResumeKey
			for item, err := range s.walker.Walk(ctx, ep) {
				if !yield(item, err) || err != nil {
					return
				}
			}
			return
		}

		for _, cg := range q.Congresses() {
			ep, err := q.listEndpoint(cg)
			if err != nil {
				yield(nil, err)
				return
			}
			if q.ResumeKey != "" {
				ep.ResumeKey = fmt.Sprintf("%s:%d", q.ResumeKey, cg)
			}
			for item, err := range s.walker.Walk(ctx, ep) {
				if !yield(item, err) || err != nil {
					return
				}
			}
		}
	}
}
