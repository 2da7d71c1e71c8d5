package hydration

import (
	"context"
	"errors"
	"iter"

	"github.com/Sternrassler/congress-api-client/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for hydration.
var hydrationOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "congress_hydration_outcomes_total",
	Help: "Total hydration results by outcome (enriched, skipped, failed)",
}, []string{"outcome"})

// Func fetches the detail payload for one list record. The orchestrator
// merges the returned detail into the record.
type Func func(ctx context.Context, item record.RawRecord) (record.RawRecord, error)

// Options controls the error policy and fan-out.
type Options struct {
	// ContinueOnError turns item failures into Skipped outcomes instead of
	// ending the stream.
	ContinueOnError bool

	// Workers bounds concurrent hydrate calls. Values below 2 hydrate
	// sequentially on the consumer's goroutine.
	Workers int

	// Limit ends the stream after this many enriched outcomes. It also caps
	// read-ahead to the enriched outcomes still missing, so no input is pulled
	// past the limit. Zero means no limit.
	Limit int
}

// Orchestrator drives a hydrate function over a record stream.
type Orchestrator struct {
	fn     Func
	opts   Options
	logger zerolog.Logger
}

// New creates an orchestrator.
func New(fn Func, opts Options, logger zerolog.Logger) *Orchestrator {
	if fn == nil {
		panic("hydrate func cannot be nil")
	}
	return &Orchestrator{
		fn:     fn,
		opts:   opts,
		logger: logger.With().Str("component", "hydration").Logger(),
	}
}

// Hydrate is shorthand for New(fn, opts, logger).Run(ctx, in).
func Hydrate(ctx context.Context, in iter.Seq2[record.RawRecord, error], fn Func, opts Options, logger zerolog.Logger) iter.Seq2[Outcome, error] {
	return New(fn, opts, logger).Run(ctx, in)
}

// Run returns one outcome per input record, in input order. An upstream error
// is yielded after the items that preceded it and ends the stream, as does a
// cancelled context or, without ContinueOnError, the first failing item.
func (o *Orchestrator) Run(ctx context.Context, in iter.Seq2[record.RawRecord, error]) iter.Seq2[Outcome, error] {
	if o.opts.Workers > 1 {
		return func(yield func(Outcome, error) bool) {
			o.runParallel(ctx, in, yield)
		}
	}
	return func(yield func(Outcome, error) bool) {
		o.runSequential(ctx, in, yield)
	}
}

func (o *Orchestrator) runSequential(ctx context.Context, in iter.Seq2[record.RawRecord, error], yield func(Outcome, error) bool) {
	enriched := 0
	for item, err := range in {
		if err != nil {
			yield(Outcome{}, err)
			return
		}
		detail, herr := o.fn(ctx, item)
		if !o.emit(ctx, item, detail, herr, yield) {
			return
		}
		if herr == nil {
			enriched++
			if o.limitReached(enriched) {
				return
			}
		}
	}
}

// ahead returns how many calls may be in flight once enriched outcomes
// have been emitted.
func (o *Orchestrator) ahead(enriched int) int {
	if o.opts.Limit <= 0 {
		return o.opts.Workers
	}
	return min(o.opts.Workers, o.opts.Limit-enriched)
}

func (o *Orchestrator) limitReached(enriched int) bool {
	return o.opts.Limit > 0 && enriched >= o.opts.Limit
}

// pending is one in-flight hydrate call.
type pending struct {
	item   record.RawRecord
	detail record.RawRecord
	err    error
	done   chan struct{}
}

// runParallel keeps up to Workers hydrate calls in flight, fewer when Limit
// is close, and emits results strictly in input order, waiting on the head of
// the window.
func (o *Orchestrator) runParallel(ctx context.Context, in iter.Seq2[record.RawRecord, error], yield func(Outcome, error) bool) {
	next, stop := iter.Pull2(in)
	defer stop()

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	// Deferred in this order so cancel runs first and Wait drains abandoned calls.
	defer g.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		window      []*pending
		upstreamErr error
		exhausted   bool
		enriched    int
	)
	for {
		for !exhausted && len(window) < o.ahead(enriched) {
			item, err, ok := next()
			if !ok {
				exhausted = true
				break
			}
			if err != nil {
				upstreamErr = err
				exhausted = true
				break
			}
			p := &pending{item: item, done: make(chan struct{})}
			window = append(window, p)
			g.Go(func() error {
				defer close(p.done)
				p.detail, p.err = o.fn(ctx, p.item)
				return nil
			})
		}

		if len(window) == 0 {
			if upstreamErr != nil {
				yield(Outcome{}, upstreamErr)
			}
			return
		}

		head := window[0]
		window = window[1:]
		<-head.done
		if !o.emit(ctx, head.item, head.detail, head.err, yield) {
			return
		}
		if head.err == nil {
			enriched++
			if o.limitReached(enriched) {
				return
			}
		}
	}
}

// emit converts one hydrate result into an outcome and yields it. It reports
// whether the stream should continue.
func (o *Orchestrator) emit(ctx context.Context, item, detail record.RawRecord, err error, yield func(Outcome, error) bool) bool {
	if err == nil {
		hydrationOutcomesTotal.WithLabelValues(KindEnriched.String()).Inc()
		return yield(NewEnriched(Merge(item, detail)), nil)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		yield(Outcome{}, ctxErr)
		return false
	}

	herr := &Error{Record: item, Err: err}
	if o.opts.ContinueOnError || errors.Is(err, ErrMissingIdentifier) {
		hydrationOutcomesTotal.WithLabelValues(KindSkipped.String()).Inc()
		o.logger.Error().
			Err(err).
			Interface("item", identity(item)).
			Msg("Item hydration skipped")
		return yield(NewSkipped(herr), nil)
	}

	hydrationOutcomesTotal.WithLabelValues("failed").Inc()
	o.logger.Error().
		Err(err).
		Interface("item", identity(item)).
		Msg("Item hydration failed, aborting stream")
	yield(Outcome{}, herr)
	return false
}

// identity picks the fields that usually identify a list record, for logs.
func identity(item record.RawRecord) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{"congress", "type", "number", "bioguideId", "systemCode", "chamber", "jacketNumber", "eventId", "url"} {
		if v := item.String(key); v != "" {
			out[key] = v
		}
	}
	return out
}
