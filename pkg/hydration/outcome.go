// Package hydration enriches list records with per-item detail calls.
//
// An Orchestrator consumes a stream of raw list records, calls a hydrate
// function for each, and emits one Outcome per input in input order. Under
// continue-on-error a failing item becomes a Skipped outcome and the stream
// goes on; otherwise the first failure ends the stream.
package hydration

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/congress-api-client/pkg/record"
)

// ErrMissingIdentifier is returned by hydrate functions when a list record
// lacks the fields needed to address its detail endpoint. Such items are
// always skipped, whatever the error policy.
var ErrMissingIdentifier = errors.New("record missing identifier fields")

// Error is a hydration failure scoped to one item.
type Error struct {
	// Record is the original list record.
	Record record.RawRecord
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("hydrate item: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind tags an Outcome.
type Kind int

const (
	// KindEnriched marks a successfully hydrated record.
	KindEnriched Kind = iota + 1
	// KindSkipped marks an item whose hydration failed.
	KindSkipped
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindEnriched:
		return "enriched"
	case KindSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is either Enriched(record) or Skipped(original, error), never both.
// The zero value is neither and reports Kind 0.
type Outcome struct {
	kind   Kind
	record record.RawRecord
	err    *Error
}

// NewEnriched returns an Enriched outcome.
func NewEnriched(rec record.RawRecord) Outcome {
	return Outcome{kind: KindEnriched, record: rec}
}

// NewSkipped returns a Skipped outcome carrying the original record.
func NewSkipped(err *Error) Outcome {
	return Outcome{kind: KindSkipped, record: err.Record, err: err}
}

// Kind reports which variant o holds.
func (o Outcome) Kind() Kind {
	return o.kind
}

// Enriched returns the enriched record when o is Enriched.
func (o Outcome) Enriched() (record.RawRecord, bool) {
	if o.kind != KindEnriched {
		return nil, false
	}
	return o.record, true
}

// Skipped returns the failure when o is Skipped.
func (o Outcome) Skipped() (*Error, bool) {
	if o.kind != KindSkipped {
		return nil, false
	}
	return o.err, true
}

// Record returns the enriched record, or the original one for a skipped item.
func (o Outcome) Record() record.RawRecord {
	return o.record
}

// Merge overlays detail onto a copy of base. Detail keys win.
func Merge(base, detail record.RawRecord) record.RawRecord {
	out := base.Clone()
	for k, v := range detail {
		out[k] = v
	}
	return out
}
