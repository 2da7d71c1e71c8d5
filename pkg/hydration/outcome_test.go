package hydration

import (
	"errors"
	"testing"

	"github.com/Sternrassler/congress-api-client/pkg/record"
)

func TestOutcome_Variants(t *testing.T) {
	rec := record.RawRecord{"number": "1"}
	enriched := NewEnriched(rec)
	if enriched.Kind() != KindEnriched {
		t.Errorf("Kind() = %v, want enriched", enriched.Kind())
	}
	if _, ok := enriched.Skipped(); ok {
		t.Error("enriched outcome reports skipped")
	}

	cause := errors.New("boom")
	skipped := NewSkipped(&Error{Record: rec, Err: cause})
	if skipped.Kind() != KindSkipped {
		t.Errorf("Kind() = %v, want skipped", skipped.Kind())
	}
	herr, ok := skipped.Skipped()
	if !ok || !errors.Is(herr, cause) {
		t.Errorf("Skipped() = %v, %v; want wrapped cause", herr, ok)
	}
	if skipped.Record().String("number") != "1" {
		t.Error("skipped outcome lost the original record")
	}

	var zero Outcome
	if _, ok := zero.Enriched(); ok {
		t.Error("zero outcome reports enriched")
	}
	if zero.Kind().String() != "unknown" {
		t.Errorf("zero Kind().String() = %q, want unknown", zero.Kind().String())
	}
}

func TestMerge(t *testing.T) {
	base := record.RawRecord{"number": "1", "title": "short"}
	detail := record.RawRecord{"title": "full title", "sponsors": []any{}}

	got := Merge(base, detail)
	if got.String("title") != "full title" {
		t.Errorf("title = %q, want detail to win", got.String("title"))
	}
	if got.String("number") != "1" {
		t.Error("base field lost")
	}
	if _, ok := got["sponsors"]; !ok {
		t.Error("detail-only field missing")
	}
	if base.String("title") != "short" {
		t.Error("Merge mutated base")
	}
	if m := Merge(base, nil); len(m) != 2 {
		t.Errorf("Merge(base, nil) = %v, want copy of base", m)
	}
}
