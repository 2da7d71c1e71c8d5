package congress

import (
	"errors"
	"testing"

	"github.com/Sternrassler/congress-api-client/pkg/record"
)

func TestDecode_ListShapes(t *testing.T) {
	tests := []struct {
		name     string
		sponsors any
		want     int
	}{
		{name: "plain list", sponsors: []any{map[string]any{"bioguideId": "A"}, map[string]any{"bioguideId": "B"}}, want: 2},
		{name: "item wrapper", sponsors: map[string]any{"item": []any{map[string]any{"bioguideId": "A"}}}, want: 1},
		{name: "single object", sponsors: map[string]any{"bioguideId": "A"}, want: 1},
		{name: "absent", sponsors: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record.RawRecord{"congress": float64(118), "type": "S", "number": float64(42)}
			if tt.sponsors != nil {
				rec["sponsors"] = tt.sponsors
			}

			bill, err := Decode[Bill](rec)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(bill.Sponsors) != tt.want {
				t.Errorf("Sponsors = %d, want %d", len(bill.Sponsors), tt.want)
			}
			if bill.Congress != 118 || bill.Number != "42" {
				t.Errorf("Congress/Number = %d/%q, want 118/42", bill.Congress, bill.Number)
			}
		})
	}
}

func TestDecode_KeepsUnknownFields(t *testing.T) {
	rec := record.RawRecord{"eventId": "115538", "chamber": "House", "futureField": "x"}

	m, err := Decode[CommitteeMeeting](rec)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.EventID != "115538" {
		t.Errorf("EventID = %q", m.EventID)
	}
	if m.Extra["futureField"] != "x" {
		t.Errorf("Extra = %v, want futureField kept", m.Extra)
	}
}

func TestMap(t *testing.T) {
	tests := []struct {
		entity Entity
		check  func(v any) bool
	}{
		{entity: EntityBill, check: func(v any) bool { _, ok := v.(*Bill); return ok }},
		{entity: EntityAmendment, check: func(v any) bool { _, ok := v.(*Amendment); return ok }},
		{entity: EntityMember, check: func(v any) bool { _, ok := v.(*Member); return ok }},
		{entity: EntityCommittee, check: func(v any) bool { _, ok := v.(*Committee); return ok }},
		{entity: EntityHearing, check: func(v any) bool { _, ok := v.(*Hearing); return ok }},
		{entity: EntityCommitteeMeeting, check: func(v any) bool { _, ok := v.(*CommitteeMeeting); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.entity), func(t *testing.T) {
			v, err := Map(tt.entity, record.RawRecord{})
			if err != nil {
				t.Fatalf("Map() error = %v", err)
			}
			if !tt.check(v) {
				t.Errorf("Map(%s) = %T", tt.entity, v)
			}
		})
	}

	if _, err := Map("treaty", record.RawRecord{}); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("Map(treaty) error = %v, want ErrUnknownEntity", err)
	}
}
