package record

import (
	"encoding/json"
	"testing"
)

func TestItems(t *testing.T) {
	a := map[string]any{"id": "a"}
	b := map[string]any{"id": "b"}

	tests := []struct {
		name  string
		block any
		want  []string
	}{
		{name: "nil", block: nil, want: nil},
		{name: "plain list", block: []any{a, b}, want: []string{"a", "b"}},
		{name: "item list", block: map[string]any{"item": []any{a, b}}, want: []string{"a", "b"}},
		{name: "item object", block: map[string]any{"item": a}, want: []string{"a"}},
		{name: "items list", block: map[string]any{"items": []any{b}}, want: []string{"b"}},
		{name: "items object", block: map[string]any{"items": b}, want: []string{"b"}},
		{name: "bare object", block: map[string]any{"id": "x"}, want: nil},
		{name: "scalar", block: "text", want: nil},
		{name: "non-object entries dropped", block: []any{a, "junk", 3.0, b}, want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Items(tt.block)
			if len(got) != len(tt.want) {
				t.Fatalf("Items() returned %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.String("id") != tt.want[i] {
					t.Errorf("Items()[%d].id = %q, want %q", i, r.String("id"), tt.want[i])
				}
			}
		})
	}
}

func TestRawRecord_Accessors(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(`{"congress":117,"number":"3076","nested":{"name":"x"},"bad":"abc"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r := RawRecord(decoded)

	if got := r.String("congress"); got != "117" {
		t.Errorf("String(congress) = %q, want 117", got)
	}
	if n, ok := r.Int("number"); !ok || n != 3076 {
		t.Errorf("Int(number) = %d, %v, want 3076, true", n, ok)
	}
	if _, ok := r.Int("bad"); ok {
		t.Error("Int(bad) should not parse")
	}
	if _, ok := r.Int("missing"); ok {
		t.Error("Int(missing) should report false")
	}
	if got := r.Map("nested").String("name"); got != "x" {
		t.Errorf("Map(nested).name = %q, want x", got)
	}
	if r.Map("number") != nil {
		t.Error("Map on a scalar should be nil")
	}
}

func TestClone(t *testing.T) {
	orig := RawRecord{"a": 1}
	c := orig.Clone()
	c["a"] = 2
	c["b"] = 3
	if orig["a"] != 1 || len(orig) != 1 {
		t.Errorf("Clone mutated original: %v", orig)
	}
}

func TestUnwrap(t *testing.T) {
	wrapped := RawRecord{"root": map[string]any{"bills": []any{}}}
	if _, ok := Unwrap(wrapped)["bills"]; !ok {
		t.Error("Unwrap did not strip root envelope")
	}
	plain := RawRecord{"bills": []any{}}
	if _, ok := Unwrap(plain)["bills"]; !ok {
		t.Error("Unwrap changed a plain record")
	}
}
