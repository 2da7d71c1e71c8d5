// Package record defines the untyped key-value record that flows through the
// request pipeline, from list pages and detail payloads to the mapping layer.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is one API item as decoded from a list page or detail payload.
// Records are treated as immutable once received; use Clone before changing one.
type RawRecord map[string]any

// Clone returns a shallow copy of r.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value at key as a string.
// Numbers are formatted without a trailing fraction; missing keys yield "".
func (r RawRecord) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value at key as an int, accepting JSON numbers and numeric strings.
func (r RawRecord) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Map returns the nested object at key, or nil when absent or not an object.
func (r RawRecord) Map(key string) RawRecord {
	return AsRecord(r[key])
}

// AsRecord converts a decoded JSON object into a RawRecord.
func AsRecord(v any) RawRecord {
	switch m := v.(type) {
	case RawRecord:
		return m
	case map[string]any:
		return RawRecord(m)
	default:
		return nil
	}
}

// Items normalizes a list block into an ordered slice of records.
//
// The upstream service returns lists in several shapes:
//
//	[...]                -> [...]
//	{"item": [...]}      -> [...]
//	{"item": {...}}      -> [{...}]
//	{"items": [...]}     -> [...]
//	{"items": {...}}     -> [{...}]
//	anything else        -> []
//
// Non-object entries inside a list are dropped.
func Items(block any) []RawRecord {
	switch b := block.(type) {
	case nil:
		return nil
	case []any:
		return objects(b)
	case []RawRecord:
		return b
	}

	m := AsRecord(block)
	if m == nil {
		return nil
	}
	for _, key := range []string{"item", "items"} {
		switch v := m[key].(type) {
		case []any:
			return objects(v)
		case map[string]any:
			return []RawRecord{RawRecord(v)}
		}
	}
	return nil
}

func objects(list []any) []RawRecord {
	out := make([]RawRecord, 0, len(list))
	for _, v := range list {
		if m := AsRecord(v); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Unwrap strips the {"root": {...}} envelope some payloads arrive in.
func Unwrap(r RawRecord) RawRecord {
	if inner := r.Map("root"); inner != nil {
		return inner
	}
	return r
}

// ToList converts records back into a JSON-compatible list value.
func ToList(records []RawRecord) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = map[string]any(r)
	}
	return out
}
