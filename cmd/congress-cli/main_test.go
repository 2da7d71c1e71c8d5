package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/Sternrassler/congress-api-client/internal/testutil"
	"github.com/Sternrassler/congress-api-client/pkg/record"
)

func setupMock(t *testing.T) *testutil.MockCongress {
	t.Helper()
	mock := testutil.NewMockCongress()
	t.Cleanup(mock.Close)

	t.Setenv("CONGRESS_API_KEY", "test-key")
	t.Setenv("CONGRESS_BASE_URL", mock.BaseURL())
	t.Setenv("CONGRESS_REQUESTS_PER_HOUR", "0")
	t.Setenv("CONGRESS_MIN_INTERVAL", "0s")
	t.Setenv("CONGRESS_MAX_TRIES", "2")
	t.Setenv("CONGRESS_BACKOFF_BASE", "1ms")
	t.Setenv("CONGRESS_BACKOFF_CAP", "2ms")
	t.Setenv("CONGRESS_REDIS_ADDR", "")
	t.Setenv("CONGRESS_METRICS_ADDR", "")
	return mock
}

func run(t *testing.T, args ...string) ([]record.RawRecord, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	var recs []record.RawRecord
	dec := json.NewDecoder(&out)
	for dec.More() {
		var rec record.RawRecord
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("output is not JSON lines: %v", err)
		}
		recs = append(recs, rec)
	}
	return recs, err
}

func bills(n int) []map[string]any {
	return testutil.Items(n, func(i int) map[string]any {
		chamber := "House"
		if i%2 == 1 {
			chamber = "Senate"
		}
		return map[string]any{
			"congress":      118,
			"type":          "HR",
			"number":        fmt.Sprint(i + 1),
			"originChamber": chamber,
		}
	})
}

func TestListCommand(t *testing.T) {
	mock := setupMock(t)
	mock.SetList("bill/118", "bills", bills(5))

	recs, err := run(t, "list", "bill", "--congress", "118")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("got %d records, want 5", len(recs))
	}
	for i, rec := range recs {
		if got, want := rec.String("number"), fmt.Sprint(i+1); got != want {
			t.Errorf("record %d number = %q, want %q", i, got, want)
		}
	}
}

func TestListCommand_WhereAndLimit(t *testing.T) {
	mock := setupMock(t)
	mock.SetList("bill/118", "bills", bills(6))

	recs, err := run(t, "list", "bill", "--congress", "118", "--where", "originChamber=Senate", "--limit", "2")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].String("number") != "2" || recs[1].String("number") != "4" {
		t.Errorf("numbers = %q, %q, want 2, 4", recs[0].String("number"), recs[1].String("number"))
	}
}

func TestListCommand_Hydrate(t *testing.T) {
	mock := setupMock(t)
	mock.SetList("bill/118", "bills", bills(2))
	mock.SetJSON("bill/118/hr/1", map[string]any{"bill": map[string]any{"number": "1", "title": "First"}})
	mock.SetResponse("bill/118/hr/2", testutil.NewNotFoundResponse())

	recs, err := run(t, "list", "bill", "--congress", "118", "--hydrate")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (failed item skipped)", len(recs))
	}
	if recs[0].String("title") != "First" {
		t.Errorf("title = %q, want First", recs[0].String("title"))
	}

	_, err = run(t, "list", "bill", "--congress", "118", "--hydrate", "--continue-on-error=false")
	if err == nil {
		t.Error("list with --continue-on-error=false error = nil, want error")
	}
}

func TestListCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown entity", args: []string{"list", "senator"}},
		{name: "missing congress", args: []string{"list", "bill"}},
		{name: "congress and range", args: []string{"list", "bill", "--congress", "118", "--from", "117", "--to", "118"}},
		{name: "bad where", args: []string{"list", "member", "--where", "noequals"}},
		{name: "bad log level", args: []string{"--log-level", "loud", "list", "member"}},
		{name: "no entity", args: []string{"list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupMock(t)
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v error = nil, want error", tt.args)
			}
		})
	}
}

func TestGetCommand(t *testing.T) {
	mock := setupMock(t)
	mock.SetJSON("bill/118/hr/42", map[string]any{"bill": map[string]any{"number": "42"}})
	mock.SetJSON("member/A000001", map[string]any{"member": map[string]any{"bioguideId": "A000001"}})

	recs, err := run(t, "get", "bill", "118", "HR", "42")
	if err != nil {
		t.Fatalf("get bill error = %v", err)
	}
	if len(recs) != 1 || recs[0].String("number") != "42" {
		t.Errorf("get bill = %v, want number 42", recs)
	}

	recs, err = run(t, "get", "member", "A000001")
	if err != nil {
		t.Fatalf("get member error = %v", err)
	}
	if len(recs) != 1 || recs[0].String("bioguideId") != "A000001" {
		t.Errorf("get member = %v, want A000001", recs)
	}

	if _, err := run(t, "get", "bill", "latest", "HR", "42"); err == nil {
		t.Error("get bill with bad congress error = nil, want error")
	}
}

func TestParseWhere(t *testing.T) {
	rec := record.RawRecord{
		"type":  "HR",
		"count": float64(3),
		"latestAction": map[string]any{
			"actionDate": "2024-01-02",
		},
	}

	tests := []struct {
		exprs []string
		want  bool
	}{
		{[]string{"type=HR"}, true},
		{[]string{"type=S"}, false},
		{[]string{"count=3"}, true},
		{[]string{"latestAction.actionDate=2024-01-02"}, true},
		{[]string{"latestAction.missing.deep=x"}, false},
		{[]string{"type=HR", "count=4"}, false},
		{[]string{"absent="}, true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.exprs, ","), func(t *testing.T) {
			where, err := parseWhere(tt.exprs)
			if err != nil {
				t.Fatalf("parseWhere() error = %v", err)
			}
			if got := where(rec); got != tt.want {
				t.Errorf("where(rec) = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := parseWhere([]string{"=x"}); err == nil {
		t.Error("parseWhere(=x) error = nil, want error")
	}
}
