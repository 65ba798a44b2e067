package cromwell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"testing"
	"time"
)

func queryServer(t *testing.T, body any) (*Client, *url.Values) {
	t.Helper()
	captured := &url.Values{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return New(WithBaseURL(ts.URL)), captured
}

func TestQueryFlattensHeterogeneousRecords(t *testing.T) {
	c, _ := queryServer(t, map[string]any{
		"results": []map[string]any{
			{"id": "a", "name": "wf1", "status": "Succeeded", "start": "2015-11-01T07:45:52.000-05:00", "end": "2015-11-01T08:45:52.000-05:00"},
			{"id": "b", "name": "wf2", "status": "Running", "start": "2015-11-01T07:50:00.000-05:00"},
			{"id": "c", "status": "Submitted"},
		},
		"totalResultsCount": 3,
	})

	res, err := c.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(res.Rows))
	}
	if res.TotalResultsCount != 3 {
		t.Errorf("TotalResultsCount = %d, want 3", res.TotalResultsCount)
	}

	wantColumns := []string{"end", "id", "name", "start", "status"}
	if !slices.Equal(res.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", res.Columns, wantColumns)
	}

	// Absent fields are empty cells, but every column is present per row.
	for i, row := range res.Rows {
		if len(row.Cells) != len(wantColumns) {
			t.Errorf("row %d has %d cells, want %d", i, len(row.Cells), len(wantColumns))
		}
	}
	if got := res.Rows[2].Cells["name"]; got != "" {
		t.Errorf(`row 2 name = %q, want ""`, got)
	}
	if got := res.Rows[1].Cells["end"]; got != "" {
		t.Errorf(`row 1 end = %q, want ""`, got)
	}
}

func TestQueryDerivesDuration(t *testing.T) {
	c, _ := queryServer(t, map[string]any{
		"results": []map[string]any{
			{"id": "a", "start": "2015-11-01T07:45:52.000-05:00", "end": "2015-11-01T08:45:52.000-05:00"},
		},
		"totalResultsCount": 1,
	})

	res, err := c.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	row := res.Rows[0]
	if row.Duration != time.Hour {
		t.Errorf("duration = %v, want 1h", row.Duration)
	}
	// The offset is discarded: the truncated timestamp reads as UTC.
	wantStart := time.Date(2015, 11, 1, 7, 45, 52, 0, time.UTC)
	if !row.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", row.Start, wantStart)
	}
}

func TestQueryDurationZeroWhenEndMissing(t *testing.T) {
	c, _ := queryServer(t, map[string]any{
		"results": []map[string]any{
			{"id": "a", "start": "2015-11-01T07:45:52.000-05:00"},
		},
		"totalResultsCount": 1,
	})

	res, err := c.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if res.Rows[0].Duration != 0 {
		t.Errorf("duration = %v, want 0", res.Rows[0].Duration)
	}
	if !res.Rows[0].End.IsZero() {
		t.Errorf("end = %v, want zero", res.Rows[0].End)
	}
}

func TestQueryTermsPassThroughVerbatim(t *testing.T) {
	c, captured := queryServer(t, map[string]any{"results": []map[string]any{}, "totalResultsCount": 0})

	// Bogus values are forwarded untouched; the engine owns validation.
	_, err := c.Query(context.Background(), QueryTerms{
		TermName:     "my_workflow",
		TermStatus:   "NotARealStatus",
		TermPageSize: "25",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	q := *captured
	if got := q.Get("name"); got != "my_workflow" {
		t.Errorf("name = %q, want %q", got, "my_workflow")
	}
	if got := q.Get("status"); got != "NotARealStatus" {
		t.Errorf("status = %q, want %q", got, "NotARealStatus")
	}
	if got := q.Get("pagesize"); got != "25" {
		t.Errorf("pagesize = %q, want %q", got, "25")
	}
}

func TestQueryTagsResult(t *testing.T) {
	c, _ := queryServer(t, map[string]any{"results": []map[string]any{}, "totalResultsCount": 0})

	before := time.Now().UTC()
	res, err := c.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if res.Path != "api/workflows/v1/query" {
		t.Errorf("Path = %q, want %q", res.Path, "api/workflows/v1/query")
	}
	if res.When.Before(before) || res.When.After(time.Now().UTC()) {
		t.Errorf("When = %v, outside the call window", res.When)
	}
}

func TestParseWorkflowTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2015-11-01T07:45:52.000-05:00", time.Date(2015, 11, 1, 7, 45, 52, 0, time.UTC)},
		{"2015-11-01T07:45:52.123+11:00", time.Date(2015, 11, 1, 7, 45, 52, 0, time.UTC)},
		{"2015-11-01T07:45:52", time.Date(2015, 11, 1, 7, 45, 52, 0, time.UTC)},
		{"", time.Time{}},
		{"not a timestamp here", time.Time{}},
		{"2015-11-01", time.Time{}},
	}

	for _, tt := range tests {
		got := parseWorkflowTime(tt.input)
		if !got.Equal(tt.want) {
			t.Errorf("parseWorkflowTime(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, ""},
		{"plain", "plain"},
		{float64(42), "42"},
		{float64(1.5), "1.5"},
		{true, "true"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		if got := cellString(tt.input); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
