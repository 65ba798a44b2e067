package cromwell

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"
)

const pathQuery = "api/workflows/v1/query"

// Recognized query term names. Values pass through verbatim as query
// parameters; the engine owns validation.
const (
	TermName     = "name"
	TermStatus   = "status"
	TermID       = "id"
	TermStart    = "start"
	TermEnd      = "end"
	TermPage     = "page"
	TermPageSize = "pagesize"
)

// QueryTerms maps filter names to values for the query endpoint.
type QueryTerms map[string]string

// QueryResult is the flattened form of a workflow query response. Records
// with heterogeneous field sets become a rectangular table: Columns is the
// sorted union of all field names, and absent fields are empty cells.
type QueryResult struct {
	Envelope
	TotalResultsCount int
	Columns           []string
	Rows              []QueryRow
}

// QueryRow is one workflow record. Start and End are derived from the
// corresponding cells; Duration is End minus Start, zero when either
// endpoint is missing.
type QueryRow struct {
	Cells    map[string]string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Query lists workflows matching terms and flattens the engine's results
// array into a table.
func (c *Client) Query(ctx context.Context, terms QueryTerms, opts ...RequestOption) (*QueryResult, error) {
	env, err := c.get(ctx, pathQuery, pathQuery, terms, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		Results           []map[string]any `json:"results"`
		TotalResultsCount int              `json:"totalResultsCount"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	res := &QueryResult{
		Envelope:          *env,
		TotalResultsCount: body.TotalResultsCount,
	}
	res.Columns, res.Rows = flattenRecords(body.Results)
	return res, nil
}

// flattenRecords builds the rectangular table from heterogeneous records.
func flattenRecords(records []map[string]any) ([]string, []QueryRow) {
	columnSet := make(map[string]struct{})
	for _, rec := range records {
		for name := range rec {
			columnSet[name] = struct{}{}
		}
	}
	columns := slices.Sorted(maps.Keys(columnSet))

	rows := make([]QueryRow, 0, len(records))
	for _, rec := range records {
		cells := make(map[string]string, len(columns))
		for _, col := range columns {
			cells[col] = cellString(rec[col])
		}

		row := QueryRow{
			Cells: cells,
			Start: parseWorkflowTime(cells[TermStart]),
			End:   parseWorkflowTime(cells[TermEnd]),
		}
		if !row.Start.IsZero() && !row.End.IsZero() {
			row.Duration = row.End.Sub(row.Start)
		}
		rows = append(rows, row)
	}

	return columns, rows
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// parseWorkflowTime parses engine timestamps such as
// "2015-11-01T07:45:52.000-05:00" by truncating to whole seconds and
// reading the result as UTC. The zone offset is discarded, not converted.
func parseWorkflowTime(s string) time.Time {
	const layout = "2006-01-02T15:04:05"
	if len(s) < len(layout) {
		return time.Time{}
	}
	t, err := time.ParseInLocation(layout, s[:len(layout)], time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
