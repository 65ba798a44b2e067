package cromwell

import (
	"context"
	"slices"
	"testing"

	"github.com/seantiz/cromwell/internal/enginemock"
)

func TestBackends(t *testing.T) {
	c, _ := newTestEngine(t)

	res, err := c.Backends(context.Background())
	if err != nil {
		t.Fatalf("Backends: %v", err)
	}

	if res.Default != "Local" {
		t.Errorf("Default = %q, want %q", res.Default, "Local")
	}
	if !slices.Contains(res.Supported, "Local") {
		t.Errorf("Supported = %v, want to contain Local", res.Supported)
	}
	if res.Path != "api/workflows/v1/backends" {
		t.Errorf("Path = %q, want the backends template", res.Path)
	}
}

func TestStats(t *testing.T) {
	c, store := newTestEngine(t)
	ctx := context.Background()

	for range 3 {
		seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)
	}
	id := seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)
	if err := store.InsertCallLog(ctx, &enginemock.CallLog{
		WorkflowID: id, Call: "hello.say", Attempt: 1, ShardIndex: -1,
	}); err != nil {
		t.Fatalf("InsertCallLog: %v", err)
	}

	res, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if res.Workflows != 4 {
		t.Errorf("Workflows = %d, want 4", res.Workflows)
	}
	if res.Jobs != 1 {
		t.Errorf("Jobs = %d, want 1", res.Jobs)
	}
}

func TestVersion(t *testing.T) {
	c, _ := newTestEngine(t)

	res, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	if res.Version == "" {
		t.Error("Version empty")
	}
	if res.Path != "api/engine/v1/version" {
		t.Errorf("Path = %q, want the version template", res.Path)
	}
}

// TestSubmitQueryAbortRoundTrip walks a submission through the mock
// engine end to end with the client alone.
func TestSubmitQueryAbortRoundTrip(t *testing.T) {
	c, _ := newTestEngine(t)
	ctx := context.Background()

	sub, err := c.SubmitBatch(ctx, BatchSubmission{
		Source: "workflow roundtrip {}",
		Inputs: []map[string]any{
			{"roundtrip.n": 1},
			{"roundtrip.n": 2},
		},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(sub.Workflows) != 2 {
		t.Fatalf("workflows = %d, want 2", len(sub.Workflows))
	}
	for _, wf := range sub.Workflows {
		if wf.Status != enginemock.StatusSubmitted {
			t.Errorf("workflow %s status = %q, want Submitted", wf.ID, wf.Status)
		}
	}

	query, err := c.Query(ctx, QueryTerms{TermName: "roundtrip"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(query.Rows) != 2 {
		t.Fatalf("query rows = %d, want 2", len(query.Rows))
	}

	abort, err := c.Abort(ctx, sub.Workflows[0].ID)
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if abort.Status != enginemock.StatusAborted {
		t.Errorf("abort status = %q, want Aborted", abort.Status)
	}

	status, err := c.Status(ctx, sub.Workflows[1].ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != enginemock.StatusSubmitted {
		t.Errorf("status = %q, want Submitted", status.Status)
	}
}
