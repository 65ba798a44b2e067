package cromwell

import (
	"context"
	"errors"
	"testing"

	"github.com/seantiz/cromwell/internal/enginemock"
)

func TestStatus(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusRunning)

	res, err := c.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if res.ID != id {
		t.Errorf("ID = %q, want %q", res.ID, id)
	}
	if res.Status != enginemock.StatusRunning {
		t.Errorf("Status = %q, want %q", res.Status, enginemock.StatusRunning)
	}
	if res.Path != "api/workflows/v1/{id}/status" {
		t.Errorf("Path = %q, want the status template", res.Path)
	}
	if res.When.IsZero() {
		t.Error("When is zero")
	}
}

func TestStatusUnknownWorkflow(t *testing.T) {
	c, _ := newTestEngine(t)

	_, err := c.Status(context.Background(), "no-such-id")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.DocURL == "" {
		t.Error("DocURL empty, want the engine's documentation link")
	}
}

func TestMetadata(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)

	res, err := c.Metadata(context.Background(), id)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}

	if res.ID != id {
		t.Errorf("ID = %q, want %q", res.ID, id)
	}
	if res.Name != "hello" {
		t.Errorf("Name = %q, want %q", res.Name, "hello")
	}
	if res.Status != enginemock.StatusSucceeded {
		t.Errorf("Status = %q, want %q", res.Status, enginemock.StatusSucceeded)
	}
	// The full document stays reachable beyond the typed fields.
	if _, ok := res.Metadata["submission"]; !ok {
		t.Error("metadata missing submission field")
	}
	if res.Path != "api/workflows/v1/{id}/metadata" {
		t.Errorf("Path = %q, want the metadata template", res.Path)
	}
}

func TestAbortRunningWorkflow(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusRunning)

	res, err := c.Abort(context.Background(), id)
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if res.ID != id {
		t.Errorf("ID = %q, want %q", res.ID, id)
	}
	if res.Status != enginemock.StatusAborted {
		t.Errorf("Status = %q, want %q", res.Status, enginemock.StatusAborted)
	}

	after, err := c.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status after abort: %v", err)
	}
	if after.Status != enginemock.StatusAborted {
		t.Errorf("status after abort = %q, want %q", after.Status, enginemock.StatusAborted)
	}
}

func TestAbortTerminalWorkflowFails(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)

	_, err := c.Abort(context.Background(), id)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 403 {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
}

func TestOutputs(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)
	if err := store.SetOutputs(context.Background(), id, []byte(`{"hello.out":"done"}`)); err != nil {
		t.Fatalf("SetOutputs: %v", err)
	}

	res, err := c.Outputs(context.Background(), id)
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}

	if res.ID != id {
		t.Errorf("ID = %q, want %q", res.ID, id)
	}
	if got := res.Outputs["hello.out"]; got != "done" {
		t.Errorf(`Outputs["hello.out"] = %v, want "done"`, got)
	}
}

func TestLogsExtractsCalls(t *testing.T) {
	c, store := newTestEngine(t)
	id := seedWorkflow(t, store, "hello", enginemock.StatusSucceeded)

	ctx := context.Background()
	for attempt := 1; attempt <= 2; attempt++ {
		if err := store.InsertCallLog(ctx, &enginemock.CallLog{
			WorkflowID: id,
			Call:       "hello.say",
			Attempt:    attempt,
			ShardIndex: -1,
			Stdout:     "/logs/stdout",
			Stderr:     "/logs/stderr",
		}); err != nil {
			t.Fatalf("InsertCallLog: %v", err)
		}
	}

	res, err := c.Logs(ctx, id)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}

	attempts := res.Calls["hello.say"]
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[1].Attempt != 2 {
		t.Errorf("attempt = %d, want 2", attempts[1].Attempt)
	}
	if attempts[0].Stdout != "/logs/stdout" {
		t.Errorf("stdout = %q, want %q", attempts[0].Stdout, "/logs/stdout")
	}
	if res.Path != "api/workflows/v1/{id}/logs" {
		t.Errorf("Path = %q, want the logs template", res.Path)
	}
}
