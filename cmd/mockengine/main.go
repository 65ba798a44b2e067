// mockengine runs a Cromwell-shaped mock engine with seeded demo
// workflows, for developing against the client without a real engine.
// Usage: go run ./cmd/mockengine
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/seantiz/cromwell/internal/enginemock"
)

const defaultAddr = ":8000"

func main() {
	addr := defaultAddr
	if v := os.Getenv("MOCKENGINE_ADDR"); v != "" {
		addr = v
	}
	dbPath := ":memory:"
	if v := os.Getenv("MOCKENGINE_DB"); v != "" {
		dbPath = v
	}

	store, err := enginemock.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	if err := seed(store); err != nil {
		log.Fatalf("failed to seed demo data: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	srv := enginemock.NewServer(addr, store, logger)

	logger.Info("mockengine: starting", "addr", addr, "db", dbPath)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// seed creates a handful of workflows in different states so the query,
// outputs and logs endpoints have something to show.
func seed(store *enginemock.Store) error {
	ctx := context.Background()
	now := time.Now().UTC()

	succeeded := &enginemock.Workflow{
		ID:         uuid.NewString(),
		Name:       "hello_world",
		Status:     enginemock.StatusSubmitted,
		Submission: now.Add(-2 * time.Hour),
	}
	if err := store.CreateWorkflow(ctx, succeeded); err != nil {
		return err
	}
	if err := store.UpdateWorkflowStatus(ctx, succeeded.ID, enginemock.StatusRunning); err != nil {
		return err
	}
	if err := store.UpdateWorkflowStatus(ctx, succeeded.ID, enginemock.StatusSucceeded); err != nil {
		return err
	}
	if err := store.SetOutputs(ctx, succeeded.ID, []byte(`{"hello_world.out":"Hello, world!"}`)); err != nil {
		return err
	}
	if err := store.InsertCallLog(ctx, &enginemock.CallLog{
		WorkflowID: succeeded.ID,
		Call:       "hello_world.say_hello",
		Attempt:    1,
		ShardIndex: -1,
		Stdout:     "/cromwell-executions/hello_world/call-say_hello/stdout",
		Stderr:     "/cromwell-executions/hello_world/call-say_hello/stderr",
	}); err != nil {
		return err
	}

	running := &enginemock.Workflow{
		ID:         uuid.NewString(),
		Name:       "alignment",
		Status:     enginemock.StatusSubmitted,
		Submission: now.Add(-30 * time.Minute),
	}
	if err := store.CreateWorkflow(ctx, running); err != nil {
		return err
	}
	if err := store.UpdateWorkflowStatus(ctx, running.ID, enginemock.StatusRunning); err != nil {
		return err
	}

	pending := &enginemock.Workflow{
		ID:         uuid.NewString(),
		Name:       "variant_calling",
		Status:     enginemock.StatusSubmitted,
		Submission: now.Add(-5 * time.Minute),
	}
	return store.CreateWorkflow(ctx, pending)
}
