package cromwell

import (
	"context"
	"fmt"
	"strings"
)

// Per-workflow endpoint path templates. {id} is replaced with the opaque
// workflow identifier supplied by the caller.
const (
	pathMetadata = "api/workflows/v1/{id}/metadata"
	pathStatus   = "api/workflows/v1/{id}/status"
	pathOutputs  = "api/workflows/v1/{id}/outputs"
	pathLogs     = "api/workflows/v1/{id}/logs"
	pathAbort    = "api/workflows/v1/{id}/abort"
)

func workflowPath(template, id string) string {
	return strings.Replace(template, "{id}", id, 1)
}

// MetadataResult holds the full metadata document for one workflow run.
type MetadataResult struct {
	Envelope
	ID       string
	Name     string
	Status   string
	Metadata map[string]any
}

// Metadata fetches the metadata document for the given workflow.
func (c *Client) Metadata(ctx context.Context, id string, opts ...RequestOption) (*MetadataResult, error) {
	env, err := c.get(ctx, workflowPath(pathMetadata, id), pathMetadata, nil, opts)
	if err != nil {
		return nil, err
	}

	res := &MetadataResult{Envelope: *env}
	if err := env.Decode(&res.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}
	res.ID, _ = res.Metadata["id"].(string)
	res.Name, _ = res.Metadata["workflowName"].(string)
	res.Status, _ = res.Metadata["status"].(string)
	return res, nil
}

// StatusResult holds the current status of one workflow run.
type StatusResult struct {
	Envelope
	ID     string
	Status string
}

// Status fetches the current status of the given workflow.
func (c *Client) Status(ctx context.Context, id string, opts ...RequestOption) (*StatusResult, error) {
	env, err := c.get(ctx, workflowPath(pathStatus, id), pathStatus, nil, opts)
	if err != nil {
		return nil, err
	}

	var body WorkflowSummary
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &StatusResult{Envelope: *env, ID: body.ID, Status: body.Status}, nil
}

// AbortResult holds the engine's acknowledgement of an abort request.
type AbortResult struct {
	Envelope
	ID     string
	Status string
}

// Abort asks the engine to stop the given workflow.
func (c *Client) Abort(ctx context.Context, id string, opts ...RequestOption) (*AbortResult, error) {
	env, err := c.get(ctx, workflowPath(pathAbort, id), pathAbort, nil, opts)
	if err != nil {
		return nil, err
	}

	var body WorkflowSummary
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode abort response: %w", err)
	}
	return &AbortResult{Envelope: *env, ID: body.ID, Status: body.Status}, nil
}

// OutputsResult holds the declared outputs of one workflow run.
type OutputsResult struct {
	Envelope
	ID      string
	Outputs map[string]any
}

// Outputs fetches the outputs of the given workflow.
func (c *Client) Outputs(ctx context.Context, id string, opts ...RequestOption) (*OutputsResult, error) {
	env, err := c.get(ctx, workflowPath(pathOutputs, id), pathOutputs, nil, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		ID      string         `json:"id"`
		Outputs map[string]any `json:"outputs"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode outputs response: %w", err)
	}
	return &OutputsResult{Envelope: *env, ID: body.ID, Outputs: body.Outputs}, nil
}

// CallLog describes the log locations of one task call attempt.
type CallLog struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Attempt    int    `json:"attempt"`
	ShardIndex int    `json:"shardIndex"`
}

// LogsResult holds the per-call log records of one workflow run, keyed by
// fully qualified call name.
type LogsResult struct {
	Envelope
	ID    string
	Calls map[string][]CallLog
}

// Logs fetches the call logs of the given workflow. Only the calls field
// of the response body is extracted.
func (c *Client) Logs(ctx context.Context, id string, opts ...RequestOption) (*LogsResult, error) {
	env, err := c.get(ctx, workflowPath(pathLogs, id), pathLogs, nil, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		ID    string               `json:"id"`
		Calls map[string][]CallLog `json:"calls"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode logs response: %w", err)
	}
	return &LogsResult{Envelope: *env, ID: body.ID, Calls: body.Calls}, nil
}
