package cromwell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const pathBatch = "api/workflows/v1/batch"

// Multipart field names expected by the engine's batch endpoint.
const (
	fieldSource  = "workflowSource"
	fieldInputs  = "workflowInputs"
	fieldOptions = "workflowOptions"
)

// BatchSubmission bundles one batch request: workflow source text, the
// inputs array, and optional options.
//
// Inputs must be a string (passed through verbatim) or a slice of objects
// ([]map[string]any or []any), which is JSON-encoded. Options may be nil
// (omitted), a string (verbatim), or a map[string]any (JSON-encoded).
// Any other type fails before a request is sent.
type BatchSubmission struct {
	Source  string
	Inputs  any
	Options any
}

// WorkflowSummary is the engine's short workflow descriptor.
type WorkflowSummary struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitResult holds the workflows created by a batch submission.
type SubmitResult struct {
	Envelope
	Workflows []WorkflowSummary
}

// SubmitBatch starts one workflow per element of the inputs array. The
// strict 200-only validation policy applies here too: an engine that
// answers 201 Created is rejected by the validator.
func (c *Client) SubmitBatch(ctx context.Context, sub BatchSubmission, opts ...RequestOption) (*SubmitResult, error) {
	if sub.Source == "" {
		return nil, errors.New("batch submission: workflow source is required")
	}

	inputs, err := encodeInputs(sub.Inputs)
	if err != nil {
		return nil, err
	}
	options, hasOptions, err := encodeOptions(sub.Options)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		fieldSource: sub.Source,
		fieldInputs: inputs,
	}
	if hasOptions {
		fields[fieldOptions] = options
	}

	env, err := c.postMultipart(ctx, pathBatch, pathBatch, fields, opts)
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{Envelope: *env}
	if err := env.Decode(&res.Workflows); err != nil {
		return nil, fmt.Errorf("decode batch submission response: %w", err)
	}
	return res, nil
}

func encodeInputs(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", errors.New("batch submission: workflow inputs are required")
	case string:
		return t, nil
	case []map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("encode workflow inputs: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("batch submission: workflow inputs must be a string or a slice of objects, got %T", v)
	}
}

func encodeOptions(v any) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false, fmt.Errorf("encode workflow options: %w", err)
		}
		return string(b), true, nil
	default:
		return "", false, fmt.Errorf("batch submission: workflow options must be a string or a map, got %T", v)
	}
}
