package cromwell

import (
	"context"
	"fmt"
)

// Engine-level endpoint path templates.
const (
	pathBackends = "api/workflows/v1/backends"
	pathStats    = "api/engine/v1/stats"
	pathVersion  = "api/engine/v1/version"
)

// BackendsResult lists the execution backends the engine supports.
type BackendsResult struct {
	Envelope
	Default   string
	Supported []string
}

// Backends lists the engine's execution backends.
func (c *Client) Backends(ctx context.Context, opts ...RequestOption) (*BackendsResult, error) {
	env, err := c.get(ctx, pathBackends, pathBackends, nil, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		DefaultBackend    string   `json:"defaultBackend"`
		SupportedBackends []string `json:"supportedBackends"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode backends response: %w", err)
	}
	return &BackendsResult{
		Envelope:  *env,
		Default:   body.DefaultBackend,
		Supported: body.SupportedBackends,
	}, nil
}

// StatsResult holds the engine's aggregate execution counters.
type StatsResult struct {
	Envelope
	Workflows int
	Jobs      int
}

// Stats fetches the engine's aggregate execution statistics.
func (c *Client) Stats(ctx context.Context, opts ...RequestOption) (*StatsResult, error) {
	env, err := c.get(ctx, pathStats, pathStats, nil, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		Workflows int `json:"workflows"`
		Jobs      int `json:"jobs"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	return &StatsResult{Envelope: *env, Workflows: body.Workflows, Jobs: body.Jobs}, nil
}

// VersionResult holds the engine's version string.
type VersionResult struct {
	Envelope
	Version string
}

// Version fetches the engine's version.
func (c *Client) Version(ctx context.Context, opts ...RequestOption) (*VersionResult, error) {
	env, err := c.get(ctx, pathVersion, pathVersion, nil, opts)
	if err != nil {
		return nil, err
	}

	var body struct {
		Cromwell string `json:"cromwell"`
	}
	if err := env.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode version response: %w", err)
	}
	return &VersionResult{Envelope: *env, Version: body.Cromwell}, nil
}
