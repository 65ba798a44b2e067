package cromwell

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// ErrNonJSONResponse is returned when the engine answers with a content
// type other than application/json. The body is not parsed in that case.
var ErrNonJSONResponse = errors.New("non-JSON response from engine")

// Envelope wraps a validated engine response: the raw JSON body plus the
// response metadata. An Envelope exists only for responses that passed the
// content-type and status checks.
type Envelope struct {
	// When is the timestamp of the call that produced this response.
	When time.Time
	// Path is the path template of the endpoint invoked, e.g.
	// "api/workflows/v1/{id}/metadata".
	Path string
	// StatusCode is the HTTP status code. Always 200 under the strict
	// validation policy.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the raw JSON response body.
	Body json.RawMessage
}

// Decode unmarshals the response body into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Body, v)
}

// APIError describes a protocol-level failure: the engine answered, in
// JSON, with a status code other than 200.
type APIError struct {
	// StatusCode is the HTTP status the engine returned.
	StatusCode int
	// Message is the server-provided error message, when present.
	Message string
	// DocURL is the server-provided documentation link, when present.
	DocURL string
	// Path is the path template of the failing endpoint.
	Path string
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("engine returned status %d for %s", e.StatusCode, e.Path)
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.DocURL != "" {
		s += " (see " + e.DocURL + ")"
	}
	return s
}

// validate enforces the uniform response policy: the content type must be
// application/json, the body must parse as JSON, and the status code must
// be exactly 200. Any other 2xx is a failure under this policy; engines
// that answer 201 on submission are rejected here.
func validate(resp *http.Response, template string, when time.Time) (*Envelope, error) {
	ct := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("%s: %w: content type %q", template, ErrNonJSONResponse, ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", template, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: invalid JSON body", template)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Path:       template,
		}
		// Best effort: error bodies carry message and documentation_url,
		// but the shape is not guaranteed.
		var probe struct {
			Message string `json:"message"`
			DocURL  string `json:"documentation_url"`
		}
		if err := json.Unmarshal(body, &probe); err == nil {
			apiErr.Message = probe.Message
			apiErr.DocURL = probe.DocURL
		}
		return nil, apiErr
	}

	return &Envelope{
		When:       when,
		Path:       template,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
