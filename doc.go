// Package cromwell is a client for the REST API of a Cromwell-compatible
// workflow-execution engine. Each operation maps one method call to one
// HTTP request against a configurable base URL, validates the response
// (JSON content type, status code) and returns a typed result wrapping
// the parsed body alongside the raw response metadata.
package cromwell
