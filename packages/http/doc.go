// Package http provides the HTTP client used to execute request specs.
//
// The client validates URLs at call time, optionally rate limits outgoing
// requests, and hands every completed exchange to the installed filters
// (request/response tracing) before returning it.
package http
