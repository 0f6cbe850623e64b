// Package runner executes request/response specifications against a live
// API.
//
// It provides functionality for:
//   - Executing a single request spec and verifying the response spec
//   - Running suites of independent cases with name and tag filters
//   - Parallel execution with configurable concurrency
//   - Bailing out on the first failure
//   - Handing every exchange to trace sinks
//
// Outcomes are pass, fail (one or more assertion mismatches) or error (the
// request could not be built or completed).
package runner
