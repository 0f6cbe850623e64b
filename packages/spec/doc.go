// Package spec provides the immutable request and response specifications a
// test case is assembled from.
//
// A RequestSpec is a template (base URI, content type, path with {name}
// placeholders) that is expanded with a parameter binding at execution time,
// either into path segments or into the query string. A ResponseSpec is a set
// of independent checks: per-field predicates, a whole-body predicate and the
// expected status code.
package spec
