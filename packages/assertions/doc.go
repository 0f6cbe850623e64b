// Package assertions provides the predicates a response spec is made of and
// the evaluator that checks them against a live response.
//
// Supported predicates:
//   - Equal: value equality (numbers compare numerically)
//   - Null: value is absent or JSON null
//   - AnyOf: at least one sub-predicate holds
//   - EveryItem: every element of an array satisfies a predicate
//   - Is: the whole body equals a literal (structurally when both are JSON)
//   - MatchesSchema / MatchesSchemaFile: JSON Schema conformance
//
// Field values are extracted with gjson. When the body is an array, a field
// resolves to the list of that field across all elements.
package assertions
