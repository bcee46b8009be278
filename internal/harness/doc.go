// Package harness runs the verification battery against a store.
//
// A catalog of scenarios is loaded once per run from a test definition
// file. Each scenario pairs a job with a verifier. For every scenario the
// Runner executes a battery of sub-cases, builds the input and expected
// answer for each from the oracle, times the store's RunJob call, and asks
// the scenario's verifier for a verdict.
//
// # Definition Format
//
// Definitions are YAML (.def, .yaml, .yml), CUE (.cue) or JSON with
// comments (.json, .hujson). All three decode to the same shape:
//
//	scenarios:
//	  - label: reduce count
//	    job:
//	      - reduce: {fun: count_inputs}
//	    verify: reduce_count
//	  - label: link next
//	    job:
//	      - link: {tag: next}
//	    verify: link_count
//	filter: [or, [[ends_with, "1"]], [[ends_with, "5"]]]
//
// Unknown fields are rejected. The optional filter replaces the default
// predicate used by the filter sub-case.
//
// # Battery
//
// Labels containing "link" (any case) run entries, bucket and filter only.
// All other labels additionally run missing, missing_twice and the five
// index sub-cases. Index sub-cases pass as skipped when the bucket's backend
// has no secondary indexes.
//
// # Failures
//
// A verifier rejection is a failed Outcome and the run continues. An error
// from RunJob is a ScenarioExecutionError and aborts the run.
package harness
