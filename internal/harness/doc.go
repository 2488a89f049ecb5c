// Package harness runs conformance scenarios against blueprints.
//
// A scenario names a blueprint, a seed and a batch size, and lists what the
// generated batch must satisfy:
//
//	name: order_basics
//	description: "Orders stay within their declared bounds"
//	blueprint: ../blueprints/order.yaml
//	seed: 42
//	num: 50
//	expect:
//	  count: 50
//	  deterministic: true
//	  spawn_equivalent: true
//	assertions:
//	  - type: range
//	    field: quantity
//	    min: 1
//	    max: 5
//	  - type: pattern
//	    field: code
//	    pattern: "^[0-9a-f]{8}$"
//	  - type: distinct
//	    field: order_id
//	  - type: one_of
//	    field: status
//	    values: [new, paid, shipped]
//
// # Assertion Types
//
//   - range: numeric field values lie within [min, max]
//   - pattern: field values, rendered as text, match a regular expression
//   - distinct: no two items share a field value
//   - one_of: every field value is one of the listed values
//   - not_null: no field value is null
//
// Field names may be dotted paths into nested records.
//
// # Deterministic Testing
//
// Every scenario records its run in a fresh in-memory ledger, with a fixed
// run ID and a logical clock, and then replays it: "deterministic" means the
// replay reproduced the recorded fingerprint. "spawn_equivalent" checks
// that a generator spawned halfway through the batch continues with exactly
// the values the original produces.
//
// RunWithGolden additionally compares the batch, one canonical JSON item per
// line, against testdata/golden/<name>.golden.
package harness
