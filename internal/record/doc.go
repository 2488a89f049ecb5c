// Package record provides the immutable record values emitted by custom
// generators, together with the canonical JSON encoding and content
// fingerprints used to compare generated batches across runs.
//
// Key properties:
//   - A Type is an ordered list of field names plus a display name
//   - Records are immutable; accessors return copies
//   - Two records are equal iff their field sequences are equal
//   - Canonical JSON follows RFC 8785 (UTF-16 key order, NFC strings)
package record
