// Package sink writes item batches to external destinations.
//
// Every sink implements Sink. A sink receives the whole batch and the
// column selection, projects the batch with batch.Items.Table, and writes
// the rows:
//
//   - CSV: delimited text with a configurable separator, newline and header
//   - JSONLines: one canonical JSON object per row
//   - Frame: an in-memory columnar table
//   - SQLite: rows appended to a relational table
//   - Bolt: rows stored as canonical JSON under sequence keys in a bbolt bucket
//
// Sinks consume each batch fully before returning; there is no streaming or
// back-pressure.
package sink
