// Package writers turns protocol messages into persisted outputs.
//
// Design:
//   • Tables own the TSV layout; row text comes from internal/output.
//   • The archive stores every protocol message as one JSON line via pkg/api.
//   • Nothing here decides when to flush; the collector does.
package writers
