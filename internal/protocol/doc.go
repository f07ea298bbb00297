// Package protocol owns the outbound wire format and the per-message encode
// scope.
//
// Ownership boundary:
// - frame header and field primitives
// - extension-gated fields with fallbacks
// - scoped encode context, set before one message and cleared after it
//
// The registry ID table itself is not encoded here.
package protocol
