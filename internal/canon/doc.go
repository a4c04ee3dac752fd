// Package canon defines the constrained value model carried in message bodies
// and its canonical byte encoding.
//
// The encoding is RFC 8785 canonical JSON with three restrictions that keep it
// deterministic across platforms and clients:
//   - no floating point numbers (integers are int64)
//   - no null
//   - strings and keys must already be NFC; they are rejected, not rewritten
//
// Canonical bytes are the only input ever fed to the content hash. Any two
// values that are field-wise equal encode to identical bytes, and values
// that differ encode differently.
package canon
