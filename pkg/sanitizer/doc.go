// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. They never fail; input that normalizes to nothing is
// returned as an empty string and left for the validator to reject.
//
// Normalization includes:
//   - Names and unit labels: trim, collapse inner whitespace, keep case
//   - Emails: trim and lowercase
package sanitizer
