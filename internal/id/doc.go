// Package id generates identifiers for requests and background tasks.
//
//   - UUID: random (v4) UUIDs for request and warm-up task ids
//   - Short: 16-character hex ids for log correlation where brevity matters
//   - Valid: reports whether an incoming id is a well-formed UUID
package id
