// Package models defines domain entities for the restora restoration client.
//
// The package contains three categories of types:
//
// 1. Identity: [Session], the decoded access-token claims with a validity window
//
// 2. Read projections: [Job] and [JobPage], server-owned records the client
// renders but never mutates
//
// 3. Local references: [FileRef], a file chosen for upload before any remote
// artifact exists
//
// All network-facing shapes (request payloads, response envelopes) live in the
// api package; models holds only what the rest of the application passes around.
package models
