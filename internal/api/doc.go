// Package api implements the client's two outbound surfaces.
//
// [Client] talks to the restoration backend (auth, job creation, job
// listing). It is the one place credentials are attached and the one place an
// authorization rejection is recognized; see [Client.SetUnauthorizedHook].
//
// [BlobClient] talks to the blob store's upload endpoint, a separate
// unauthenticated service that accepts encoded file content and answers with
// an opaque storage key.
package api
