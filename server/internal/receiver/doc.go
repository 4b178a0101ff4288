// Package receiver implements entryrpc.EntryServiceServer, the gRPC endpoint
// that accepts benchmark entries pushed by benchctl.
//
// Receiver.Ingest is shared with the HTTP ingest route: it appends the entry
// to the store, compares it with the suite's baseline and feeds the changes
// to the alert engine. Validation and out-of-order errors map to
// codes.InvalidArgument on the gRPC side. Authentication is enforced upstream
// by the gRPC server interceptor (see package auth).
package receiver
