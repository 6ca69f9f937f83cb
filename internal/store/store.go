// Package store defines the remote session store capability and its
// implementations: an HTTP client for the session API and an in-memory
// store backing the reference server.
package store

import "context"

// Store persists VM sessions. Every call blocks until the store answers
// or ctx ends; callers that must not block run calls on a goroutine.
type Store interface {
	// Create starts a new, empty session owned by the token's user.
	Create(ctx context.Context, token string) (Snapshot, error)
	// Fetch returns the full session.
	Fetch(ctx context.Context, token, id string) (Snapshot, error)
	// List returns one page of the caller's sessions, newest first.
	List(ctx context.Context, token string, page, size int) (Page, error)
	// Delete removes a session.
	Delete(ctx context.Context, token, id string) error
	// Upsert replaces the stored session with snap.
	Upsert(ctx context.Context, token string, snap Snapshot) error
}
