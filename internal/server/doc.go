// Package server provides a reference implementation of the session store
// API, backed by an in-memory store.
//
// # Endpoints
//
//   - POST /api/session - create an empty session
//   - GET /api/session/{id} - fetch a session
//   - PUT /api/session/{id} - replace (or insert) a session
//   - DELETE /api/session/{id} - delete a session
//   - GET /api/sessions?page=&size= - list the caller's sessions, newest first
//
// Errors are returned as {"errors": "<message>"} with a 4xx status.
//
// # Authentication
//
// Requests carry "Authorization: Bearer <token>". Tokens are verified
// against an argon2id hash; a verified token is cached for a while so the
// hash runs once per token rather than per request. Verification attempts
// are rate limited per client IP, and repeated failures block the client
// with exponential backoff. Sessions are private to the token that created
// them.
package server
