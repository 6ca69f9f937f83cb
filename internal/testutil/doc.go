// Package testutil provides shared helpers for rain tests: sample programs,
// a session store served over HTTP, a recording notifier and contexts
// bounded by the test deadline.
//
// Packages that testutil imports (server, store) cannot use it from their
// own internal tests.
package testutil
