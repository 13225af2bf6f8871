// Package daemon owns the long-running server process.
//
// It ties the workflow manager, the job retention sweeper, and the HTTP API
// into one lifecycle guarded by a flock so only one server writes into a
// media directory at a time. Individual pipeline stages live in their own
// packages; the daemon only starts, reports on, and stops them.
package daemon
