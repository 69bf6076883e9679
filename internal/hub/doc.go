// Package hub is the core of the sign-in board: it binds session lifecycle
// events to the connection registry, serves the cached board and the
// location list, and turns accepted update submissions into a fan-out to
// every registered session.
//
// The hub never reports failures to its callers. Load failures surface as
// nil results, rejected updates as no-ops, and both leave a log record.
package hub
