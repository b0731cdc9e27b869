// Package timeouts defines the durations shared by naasii commands.
package timeouts

import "time"

// Shutdown limits how long telemetry may take to flush on exit.
const Shutdown = 5 * time.Second

// LedgerBusy is how long SQLite waits on a locked game ledger before
// failing a write.
const LedgerBusy = 5 * time.Second
