// Package dblock serializes Postgres integration tests across test binaries.
// Packages run in parallel under `go test ./...` and share one database, so
// each test holds a loopback listener for as long as it touches the schema.
package dblock

import (
	"net"
	"os"
	"testing"
	"time"
)

const (
	defaultAddr = "127.0.0.1:45432"
	waitLimit   = 2 * time.Minute
)

// Acquire blocks until the lock is free and releases it when tb finishes.
func Acquire(tb testing.TB) {
	tb.Helper()
	addr := os.Getenv("LEDGER_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultAddr
	}
	deadline := time.Now().Add(waitLimit)
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			tb.Cleanup(func() { ln.Close() })
			return
		}
		if time.Now().After(deadline) {
			tb.Fatalf("dblock: %s still held after %s: %v", addr, waitLimit, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
