package repository

import (
	"os"
	"testing"
)

// TestMySQLStore runs the shared store suite against a real MySQL server.
// Set TEST_MYSQL_DSN (e.g. "root:pass@tcp(localhost:3306)/openkits_test?parseTime=true")
// to enable it; it is skipped otherwise.
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	store, err := NewMySQLStore(dsn, "openkits_test")
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	runStoreSuite(t, store)
}
