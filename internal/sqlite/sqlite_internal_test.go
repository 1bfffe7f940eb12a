package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/myrjola/velocoach/internal/testhelpers"
)

func Test_dataSourceNames(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		readWrite, readOnly := dataSourceNames("./velocoach.sqlite3")
		if !strings.HasPrefix(readWrite, "file:./velocoach.sqlite3?mode=rwc&_txlock=immediate&") {
			t.Errorf("unexpected read-write DSN %q", readWrite)
		}
		if !strings.HasPrefix(readOnly, "file:./velocoach.sqlite3?mode=ro&_txlock=deferred&_query_only=true&") {
			t.Errorf("unexpected read-only DSN %q", readOnly)
		}
		if strings.Contains(readWrite, "cache=shared") {
			t.Errorf("file database must not use the shared cache: %q", readWrite)
		}
	})

	t.Run("memory", func(t *testing.T) {
		readWrite, readOnly := dataSourceNames(":memory:")
		name, _, _ := strings.Cut(readWrite, "?")
		if !strings.HasPrefix(readOnly, name+"?") {
			t.Errorf("expected both pools to open %s, got %q", name, readOnly)
		}
		for _, dsn := range []string{readWrite, readOnly} {
			if !strings.HasSuffix(dsn, "mode=memory&cache=shared") {
				t.Errorf("expected shared in-memory DSN, got %q", dsn)
			}
		}
		if other, _ := dataSourceNames(":memory:"); strings.HasPrefix(other, name+"?") {
			t.Errorf("expected a fresh database per call, got %q twice", name)
		}
	})
}

func TestDatabase_Close_stopsMaintenance(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	// The maintenance must stop with Close even when ctx outlives the test.
	db, err := NewDatabase(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if err = db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-db.maintenanceDone:
	default:
		t.Fatal("maintenance still running after Close")
	}
}

func TestDatabase_Close_withoutMaintenance(t *testing.T) {
	db, err := connect(t.Context(), ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect() error = %v", err)
	}
	if err = db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
