package archive

import (
	"context"
	"testing"

	"github.com/certen/ledgercore/pkg/config"
)

func TestNewSinkIsNoOpWithoutDatabaseURL(t *testing.T) {
	cfg := &config.Config{}
	sink, err := NewSink(cfg)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	// Start must not panic or block even with no client configured.
	sink.Start(context.Background(), nil)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLoadMigrationsIsSortedByVersion(t *testing.T) {
	c := &Client{}
	migrations, err := c.loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatalf("expected at least one embedded migration")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Fatalf("migrations not sorted: %s >= %s", migrations[i-1].Version, migrations[i].Version)
		}
	}
}
