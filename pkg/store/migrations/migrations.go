// Package migrations holds the store's version-numbered idempotent
// upgrade steps, applied in order against the version row kept in
// store.TableVersion. Adapted from the teacher's pkg/database/client.go
// MigrateUp: that client walks an embedded directory of numbered SQL
// files and applies whichever the version table hasn't recorded yet.
// There is no SQL here — the store is a KV engine — so each step is a
// plain Go function instead of a .sql file, but the comparison against
// a stored version number and the skip-if-already-applied behavior are
// the same shape.
package migrations

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/certen/ledgercore/pkg/store"
)

// Step is one idempotent upgrade, identified by the version it leaves
// the store at once applied.
type Step struct {
	Version uint32
	Apply   func(store.WriteTxn) error
}

// registry lists every step in ascending version order. Empty for now:
// the schema store.go defines is the store's version 1 shape, so there
// is nothing to upgrade from yet. New steps append here, never
// renumber or remove an existing entry.
var registry = []Step{}

// CurrentVersion is the version the store is at once every registered
// step has run.
func CurrentVersion() uint32 {
	if len(registry) == 0 {
		return 1
	}
	return registry[len(registry)-1].Version
}

// Run brings db up to CurrentVersion, applying only the steps newer
// than whatever version is currently stored. A store with no version
// row yet is treated as version 1 (the shape store.go ships today) so
// a brand-new data directory never replays steps it doesn't need.
func Run(db store.Store) error {
	steps := make([]Step, len(registry))
	copy(steps, registry)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })

	return db.Update(func(txn store.WriteTxn) error {
		current, err := readVersion(txn)
		if err != nil {
			return err
		}
		for _, step := range steps {
			if step.Version <= current {
				continue
			}
			if err := step.Apply(txn); err != nil {
				return fmt.Errorf("migrations: apply version %d: %w", step.Version, err)
			}
			current = step.Version
			if err := writeVersion(txn, current); err != nil {
				return err
			}
		}
		if current == 0 {
			current = 1
		}
		return writeVersion(txn, current)
	})
}

func readVersion(txn store.ReadTxn) (uint32, error) {
	raw, err := txn.Get(store.TableVersion, store.VersionKey)
	if err != nil {
		return 0, fmt.Errorf("migrations: read version: %w", err)
	}
	if len(raw) != 4 {
		return 0, nil
	}
	return binary.BigEndian.Uint32(raw), nil
}

func writeVersion(txn store.WriteTxn, version uint32) error {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, version)
	if err := txn.Set(store.TableVersion, store.VersionKey, raw); err != nil {
		return fmt.Errorf("migrations: write version: %w", err)
	}
	return nil
}
