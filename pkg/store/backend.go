package store

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// Backend names one of the pluggable cometbft-db engines the store can
// run on. The spec treats the engine itself as out of scope; only this
// transactional contract is specified, so any of these may be swapped
// without touching ledger logic.
type Backend string

const (
	BackendGoLevelDB Backend = "goleveldb"
	BackendBadgerDB  Backend = "badgerdb"
	BackendBoltDB    Backend = "boltdb"
	BackendMemDB     Backend = "memdb"
)

// OpenBackend opens (creating if necessary) the named database under
// dataDir using the requested engine, mirroring the dbProvider pattern
// the teacher wires its CometBFT node with.
func OpenBackend(name string, dataDir string, backend Backend) (dbm.DB, error) {
	switch backend {
	case BackendGoLevelDB, BackendBadgerDB, BackendBoltDB, BackendMemDB:
		db, err := dbm.NewDB(name, dbm.BackendType(backend), dataDir)
		if err != nil {
			return nil, fmt.Errorf("store: open %s backend %q: %w", backend, name, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
