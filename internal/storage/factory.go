package storage

import (
	"fmt"
	"log/slog"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Kinds lists the supported backends.
var Kinds = []string{KindMemory, KindSQLite, KindBadger}

func DefaultStoreKind() string {
	return KindMemory
}

// NewStore builds a backend by kind. path is the SQLite file or the Badger
// directory; memory ignores it.
func NewStore(kind, path string, logger *slog.Logger) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store requires a database path")
		}
		return NewSQLiteStore(path), nil
	case KindBadger:
		return NewBadgerStore(path, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
