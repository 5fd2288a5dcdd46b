package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"dfaevo/internal/model"
)

const (
	badgerRunPrefix        = "run/"
	badgerSnapshotPrefix   = "snapshot/"
	badgerPopulationPrefix = "population/"
	badgerDiagnosticPrefix = "diagnostics/"
)

// BadgerStore keeps records in an embedded Badger key-value store. An empty
// path selects Badger's in-memory mode.
type BadgerStore struct {
	path   string
	logger *slog.Logger

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(path string, logger *slog.Logger) *BadgerStore {
	return &BadgerStore{path: path, logger: logger}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	var opts badger.Options
	if s.path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.path, 0o750); err != nil {
			return fmt.Errorf("create badger directory %s: %w", s.path, err)
		}
		opts = badger.DefaultOptions(s.path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if s.logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: s.logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) SaveRun(_ context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return ErrMissingRunID
	}
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.set(runKey(run.ID), payload)
}

func (s *BadgerStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.get(runKey(id))
	if err != nil || !ok {
		return model.RunRecord{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *BadgerStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	runs := make([]model.RunRecord, 0)
	err := s.scan([]byte(badgerRunPrefix), func(key, payload []byte) error {
		run, err := DecodeRun(payload)
		if err != nil {
			return fmt.Errorf("decode run %s: %w", key, err)
		}
		runs = append(runs, run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRunsNewestFirst(runs)
	return limitRuns(runs, limit), nil
}

func (s *BadgerStore) AppendSnapshot(_ context.Context, snapshot model.SnapshotRecord) error {
	if snapshot.RunID == "" {
		return ErrMissingRunID
	}
	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return s.set(snapshotKey(snapshot.RunID, snapshot.Sequence), payload)
}

func (s *BadgerStore) GetSnapshots(_ context.Context, runID string) ([]model.SnapshotRecord, bool, error) {
	snapshots := make([]model.SnapshotRecord, 0)
	err := s.scan(snapshotPrefix(runID), func(key, payload []byte) error {
		snapshot, err := DecodeSnapshot(payload)
		if err != nil {
			return fmt.Errorf("decode snapshot %s: %w", key, err)
		}
		snapshots = append(snapshots, snapshot)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if len(snapshots) == 0 {
		return nil, false, nil
	}
	sortSnapshots(snapshots)
	return snapshots, true, nil
}

func (s *BadgerStore) SavePopulation(_ context.Context, population model.PopulationRecord) error {
	if population.RunID == "" {
		return ErrMissingRunID
	}
	payload, err := EncodePopulation(population)
	if err != nil {
		return err
	}
	return s.set([]byte(badgerPopulationPrefix+population.RunID), payload)
}

func (s *BadgerStore) GetPopulation(_ context.Context, runID string) (model.PopulationRecord, bool, error) {
	payload, ok, err := s.get([]byte(badgerPopulationPrefix + runID))
	if err != nil || !ok {
		return model.PopulationRecord{}, false, err
	}
	population, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationRecord{}, false, fmt.Errorf("decode population %s: %w", runID, err)
	}
	return population, true, nil
}

func (s *BadgerStore) SaveDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	if runID == "" {
		return ErrMissingRunID
	}
	payload, err := EncodeDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.set([]byte(badgerDiagnosticPrefix+runID), payload)
}

func (s *BadgerStore) GetDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	payload, ok, err := s.get([]byte(badgerDiagnosticPrefix + runID))
	if err != nil || !ok {
		return nil, false, err
	}
	diagnostics, err := DecodeDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *BadgerStore) set(key, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payload)
	})
}

func (s *BadgerStore) get(key []byte) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) scan(prefix []byte, visit func(key, payload []byte) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := visit(item.KeyCopy(nil), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

func runKey(id string) []byte {
	return []byte(badgerRunPrefix + id)
}

func snapshotPrefix(runID string) []byte {
	return []byte(badgerSnapshotPrefix + runID + "/")
}

func snapshotKey(runID string, sequence int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", badgerSnapshotPrefix, runID, sequence))
}
