package storage

import (
	"context"
	"sync"

	"dfaevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	snapshots   map[string][]model.SnapshotRecord
	populations map[string]model.PopulationRecord
	diagnostics map[string][]model.GenerationDiagnostics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.snapshots = make(map[string][]model.SnapshotRecord)
	s.populations = make(map[string]model.PopulationRecord)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return ErrMissingRunID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunRecord{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sortRunsNewestFirst(runs)
	return limitRuns(runs, limit), nil
}

// AppendSnapshot replaces an existing snapshot with the same sequence.
func (s *MemoryStore) AppendSnapshot(_ context.Context, snapshot model.SnapshotRecord) error {
	if snapshot.RunID == "" {
		return ErrMissingRunID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	snapshot.DFA = snapshot.DFA.Clone()
	existing := s.snapshots[snapshot.RunID]
	for i := range existing {
		if existing[i].Sequence == snapshot.Sequence {
			existing[i] = snapshot
			return nil
		}
	}
	existing = append(existing, snapshot)
	sortSnapshots(existing)
	s.snapshots[snapshot.RunID] = existing
	return nil
}

func (s *MemoryStore) GetSnapshots(_ context.Context, runID string) ([]model.SnapshotRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	snapshots, ok := s.snapshots[runID]
	if !ok {
		return nil, false, nil
	}
	out := make([]model.SnapshotRecord, len(snapshots))
	for i, snapshot := range snapshots {
		snapshot.DFA = snapshot.DFA.Clone()
		out[i] = snapshot
	}
	return out, true, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, population model.PopulationRecord) error {
	if population.RunID == "" {
		return ErrMissingRunID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.populations[population.RunID] = clonePopulation(population)
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string) (model.PopulationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.PopulationRecord{}, false, ErrNotInitialized
	}
	population, ok := s.populations[runID]
	if !ok {
		return model.PopulationRecord{}, false, nil
	}
	return clonePopulation(population), true, nil
}

func (s *MemoryStore) SaveDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	if runID == "" {
		return ErrMissingRunID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.diagnostics[runID] = append([]model.GenerationDiagnostics(nil), diagnostics...)
	return nil
}

func (s *MemoryStore) GetDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationDiagnostics(nil), diagnostics...), true, nil
}

func cloneRun(run model.RunRecord) model.RunRecord {
	if run.Weights != nil {
		weights := make(map[string]float64, len(run.Weights))
		for name, weight := range run.Weights {
			weights[name] = weight
		}
		run.Weights = weights
	}
	return run
}

func clonePopulation(population model.PopulationRecord) model.PopulationRecord {
	members := make([]model.PopulationMember, len(population.Members))
	for i, member := range population.Members {
		members[i] = model.PopulationMember{DFA: member.DFA.Clone(), Fitness: member.Fitness}
	}
	population.Members = members
	return population
}
