package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dfaevo/internal/evo"
	"dfaevo/internal/model"
	"dfaevo/internal/storage"
)

var (
	ErrNotStarted     = errors.New("polis is not initialized")
	ErrRunActive      = errors.New("run is already active")
	ErrSearchRequired = errors.New("search is required")
)

type Config struct {
	Store  storage.Store
	Logger *slog.Logger
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// RunConfig describes one persisted search. Run is the record template: its
// ID is required, CreatedAt defaults to now and Status is managed here.
type RunConfig struct {
	Run    model.RunRecord
	Search *evo.Search
	// FitnessGoal ends the run once a snapshot reaches it. Zero disables it.
	FitnessGoal float64
	OnSnapshot  func(evo.Snapshot)
}

type RunResult struct {
	Run         model.RunRecord
	Snapshots   []model.SnapshotRecord
	Diagnostics []model.GenerationDiagnostics
	Population  model.PopulationRecord
	Best        model.DFA
	Stats       evo.Stats
}

// Polis owns the store and the set of active runs.
type Polis struct {
	store  storage.Store
	logger *slog.Logger

	mu             sync.Mutex
	started        bool
	lastStopReason StopReason
	runs           map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Polis{
		store:          cfg.Store,
		logger:         logger,
		lastStopReason: StopReasonNormal,
		runs:           make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

// ActiveRuns lists the ids of runs currently inside RunSearch.
func (p *Polis) ActiveRuns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.runs))
	for id := range p.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StopRun cancels an active run. It reports false when no such run exists.
func (p *Polis) StopRun(runID string) bool {
	p.mu.Lock()
	cancel, ok := p.runs[runID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (p *Polis) Stop() {
	_ = p.StopWithReason(StopReasonNormal)
}

// StopWithReason cancels every active run and marks the polis stopped.
func (p *Polis) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if reason != StopReasonNormal && reason != StopReasonShutdown {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.started = false
	p.lastStopReason = reason
	return nil
}

func (p *Polis) LastStopReason() StopReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStopReason
}

// RunSearch pulls snapshots from cfg.Search and persists the run record,
// each snapshot and its diagnostics, then the final population. The run
// ends at the fitness goal, the search's generation limit, a search error,
// or cancellation of ctx (or StopRun). Persistence outlives cancellation so
// a stopped run is still recorded as cancelled. The returned error is nil
// for completed runs and the cause otherwise; the result is filled either
// way once the run record was saved.
func (p *Polis) RunSearch(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if cfg.Search == nil {
		return RunResult{}, ErrSearchRequired
	}
	if cfg.Run.ID == "" {
		return RunResult{}, storage.ErrMissingRunID
	}
	if !p.Started() {
		return RunResult{}, ErrNotStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(cfg.Run.ID, cancel); err != nil {
		return RunResult{}, err
	}
	defer p.unregisterRun(cfg.Run.ID)

	persistCtx := context.WithoutCancel(ctx)
	run := cfg.Run
	run.VersionedRecord = storage.CurrentVersion()
	run.Status = model.RunStatusRunning
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if err := p.store.SaveRun(persistCtx, run); err != nil {
		return RunResult{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	p.logger.Info("run started", "run_id", run.ID, "scape", run.Scape, "max_population", run.MaxPopulation)

	result := RunResult{}
	var runErr error
	for snapshot, err := range cfg.Search.Snapshots(runCtx) {
		if err != nil {
			runErr = err
			break
		}
		record := model.SnapshotRecord{
			VersionedRecord: storage.CurrentVersion(),
			RunID:           run.ID,
			Sequence:        snapshot.Sequence,
			Generation:      snapshot.Generation,
			DFA:             snapshot.DFA,
			Fitness:         snapshot.Fitness,
			Adjusted:        snapshot.Adjusted,
			States:          snapshot.DFA.NumStates(),
			Operation:       snapshot.Operation,
		}
		if err := p.store.AppendSnapshot(persistCtx, record); err != nil {
			runErr = fmt.Errorf("append snapshot %d: %w", record.Sequence, err)
			break
		}
		result.Snapshots = append(result.Snapshots, record)
		result.Diagnostics = append(result.Diagnostics, cfg.Search.Diagnostics())
		result.Best = snapshot.DFA
		run.FinalBestFitness = snapshot.Fitness
		if cfg.OnSnapshot != nil {
			cfg.OnSnapshot(snapshot)
		}
		if cfg.FitnessGoal > 0 && snapshot.Fitness >= cfg.FitnessGoal {
			break
		}
	}

	switch {
	case runErr == nil:
		run.Status = model.RunStatusCompleted
	case errors.Is(runErr, evo.ErrGenerationLimit):
		run.Status = model.RunStatusCompleted
		runErr = nil
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		run.Status = model.RunStatusCancelled
	default:
		run.Status = model.RunStatusFailed
	}

	generation := cfg.Search.Generation()
	if n := len(result.Diagnostics); n == 0 || result.Diagnostics[n-1].Generation != generation {
		result.Diagnostics = append(result.Diagnostics, cfg.Search.Diagnostics())
	}
	result.Population = populationRecord(run.ID, generation, cfg.Search.Population())
	result.Stats = cfg.Search.Stats()
	run.Generations = generation
	run.FinishedAt = time.Now().UTC()

	if err := p.store.SavePopulation(persistCtx, result.Population); err != nil {
		return result, fmt.Errorf("save population %s: %w", run.ID, err)
	}
	if err := p.store.SaveDiagnostics(persistCtx, run.ID, result.Diagnostics); err != nil {
		return result, fmt.Errorf("save diagnostics %s: %w", run.ID, err)
	}
	if err := p.store.SaveRun(persistCtx, run); err != nil {
		return result, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	result.Run = run

	p.logger.Info("run finished",
		"run_id", run.ID,
		"status", run.Status,
		"generations", run.Generations,
		"snapshots", len(result.Snapshots),
		"best_fitness", run.FinalBestFitness,
	)
	return result, runErr
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

func populationRecord(runID string, generation int, population evo.Population) model.PopulationRecord {
	members := population.Members()
	out := model.PopulationRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Generation:      generation,
		Members:         make([]model.PopulationMember, 0, len(members)),
	}
	for _, member := range members {
		out.Members = append(out.Members, model.PopulationMember{DFA: member.DFA, Fitness: member.Fitness})
	}
	return out
}
