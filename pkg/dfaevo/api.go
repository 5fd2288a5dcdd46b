package dfaevo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"dfaevo/internal/automaton"
	"dfaevo/internal/metrics"
	"dfaevo/internal/model"
	"dfaevo/internal/platform"
	"dfaevo/internal/scape"
	"dfaevo/internal/stats"
	"dfaevo/internal/storage"
)

const (
	defaultDBPath      = "dfaevo.db"
	defaultExportsDir  = "exports"
	defaultScape       = "ends-in-00"
	defaultPopulation  = 8
	defaultFitnessGoal = 1.0
	defaultRunsLimit   = 20
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrNoRuns       = errors.New("no runs available")
	ErrNoReference  = errors.New("scape has no reference dfa")
	ErrRunSelection = errors.New("use either run id or latest")
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// Registerer receives the search metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	artifactsDir string
	exportsDir   string
	logger       *slog.Logger
	recorder     metrics.Recorder
}

// RunRequest describes one run. MaxLength is taken as given, so zero
// yields a corpus holding only the empty string.
type RunRequest struct {
	Scape      string
	MaxLength  int
	SampleSize int
	Population int
	// Generations caps the run. Zero runs until the fitness goal or until
	// ctx is done.
	Generations         int
	FitnessGoal         float64
	Seed                int64
	Workers             int
	Weights             map[string]float64
	MaxMutationAttempts int
	Postprocessor       string
	OnSnapshot          func(Snapshot)
}

type RunSummary struct {
	RunID            string
	Status           model.RunStatus
	Seed             int64
	CorpusSize       int
	Generations      int
	Snapshots        int
	Best             DFA
	FinalBestFitness float64
	Stats            Stats
	ArtifactsDir     string
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Scape            string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
	Status           model.RunStatus
}

type SnapshotsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type PopulationRequest struct {
	RunID  string
	Latest bool
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type EvaluateRequest struct {
	Scape string
	// DFA is a canonical encoding. Empty means the scape's reference DFA.
	DFA       string
	MaxLength int
	Workers   int
}

type EvaluateResult struct {
	Scape string
	DFA   DFA
	// Trimmed is DFA without its unreachable states.
	Trimmed       DFA
	Accuracy      float64
	CorpusSize    int
	Mismatches    int
	FirstMismatch string
}

type ScapeItem struct {
	Name         string
	Description  string
	HasReference bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == storage.KindSQLite {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if opts.Registerer != nil {
		recorder = metrics.NewPrometheusRecorder(opts.Registerer)
	}

	store, err := storage.NewStore(storeKind, dbPath, logger)
	if err != nil {
		return nil, err
	}
	polis := platform.NewPolis(platform.Config{Store: store, Logger: logger})
	if err := polis.Init(context.Background()); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:        store,
		polis:        polis,
		artifactsDir: opts.ArtifactsDir,
		exportsDir:   exportsDir,
		logger:       logger,
		recorder:     recorder,
	}, nil
}

func (c *Client) Close() error {
	_ = c.polis.StopWithReason(platform.StopReasonShutdown)
	return storage.CloseIfSupported(c.store)
}

// Stop cancels an active run started by Run.
func (c *Client) Stop(runID string) bool {
	return c.polis.StopRun(runID)
}

// Run searches for a DFA reproducing the named scape and persists the run.
// On cancellation the partial run is still stored, the summary is returned
// and the error is ctx's.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Scape == "" {
		req.Scape = defaultScape
	}
	if req.MaxLength < 0 {
		return RunSummary{}, fmt.Errorf("%w: max length %d", ErrLengthOutOfRange, req.MaxLength)
	}
	if req.Population <= 0 {
		req.Population = defaultPopulation
	}
	if req.Generations < 0 {
		return RunSummary{}, fmt.Errorf("generations must be >= 0, got %d", req.Generations)
	}
	if req.FitnessGoal <= 0 {
		req.FitnessGoal = defaultFitnessGoal
	}
	if req.Workers <= 0 {
		req.Workers = 1
	}
	if len(req.Weights) == 0 {
		req.Weights = DefaultWeights()
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	def, err := scape.Lookup(req.Scape)
	if err != nil {
		return RunSummary{}, err
	}
	search, evaluator, err := newSearch(def.Name, def.Predicate, req.MaxLength, req.Weights, req.Population,
		WithSeed(req.Seed),
		WithSampleSize(req.SampleSize),
		WithWorkers(req.Workers),
		WithMaxGenerations(req.Generations),
		WithMaxMutationAttempts(req.MaxMutationAttempts),
		WithPostprocessor(req.Postprocessor),
		WithLogger(c.logger),
		withRecorder(c.recorder),
	)
	if err != nil {
		return RunSummary{}, err
	}

	weights := make(map[string]float64, len(req.Weights))
	for name, weight := range req.Weights {
		weights[name] = weight
	}
	run := model.RunRecord{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Scape:         def.Name,
		MaxLength:     req.MaxLength,
		CorpusSize:    evaluator.CorpusSize(),
		Weights:       weights,
		MaxPopulation: req.Population,
		Seed:          req.Seed,
	}

	result, runErr := c.polis.RunSearch(ctx, platform.RunConfig{
		Run:         run,
		Search:      search,
		FitnessGoal: req.FitnessGoal,
		OnSnapshot:  req.OnSnapshot,
	})
	if result.Run.ID == "" {
		return RunSummary{}, runErr
	}

	summary := RunSummary{
		RunID:            result.Run.ID,
		Status:           result.Run.Status,
		Seed:             req.Seed,
		CorpusSize:       result.Run.CorpusSize,
		Generations:      result.Run.Generations,
		Snapshots:        len(result.Snapshots),
		Best:             result.Best,
		FinalBestFitness: result.Run.FinalBestFitness,
		Stats:            result.Stats,
	}

	if c.artifactsDir != "" {
		runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
			Run:         result.Run,
			Snapshots:   result.Snapshots,
			Diagnostics: result.Diagnostics,
			Best:        result.Best,
		})
		if err != nil {
			return summary, errors.Join(runErr, err)
		}
		if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntryFor(result.Run, len(result.Snapshots))); err != nil {
			return summary, errors.Join(runErr, err)
		}
		summary.ArtifactsDir = filepath.Clean(runDir)
	}
	return summary, runErr
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:            run.ID,
			CreatedAtUTC:     run.CreatedAt.UTC().Format(time.RFC3339Nano),
			Scape:            run.Scape,
			Seed:             run.Seed,
			Population:       run.MaxPopulation,
			Generations:      run.Generations,
			FinalBestFitness: run.FinalBestFitness,
			Status:           run.Status,
		})
	}
	return out, nil
}

// RunRecord returns the stored record of a run.
func (c *Client) RunRecord(ctx context.Context, runID string) (model.RunRecord, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

func (c *Client) Snapshots(ctx context.Context, req SnapshotsRequest) ([]model.SnapshotRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	snapshots, ok, err := c.store.GetSnapshots(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(snapshots) > req.Limit {
		snapshots = snapshots[:req.Limit]
	}
	return snapshots, nil
}

func (c *Client) Population(ctx context.Context, req PopulationRequest) (model.PopulationRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return model.PopulationRecord{}, err
	}
	population, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return model.PopulationRecord{}, err
	}
	if !ok {
		return model.PopulationRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return population, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// Export copies a run's artifacts out of the artifacts directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if c.artifactsDir == "" {
		return ExportSummary{}, errors.New("export requires an artifacts directory")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID := req.RunID
	if req.Latest {
		if runID != "" {
			return ExportSummary{}, ErrRunSelection
		}
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, ErrNoRuns
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Evaluate scores a DFA against a scape over every bitstring up to
// MaxLength. A zero MaxLength scores the empty string alone.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	if req.Scape == "" {
		req.Scape = defaultScape
	}
	if err := scape.CheckLength(req.MaxLength); err != nil {
		return EvaluateResult{}, err
	}
	def, err := scape.Lookup(req.Scape)
	if err != nil {
		return EvaluateResult{}, err
	}

	var dfa DFA
	if req.DFA != "" {
		dfa, err = ParseDFA(req.DFA)
		if err != nil {
			return EvaluateResult{}, err
		}
	} else {
		if def.Reference == nil {
			return EvaluateResult{}, fmt.Errorf("%w: %s", ErrNoReference, def.Name)
		}
		dfa = def.Reference()
	}

	evaluator, err := scape.NewPredicateScape(def.Name, def.Predicate, scape.AllBitstrings(req.MaxLength), req.Workers)
	if err != nil {
		return EvaluateResult{}, err
	}
	fitness, trace, err := evaluator.Evaluate(ctx, dfa)
	if err != nil {
		return EvaluateResult{}, err
	}

	out := EvaluateResult{
		Scape:      def.Name,
		DFA:        dfa,
		Trimmed:    automaton.Trim(dfa),
		Accuracy:   float64(fitness),
		CorpusSize: evaluator.CorpusSize(),
	}
	if mismatches, ok := trace["mismatches"].(int); ok {
		out.Mismatches = mismatches
	}
	if first, ok := trace["first_mismatch"].(string); ok {
		out.FirstMismatch = first
	}
	return out, nil
}

// Scapes lists the built-in scapes.
func Scapes() []ScapeItem {
	defs := scape.Definitions()
	out := make([]ScapeItem, 0, len(defs))
	for _, def := range defs {
		out = append(out, ScapeItem{
			Name:         def.Name,
			Description:  def.Description,
			HasReference: def.Reference != nil,
		})
	}
	return out
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", ErrRunSelection
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[0].ID, nil
}
