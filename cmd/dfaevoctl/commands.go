package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dfaevo/internal/model"
	"dfaevo/pkg/dfaevo"
)

const timeLayout = "2006-01-02 15:04:05"

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		configPath string
		weights    string
		quiet      bool
	)
	cfg := defaultRunConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a search for a scape and persist its best-so-far snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			effective := defaultRunConfig()
			if configPath != "" {
				loaded, err := loadRunConfig(configPath, effective)
				if err != nil {
					return err
				}
				effective = loaded
			}
			overrideChanged(cmd, &effective, cfg)
			if cmd.Flags().Changed("weights") {
				parsed, err := parseWeights(weights)
				if err != nil {
					return err
				}
				effective.Weights = parsed
			}
			if err := effective.validate(); err != nil {
				return err
			}
			return runSearch(cmd.Context(), opts, effective, quiet)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "run config file (YAML or JSON)")
	f.StringVar(&cfg.Scape, "scape", cfg.Scape, "scape name (see dfaevoctl scapes)")
	f.IntVar(&cfg.MaxLength, "max-length", cfg.MaxLength, "longest bitstring in the corpus")
	f.IntVar(&cfg.SampleSize, "sample-size", cfg.SampleSize, "score against this many random bitstrings instead of all of them (0 disables)")
	f.IntVar(&cfg.Population, "population", cfg.Population, "maximum population size")
	f.IntVar(&cfg.Generations, "generations", cfg.Generations, "generation budget (0 runs until the fitness goal or interrupt)")
	f.Float64Var(&cfg.FitnessGoal, "fitness-goal", cfg.FitnessGoal, "stop once the best fitness reaches this value")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 picks one from the clock)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "goroutines scoring each candidate")
	f.IntVar(&cfg.MaxMutationAttempts, "max-mutation-attempts", cfg.MaxMutationAttempts, "retries per operator before a generation is wasted (0 uses the default)")
	f.StringVar(&cfg.Postprocessor, "postprocessor", cfg.Postprocessor, "best selection ranking: size_penalty|none")
	f.StringVar(&weights, "weights", "", "operator weights as name=value,... (replaces the defaults)")
	f.StringVar(&cfg.ArtifactsDir, "artifacts-dir", cfg.ArtifactsDir, "write run artifacts under this directory")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address while running")
	f.BoolVar(&quiet, "quiet", false, "print only the summary")
	return cmd
}

// overrideChanged copies explicitly set flags from flagged into cfg.
func overrideChanged(cmd *cobra.Command, cfg *runConfig, flagged runConfig) {
	changed := cmd.Flags().Changed
	if changed("scape") {
		cfg.Scape = flagged.Scape
	}
	if changed("max-length") {
		cfg.MaxLength = flagged.MaxLength
	}
	if changed("sample-size") {
		cfg.SampleSize = flagged.SampleSize
	}
	if changed("population") {
		cfg.Population = flagged.Population
	}
	if changed("generations") {
		cfg.Generations = flagged.Generations
	}
	if changed("fitness-goal") {
		cfg.FitnessGoal = flagged.FitnessGoal
	}
	if changed("seed") {
		cfg.Seed = flagged.Seed
	}
	if changed("workers") {
		cfg.Workers = flagged.Workers
	}
	if changed("max-mutation-attempts") {
		cfg.MaxMutationAttempts = flagged.MaxMutationAttempts
	}
	if changed("postprocessor") {
		cfg.Postprocessor = flagged.Postprocessor
	}
	if changed("artifacts-dir") {
		cfg.ArtifactsDir = flagged.ArtifactsDir
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flagged.MetricsAddr
	}
}

func runSearch(ctx context.Context, opts *globalOptions, cfg runConfig, quiet bool) error {
	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		stop, err := serveMetrics(cfg.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	client, err := opts.openClient(cfg.ArtifactsDir, registerer)
	if err != nil {
		return err
	}
	defer client.Close()

	req := cfg.request()
	if !quiet {
		req.OnSnapshot = func(s dfaevo.Snapshot) {
			fmt.Fprintf(opts.stdout, "#%d gen=%d fitness=%.6f states=%d op=%s %s\n",
				s.Sequence, s.Generation, s.Fitness, s.DFA.NumStates(), s.Operation, s.DFA.Key())
		}
	}

	summary, runErr := client.Run(ctx, req)
	if summary.RunID == "" {
		return runErr
	}

	table := uitable.New()
	table.MaxColWidth = 100
	table.AddRow("run id:", summary.RunID)
	table.AddRow("status:", summary.Status)
	table.AddRow("seed:", summary.Seed)
	table.AddRow("corpus:", summary.CorpusSize)
	table.AddRow("generations:", summary.Generations)
	table.AddRow("wasted:", fmt.Sprintf("%d (duplicates=%d exhausted=%d)", summary.Stats.Wasted, summary.Stats.Duplicates, summary.Stats.Exhausted))
	table.AddRow("snapshots:", summary.Snapshots)
	table.AddRow("best fitness:", formatFitness(summary.FinalBestFitness))
	table.AddRow("best states:", summary.Best.NumStates())
	table.AddRow("best:", summary.Best.Key())
	if summary.ArtifactsDir != "" {
		table.AddRow("artifacts:", summary.ArtifactsDir)
	}
	fmt.Fprintln(opts.stdout, table)

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run %s cancelled", summary.RunID)
	}
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.openClient("", nil)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("RUN ID", "CREATED", "SCAPE", "STATUS", "POPULATION", "GENERATIONS", "SEED", "BEST")
			for _, run := range runs {
				created := run.CreatedAtUTC
				if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
					created = t.Format(timeLayout)
				}
				table.AddRow(run.RunID, created, run.Scape, run.Status, run.Population, run.Generations, run.Seed, formatFitness(run.FinalBestFitness))
			}
			fmt.Fprintln(opts.stdout, table)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

// runSelector is the shared "<run-id> | --latest" argument handling.
type runSelector struct {
	latest bool
}

func (s *runSelector) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.latest, "latest", false, "use the most recent run")
}

func (s *runSelector) runID(args []string) (string, error) {
	switch {
	case len(args) == 1 && s.latest:
		return "", dfaevo.ErrRunSelection
	case len(args) == 1:
		return args[0], nil
	case s.latest:
		return "", nil
	default:
		return "", errors.New("a run id or --latest is required")
	}
}

func newSnapshotsCmd(opts *globalOptions) *cobra.Command {
	var (
		sel   runSelector
		limit int
	)
	cmd := &cobra.Command{
		Use:   "snapshots [run-id]",
		Short: "Print a run's best-so-far snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := sel.runID(args)
			if err != nil {
				return err
			}
			client, err := opts.openClient("", nil)
			if err != nil {
				return err
			}
			defer client.Close()

			snapshots, err := client.Snapshots(cmd.Context(), dfaevo.SnapshotsRequest{RunID: runID, Latest: sel.latest, Limit: limit})
			if err != nil {
				return err
			}
			writeSnapshots(opts.stdout, snapshots)
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of snapshots (0 means all)")
	return cmd
}

func writeSnapshots(w io.Writer, snapshots []model.SnapshotRecord) {
	table := uitable.New()
	table.MaxColWidth = 120
	table.AddRow("SEQ", "GENERATION", "FITNESS", "ADJUSTED", "STATES", "OPERATION", "DFA")
	for _, s := range snapshots {
		table.AddRow(s.Sequence, s.Generation, formatFitness(s.Fitness), formatFitness(s.Adjusted), s.States, s.Operation, s.DFA.Key())
	}
	fmt.Fprintln(w, table)
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	var sel runSelector
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a run with its final population and diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := sel.runID(args)
			if err != nil {
				return err
			}
			client, err := opts.openClient("", nil)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			population, err := client.Population(ctx, dfaevo.PopulationRequest{RunID: runID, Latest: sel.latest})
			if err != nil {
				return err
			}
			run, err := client.RunRecord(ctx, population.RunID)
			if err != nil {
				return err
			}
			diagnostics, err := client.Diagnostics(ctx, dfaevo.DiagnosticsRequest{RunID: run.ID})
			if err != nil {
				return err
			}

			header := uitable.New()
			header.AddRow("run id:", run.ID)
			header.AddRow("scape:", run.Scape)
			header.AddRow("status:", run.Status)
			header.AddRow("created:", run.CreatedAt.UTC().Format(timeLayout))
			if !run.FinishedAt.IsZero() {
				header.AddRow("finished:", run.FinishedAt.UTC().Format(timeLayout))
			}
			header.AddRow("max length:", run.MaxLength)
			header.AddRow("corpus:", run.CorpusSize)
			header.AddRow("seed:", run.Seed)
			header.AddRow("generations:", run.Generations)
			header.AddRow("best fitness:", formatFitness(run.FinalBestFitness))
			if n := len(diagnostics); n > 0 {
				last := diagnostics[n-1]
				header.AddRow("mean fitness:", formatFitness(last.MeanFitness))
				header.AddRow("stddev fitness:", formatFitness(last.StdDevFitness))
				header.AddRow("mean states:", strconv.FormatFloat(last.MeanStates, 'f', 2, 64))
			}
			fmt.Fprintln(opts.stdout, header)
			fmt.Fprintln(opts.stdout)

			members := uitable.New()
			members.MaxColWidth = 120
			members.AddRow("FITNESS", "STATES", "DFA")
			for _, member := range population.Members {
				members.AddRow(formatFitness(member.Fitness), member.DFA.NumStates(), member.DFA.Key())
			}
			fmt.Fprintln(opts.stdout, members)
			return nil
		},
	}
	sel.bind(cmd)
	return cmd
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		sel          runSelector
		artifactsDir string
		outDir       string
	)
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Copy a run's artifacts to another directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := sel.runID(args)
			if err != nil {
				return err
			}
			client, err := dfaevo.New(dfaevo.Options{
				StoreKind:    opts.storeKind,
				DBPath:       opts.dbPath,
				ArtifactsDir: artifactsDir,
				ExportsDir:   outDir,
				Logger:       opts.logger,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), dfaevo.ExportRequest{RunID: runID, Latest: sel.latest})
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "exported run=%s dir=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "artifacts", "directory runs wrote artifacts to")
	cmd.Flags().StringVar(&outDir, "out", "exports", "export destination")
	return cmd
}

func newEvalCmd(opts *globalOptions) *cobra.Command {
	var req dfaevo.EvaluateRequest
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a DFA (or a scape's reference DFA) against a scape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.openClient("", nil)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 120
			table.AddRow("scape:", result.Scape)
			table.AddRow("dfa:", result.DFA.Key())
			table.AddRow("states:", result.DFA.NumStates())
			table.AddRow("reachable states:", result.Trimmed.NumStates())
			table.AddRow("corpus:", result.CorpusSize)
			table.AddRow("accuracy:", formatFitness(result.Accuracy))
			table.AddRow("mismatches:", result.Mismatches)
			if result.Mismatches > 0 {
				table.AddRow("first mismatch:", strconv.Quote(result.FirstMismatch))
			}
			fmt.Fprintln(opts.stdout, table)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Scape, "scape", "even-odd", "scape name")
	f.StringVar(&req.DFA, "dfa", "", "canonical DFA encoding (empty uses the scape's reference DFA)")
	f.IntVar(&req.MaxLength, "max-length", 8, "longest bitstring in the corpus")
	f.IntVar(&req.Workers, "workers", 1, "goroutines scoring the corpus")
	return cmd
}

func newBitstringsCmd(opts *globalOptions) *cobra.Command {
	var exact bool
	cmd := &cobra.Command{
		Use:   "bitstrings <length>",
		Short: "Print every bitstring up to (or of exactly) the given length",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid length %q", args[0])
			}
			if n < 0 || n > dfaevo.MaxBitstringLength {
				return fmt.Errorf("%w: %d", dfaevo.ErrLengthOutOfRange, n)
			}
			var out []string
			if exact {
				out = dfaevo.Bitstrings(n)
			} else {
				out = dfaevo.AllBitstrings(n)
			}
			for _, s := range out {
				if s == "" {
					s = `""`
				}
				fmt.Fprintln(opts.stdout, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "only strings of exactly this length")
	return cmd
}

func newScapesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scapes",
		Short: "List the built-in scapes",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			table := uitable.New()
			table.AddRow("NAME", "REFERENCE", "DESCRIPTION")
			for _, item := range dfaevo.Scapes() {
				table.AddRow(item.Name, item.HasReference, item.Description)
			}
			fmt.Fprintln(opts.stdout, table)
			return nil
		},
	}
}

func formatFitness(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
