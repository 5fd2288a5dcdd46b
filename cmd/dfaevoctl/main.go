package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dfaevo/internal/storage"
	"dfaevo/pkg/dfaevo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	storeKind string
	dbPath    string
	logLevel  string
	logFormat string

	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "dfaevoctl",
		Short:         "Evolve DFAs that reproduce boolean predicates over bitstrings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(opts.stderr, opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "store backend: "+strings.Join(storage.Kinds, "|"))
	flags.StringVar(&opts.dbPath, "db-path", "dfaevo.db", "sqlite database file or badger directory")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text|json")

	root.AddCommand(
		newRunCmd(opts),
		newRunsCmd(opts),
		newSnapshotsCmd(opts),
		newShowCmd(opts),
		newExportCmd(opts),
		newEvalCmd(opts),
		newBitstringsCmd(opts),
		newScapesCmd(opts),
	)
	return root
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func (o *globalOptions) openClient(artifactsDir string, reg prometheus.Registerer) (*dfaevo.Client, error) {
	return dfaevo.New(dfaevo.Options{
		StoreKind:    o.storeKind,
		DBPath:       o.dbPath,
		ArtifactsDir: artifactsDir,
		Logger:       o.logger,
		Registerer:   reg,
	})
}
