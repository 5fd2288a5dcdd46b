package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"dfaevo/internal/stats"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunCommandSQLitePersistsAndLists(t *testing.T) {
	workdir := t.TempDir()
	dbPath := filepath.Join(workdir, "dfaevo.db")
	artifactsDir := filepath.Join(workdir, "artifacts")
	store := []string{"--store", "sqlite", "--db-path", dbPath}

	out, err := runCLI(t, append([]string{
		"run",
		"--scape", "ends-in-00",
		"--generations", "50",
		"--seed", "11",
		"--artifacts-dir", artifactsDir,
	}, store...)...)
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "#1 gen=0 fitness=0.774194 states=1 op=seed q0|q0:0:q0,q0") {
		t.Fatalf("missing seed snapshot line:\n%s", out)
	}
	if !strings.Contains(out, "run id:") || !strings.Contains(out, "completed") {
		t.Fatalf("missing run summary:\n%s", out)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at %s: %v", dbPath, err)
	}

	entries, err := stats.ListRunIndex(artifactsDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	runID := entries[0].RunID

	out, err = runCLI(t, append([]string{"runs"}, store...)...)
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(out, runID) || !strings.Contains(out, "ends-in-00") {
		t.Fatalf("runs output missing run %s:\n%s", runID, out)
	}

	out, err = runCLI(t, append([]string{"snapshots", "--latest"}, store...)...)
	if err != nil {
		t.Fatalf("snapshots command: %v", err)
	}
	if !strings.Contains(out, "q0|q0:0:q0,q0") || !strings.Contains(out, "seed") {
		t.Fatalf("snapshots output missing seed snapshot:\n%s", out)
	}

	out, err = runCLI(t, append([]string{"show", runID}, store...)...)
	if err != nil {
		t.Fatalf("show command: %v", err)
	}
	if !strings.Contains(out, "FITNESS") || !strings.Contains(out, "mean states:") {
		t.Fatalf("show output incomplete:\n%s", out)
	}

	exportDir := filepath.Join(workdir, "exports")
	out, err = runCLI(t, append([]string{"export", "--latest", "--artifacts-dir", artifactsDir, "--out", exportDir}, store...)...)
	if err != nil {
		t.Fatalf("export command: %v", err)
	}
	if !strings.Contains(out, "exported run="+runID) {
		t.Fatalf("unexpected export output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(exportDir, runID, "snapshots.csv")); err != nil {
		t.Fatalf("expected exported snapshots: %v", err)
	}
}

func TestRunCommandFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	config := "scape: even-odd\npopulation: 4\ngenerations: 5\nweights:\n  change-transition: 1\n"
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, "run", "--config", path, "--generations", "3", "--quiet")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if strings.Contains(out, "#1 gen=0") {
		t.Fatalf("quiet run printed snapshots:\n%s", out)
	}
	if !regexp.MustCompile(`generations:\s+3\s`).MatchString(out) {
		t.Fatalf("expected 3 generations from the flag:\n%s", out)
	}
	if !regexp.MustCompile(`wasted:\s+3 \(duplicates=0 exhausted=3\)`).MatchString(out) {
		t.Fatalf("expected every generation exhausted on a one-state dfa:\n%s", out)
	}
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"zero population":  "population: 0\n",
		"unknown operator": "weights:\n  flip-everything: 1\n",
		"zero weights":     "weights:\n  add-state: 0\n",
		"goal above one":   "fitness_goal: 1.5\n",
		"negative length":  "max_length: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := runCLI(t, "run", "--config", path)
			if err == nil || !strings.Contains(err.Error(), "invalid run config") {
				t.Fatalf("expected invalid run config error, got %v", err)
			}
		})
	}

	if _, err := runCLI(t, "run", "--weights", "add-state"); err == nil {
		t.Fatal("expected malformed --weights to fail")
	}
	if _, err := runCLI(t, "run", "--scape", "nope", "--generations", "1"); err == nil {
		t.Fatal("expected unknown scape to fail")
	}
}

func TestEvalCommand(t *testing.T) {
	out, err := runCLI(t, "eval", "--scape", "div-3")
	if err != nil {
		t.Fatalf("eval command: %v", err)
	}
	if !regexp.MustCompile(`accuracy:\s+1\.000000`).MatchString(out) {
		t.Fatalf("expected perfect reference accuracy:\n%s", out)
	}

	out, err = runCLI(t, "eval", "--scape", "ends-in-00", "--dfa", "q0|q0:0:q0,q0", "--max-length", "2")
	if err != nil {
		t.Fatalf("eval command: %v", err)
	}
	if !strings.Contains(out, `"00"`) || !regexp.MustCompile(`corpus:\s+7\s`).MatchString(out) {
		t.Fatalf("unexpected eval output:\n%s", out)
	}

	if _, err := runCLI(t, "eval", "--scape", "ends-in-00"); err == nil {
		t.Fatal("expected eval without a reference dfa to fail")
	}
}

func TestBitstringsCommand(t *testing.T) {
	out, err := runCLI(t, "bitstrings", "1")
	if err != nil {
		t.Fatalf("bitstrings command: %v", err)
	}
	if out != "\"\"\n0\n1\n" {
		t.Fatalf("unexpected bitstrings output: %q", out)
	}

	out, err = runCLI(t, "bitstrings", "--exact", "2")
	if err != nil {
		t.Fatalf("bitstrings command: %v", err)
	}
	if out != "00\n01\n10\n11\n" {
		t.Fatalf("unexpected exact bitstrings output: %q", out)
	}

	if _, err := runCLI(t, "bitstrings", "-1"); err == nil {
		t.Fatal("expected negative length to fail")
	}
	if _, err := runCLI(t, "bitstrings", "64"); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected length 64 to be out of range, got %v", err)
	}
}

func TestScapesCommand(t *testing.T) {
	out, err := runCLI(t, "scapes")
	if err != nil {
		t.Fatalf("scapes command: %v", err)
	}
	for _, name := range []string{"bit-count", "div-3", "ends-in-00", "even-odd"} {
		if !strings.Contains(out, name) {
			t.Fatalf("scapes output missing %s:\n%s", name, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	if _, err := runCLI(t, "scapes", "--log-level", "loud"); err == nil {
		t.Fatal("expected invalid log level to fail")
	}
	if _, err := runCLI(t, "scapes", "--log-format", "xml"); err == nil {
		t.Fatal("expected invalid log format to fail")
	}
	if _, err := runCLI(t, "snapshots"); err == nil {
		t.Fatal("expected snapshots without run id or --latest to fail")
	}
	if _, err := runCLI(t, "snapshots", "--latest"); err == nil {
		t.Fatal("expected snapshots on an empty store to fail")
	}
	if _, err := runCLI(t, "frobnicate"); err == nil {
		t.Fatal("expected unknown command to fail")
	}
}
