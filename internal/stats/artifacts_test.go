package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dfaevo/internal/model"
)

func mustParse(t *testing.T, encoded string) model.DFA {
	t.Helper()
	dfa, err := model.ParseDFA(encoded)
	if err != nil {
		t.Fatalf("parse %q: %v", encoded, err)
	}
	return dfa
}

func sampleArtifacts(t *testing.T, runID string) RunArtifacts {
	best := mustParse(t, "q0|q0:1:q0,q1;q1:0:q1,q0")
	return RunArtifacts{
		Run: model.RunRecord{
			VersionedRecord:  model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			ID:               runID,
			CreatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Scape:            "even-odd",
			MaxLength:        4,
			MaxPopulation:    8,
			Seed:             1,
			Generations:      33,
			FinalBestFitness: 1,
			Status:           model.RunStatusCompleted,
		},
		Snapshots: []model.SnapshotRecord{
			{RunID: runID, Sequence: 1, Generation: 0, DFA: mustParse(t, "q0|q0:0:q0,q0"), Fitness: 0.5, Adjusted: 0.499987, States: 1, Operation: "seed"},
			{RunID: runID, Sequence: 2, Generation: 33, DFA: best, Fitness: 1, Adjusted: 0.999976, States: 2, Operation: "add-state"},
		},
		Diagnostics: []model.GenerationDiagnostics{{Generation: 33, PopulationSize: 8, BestFitness: 1}},
		Best:        best,
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := sampleArtifacts(t, "run-123")

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"run.json", "snapshots.csv", "diagnostics.json", "best.txt"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	csvData, err := os.ReadFile(filepath.Join(runDir, "snapshots.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "sequence,generation,fitness,adjusted,states,operation,encoding" {
		t.Fatalf("unexpected header: %s", lines[0])
	}

	snapshots, ok, err := ReadSnapshotsCSV(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read snapshots: ok=%t err=%v", ok, err)
	}
	if len(snapshots) != 2 || snapshots[1].Operation != "add-state" || !snapshots[1].DFA.Equal(artifacts.Best) {
		t.Fatalf("unexpected snapshots: %+v", snapshots)
	}
	if snapshots[0].Adjusted != 0.499987 {
		t.Fatalf("adjusted score not preserved: %v", snapshots[0].Adjusted)
	}

	run, ok, err := ReadRunRecord(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read run: ok=%t err=%v", ok, err)
	}
	if run.Scape != "even-odd" || run.Generations != 33 {
		t.Fatalf("unexpected run record: %+v", run)
	}

	best, ok, err := ReadBest(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read best: ok=%t err=%v", ok, err)
	}
	if best.Key() != artifacts.Best.Key() {
		t.Fatalf("best mismatch: %s", best.Key())
	}
}

func TestReadMissingArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	if _, ok, err := ReadRunRecord(baseDir, "nope"); ok || err != nil {
		t.Fatalf("expected missing run record, ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadSnapshotsCSV(baseDir, "nope"); ok || err != nil {
		t.Fatalf("expected missing snapshots, ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadBest(baseDir, "nope"); ok || err != nil {
		t.Fatalf("expected missing best, ok=%t err=%v", ok, err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")
	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts(t, "run-9")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	exported, err := ExportRunArtifacts(baseDir, "run-9", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"run.json", "snapshots.csv", "diagnostics.json", "best.txt"} {
		if _, err := os.Stat(filepath.Join(exported, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestRunIndexOrdering(t *testing.T) {
	baseDir := t.TempDir()
	older := sampleArtifacts(t, "older").Run
	newer := sampleArtifacts(t, "newer").Run
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	if err := AppendRunIndex(baseDir, IndexEntryFor(older, 2)); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := AppendRunIndex(baseDir, IndexEntryFor(newer, 5)); err != nil {
		t.Fatalf("append newer: %v", err)
	}
	older.FinalBestFitness = 0.75
	if err := AppendRunIndex(baseDir, IndexEntryFor(older, 3)); err != nil {
		t.Fatalf("update older: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "newer" || entries[1].RunID != "older" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[1].FinalBestFitness != 0.75 || entries[1].Snapshots != 3 {
		t.Fatalf("expected updated entry, got %+v", entries[1])
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}
