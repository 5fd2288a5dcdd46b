package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dfaevo/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	runFile         = "run.json"
	snapshotsFile   = "snapshots.csv"
	diagnosticsFile = "diagnostics.json"
	bestFile        = "best.txt"
)

var snapshotHeader = []string{"sequence", "generation", "fitness", "adjusted", "states", "operation", "encoding"}

type RunArtifacts struct {
	Run         model.RunRecord
	Snapshots   []model.SnapshotRecord
	Diagnostics []model.GenerationDiagnostics
	Best        model.DFA
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Scape            string  `json:"scape"`
	MaxPopulation    int     `json:"max_population"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Snapshots        int     `json:"snapshots"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	Status           string  `json:"status"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes run.json, snapshots.csv, diagnostics.json and
// best.txt under baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Run.ID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeSnapshotsCSV(filepath.Join(runDir, snapshotsFile), artifacts.Snapshots); err != nil {
		return "", err
	}
	diagnostics := artifacts.Diagnostics
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), diagnostics); err != nil {
		return "", err
	}
	if artifacts.Best.NumStates() > 0 {
		if err := os.WriteFile(filepath.Join(runDir, bestFile), []byte(artifacts.Best.Key()+"\n"), 0o644); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func writeSnapshotsCSV(path string, snapshots []model.SnapshotRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(snapshotHeader); err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		row := []string{
			strconv.Itoa(snapshot.Sequence),
			strconv.Itoa(snapshot.Generation),
			strconv.FormatFloat(snapshot.Fitness, 'f', -1, 64),
			strconv.FormatFloat(snapshot.Adjusted, 'f', -1, 64),
			strconv.Itoa(snapshot.States),
			snapshot.Operation,
			snapshot.DFA.Key(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadSnapshotsCSV parses a snapshots.csv written by WriteRunArtifacts.
func ReadSnapshotsCSV(baseDir, runID string) ([]model.SnapshotRecord, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, snapshotsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, fmt.Errorf("%s: missing header", snapshotsFile)
	}

	out := make([]model.SnapshotRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(snapshotHeader) {
			return nil, false, fmt.Errorf("%s row %d: expected %d fields, got %d", snapshotsFile, i+1, len(snapshotHeader), len(row))
		}
		record, err := parseSnapshotRow(row)
		if err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", snapshotsFile, i+1, err)
		}
		record.RunID = runID
		out = append(out, record)
	}
	return out, true, nil
}

func parseSnapshotRow(row []string) (model.SnapshotRecord, error) {
	var (
		record model.SnapshotRecord
		err    error
	)
	if record.Sequence, err = strconv.Atoi(row[0]); err != nil {
		return record, err
	}
	if record.Generation, err = strconv.Atoi(row[1]); err != nil {
		return record, err
	}
	if record.Fitness, err = strconv.ParseFloat(row[2], 64); err != nil {
		return record, err
	}
	if record.Adjusted, err = strconv.ParseFloat(row[3], 64); err != nil {
		return record, err
	}
	if record.States, err = strconv.Atoi(row[4]); err != nil {
		return record, err
	}
	record.Operation = row[5]
	if record.DFA, err = model.ParseDFA(row[6]); err != nil {
		return record, err
	}
	return record, nil
}

func ReadRunRecord(baseDir, runID string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func ReadBest(baseDir, runID string) (model.DFA, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, bestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.DFA{}, false, nil
		}
		return model.DFA{}, false, err
	}
	dfa, err := model.ParseDFA(strings.TrimSpace(string(data)))
	if err != nil {
		return model.DFA{}, false, err
	}
	return dfa, true, nil
}

// IndexEntryFor summarizes a finished run for the run index.
func IndexEntryFor(run model.RunRecord, snapshots int) RunIndexEntry {
	return RunIndexEntry{
		RunID:            run.ID,
		Scape:            run.Scape,
		MaxPopulation:    run.MaxPopulation,
		Generations:      run.Generations,
		Seed:             run.Seed,
		Snapshots:        snapshots,
		FinalBestFitness: run.FinalBestFitness,
		Status:           string(run.Status),
		CreatedAtUTC:     run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory's artifacts into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{runFile, snapshotsFile, diagnosticsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	bestPath := filepath.Join(src, bestFile)
	if _, err := os.Stat(bestPath); err == nil {
		if err := copyFile(bestPath, filepath.Join(dst, bestFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
