package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

type RunRecord struct {
	VersionedRecord
	ID               string             `json:"id"`
	CreatedAt        time.Time          `json:"created_at"`
	FinishedAt       time.Time          `json:"finished_at,omitempty"`
	Scape            string             `json:"scape"`
	MaxLength        int                `json:"max_length"`
	CorpusSize       int                `json:"corpus_size"`
	Weights          map[string]float64 `json:"weights"`
	MaxPopulation    int                `json:"max_population"`
	Seed             int64              `json:"seed"`
	Generations      int                `json:"generations"`
	FinalBestFitness float64            `json:"final_best_fitness"`
	Status           RunStatus          `json:"status"`
}

type SnapshotRecord struct {
	VersionedRecord
	RunID      string  `json:"run_id"`
	Sequence   int     `json:"sequence"`
	Generation int     `json:"generation"`
	DFA        DFA     `json:"dfa"`
	Fitness    float64 `json:"fitness"`
	Adjusted   float64 `json:"adjusted"`
	States     int     `json:"states"`
	Operation  string  `json:"operation,omitempty"`
}

type PopulationMember struct {
	DFA     DFA     `json:"dfa"`
	Fitness float64 `json:"fitness"`
}

type PopulationRecord struct {
	VersionedRecord
	RunID      string             `json:"run_id"`
	Generation int                `json:"generation"`
	Members    []PopulationMember `json:"members"`
}

type GenerationDiagnostics struct {
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	BestFitness    float64 `json:"best_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	MinFitness     float64 `json:"min_fitness"`
	StdDevFitness  float64 `json:"stddev_fitness"`
	MeanStates     float64 `json:"mean_states"`
}
