package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dfaevo/pkg/dfaevo"
)

func TestParseWeights(t *testing.T) {
	cases := []struct {
		name    string
		spec    string
		want    map[string]float64
		wantErr bool
	}{
		{name: "single", spec: "add-state=1", want: map[string]float64{"add-state": 1}},
		{name: "spaces", spec: " change-transition = 100 , remove-state=2.5", want: map[string]float64{"change-transition": 100, "remove-state": 2.5}},
		{name: "trailing comma", spec: "add-state=1,", want: map[string]float64{"add-state": 1}},
		{name: "missing value", spec: "add-state", wantErr: true},
		{name: "missing name", spec: "=3", wantErr: true},
		{name: "not a number", spec: "add-state=lots", wantErr: true},
		{name: "duplicate", spec: "add-state=1,add-state=2", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseWeights(tc.spec)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tc.spec, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.spec, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parse %q: got %v want %v", tc.spec, got, tc.want)
			}
		})
	}
}

func TestLoadRunConfigLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	body := `{"scape": "bit-count", "max_length": 5, "weights": {"add-state": 3}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadRunConfig(path, defaultRunConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Scape != "bit-count" || cfg.MaxLength != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Population != 8 || cfg.FitnessGoal != 1.0 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Weights, map[string]float64{"add-state": 3}) {
		t.Fatalf("weights should be replaced, got %v", cfg.Weights)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	req := cfg.request()
	if req.Scape != "bit-count" || req.MaxLength != 5 || req.Population != 8 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestLoadRunConfigKeepsDefaultWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("seed: 9\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadRunConfig(path, defaultRunConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Seed != 9 {
		t.Fatalf("seed not applied: %d", cfg.Seed)
	}
	if !reflect.DeepEqual(cfg.Weights, dfaevo.DefaultWeights()) {
		t.Fatalf("default weights lost: %v", cfg.Weights)
	}
}

func TestLoadRunConfigErrors(t *testing.T) {
	if _, err := loadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"), defaultRunConfig()); err == nil {
		t.Fatal("expected missing file to fail")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("population: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunConfig(path, defaultRunConfig()); err == nil {
		t.Fatal("expected malformed yaml to fail")
	}
}
