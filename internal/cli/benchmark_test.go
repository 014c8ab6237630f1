package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qecdec/fusionmatch/pkg/codes"
	"github.com/qecdec/fusionmatch/pkg/parallel"
	"github.com/qecdec/fusionmatch/pkg/profile"
	"github.com/qecdec/fusionmatch/pkg/solver"
)

func TestLoadConfigInlineJSON(t *testing.T) {
	var cfg codes.Config
	if err := loadConfig(`{"code_distance": 7, "p": 0.02}`, &cfg); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Distance != 7 || cfg.Probability != 0.02 {
		t.Errorf("cfg = %+v, want distance 7 and p 0.02", cfg)
	}
}

func TestLoadConfigTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.toml")
	if err := os.WriteFile(path, []byte("code_distance = 9\np = 0.005\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var cfg codes.Config
	if err := loadConfig(path, &cfg); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Distance != 9 || cfg.Probability != 0.005 {
		t.Errorf("cfg = %+v, want distance 9 and p 0.005", cfg)
	}
}

func TestBuildPartitionStrategies(t *testing.T) {
	phenom, err := codes.NewPhenomenologicalPlanarCode(codes.Config{Distance: 3, Rounds: 5, Probability: 0.01})
	if err != nil {
		t.Fatalf("NewPhenomenologicalPlanarCode() error = %v", err)
	}
	rep, err := codes.NewRepetitionCode(codes.Config{Distance: 5, Probability: 0.01})
	if err != nil {
		t.Fatalf("NewRepetitionCode() error = %v", err)
	}

	if pcfg, err := buildPartition(rep, benchmarkOpts{partitionStrategy: strategyNone}); err != nil || pcfg != nil {
		t.Errorf("none strategy = (%v, %v), want (nil, nil)", pcfg, err)
	}
	pcfg, err := buildPartition(phenom, benchmarkOpts{
		partitionStrategy: strategyTimePartition,
		partitionConfig:   `{"unit_count": 2}`,
	})
	if err != nil {
		t.Fatalf("time partition error = %v", err)
	}
	if len(pcfg.Partitions) != 2 || len(pcfg.Fusions) != 1 {
		t.Errorf("time partition = %+v, want 2 units and 1 fusion", pcfg)
	}
	if _, err := buildPartition(rep, benchmarkOpts{partitionStrategy: strategyTimePartition}); err == nil {
		t.Errorf("time partition on a repetition code should fail")
	}
	if _, err := buildPartition(rep, benchmarkOpts{partitionStrategy: "bogus"}); err == nil {
		t.Errorf("unknown strategy accepted")
	}
}

func TestBuildSolverVariants(t *testing.T) {
	phenom, err := codes.NewPhenomenologicalPlanarCode(codes.Config{Distance: 3, Rounds: 5, Probability: 0.01})
	if err != nil {
		t.Fatalf("NewPhenomenologicalPlanarCode() error = %v", err)
	}
	pcfg, err := codes.TimePartition(phenom, 2)
	if err != nil {
		t.Fatalf("TimePartition() error = %v", err)
	}

	s, err := buildSolver(phenom.Initializer(), nil, benchmarkOpts{primalDualType: solverSerial})
	if err != nil {
		t.Fatalf("serial solver error = %v", err)
	}
	if _, ok := s.(*solver.SerialSolver); !ok {
		t.Errorf("serial solver has type %T", s)
	}
	s, err = buildSolver(phenom.Initializer(), pcfg, benchmarkOpts{primalDualType: solverParallel})
	if err != nil {
		t.Fatalf("parallel solver error = %v", err)
	}
	if _, ok := s.(*parallel.Solver); !ok {
		t.Errorf("parallel solver has type %T", s)
	}
	if _, err := buildSolver(phenom.Initializer(), nil, benchmarkOpts{primalDualType: solverParallel}); err == nil {
		t.Errorf("parallel without partition accepted")
	}
	if _, err := buildSolver(phenom.Initializer(), nil, benchmarkOpts{primalDualType: "bogus"}); err == nil {
		t.Errorf("unknown solver type accepted")
	}
}

func TestRunBenchmarkSmoke(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "profile.jsonl")
	snapshotPath := filepath.Join(dir, "snapshot.json")
	opts := benchmarkOpts{
		rounds:            3,
		p:                 0.05,
		codeType:          codes.TypeRepetition,
		primalDualType:    solverSerial,
		partitionStrategy: strategyNone,
		verifier:          verifierExact,
		profilerOutput:    profilePath,
		visualizerOutput:  snapshotPath,
		seed:              11,
	}
	if err := runBenchmark(context.Background(), 5, opts); err != nil {
		t.Fatalf("runBenchmark() error = %v", err)
	}
	profileData, err := os.ReadFile(profilePath)
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}
	if lines := strings.Count(string(profileData), "\n"); lines != 5 {
		t.Errorf("profile has %d lines, want 2 headers + 3 rounds", lines)
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRunBenchmarkParallelSmoke(t *testing.T) {
	opts := benchmarkOpts{
		rounds:            2,
		p:                 0.02,
		noisyMeasurements: 5,
		codeType:          codes.TypePhenomenological,
		primalDualType:    solverParallel,
		partitionStrategy: strategyTimePartition,
		partitionConfig:   `{"unit_count": 2}`,
		verifier:          verifierActualError,
		threadPoolSize:    2,
		seed:              3,
	}
	if err := runBenchmark(context.Background(), 3, opts); err != nil {
		t.Fatalf("runBenchmark() error = %v", err)
	}
}

func TestRenderSummaryShape(t *testing.T) {
	out := renderSummary(profile.Summarize([]float64{0.001, 0.002}))
	for _, want := range []string{"rounds", "mean", "p99", "2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
