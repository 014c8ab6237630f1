package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/qecdec/fusionmatch/pkg/codes"
	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
	"github.com/qecdec/fusionmatch/pkg/parallel"
	"github.com/qecdec/fusionmatch/pkg/partition"
	"github.com/qecdec/fusionmatch/pkg/primal"
	"github.com/qecdec/fusionmatch/pkg/profile"
	"github.com/qecdec/fusionmatch/pkg/solver"
	"github.com/qecdec/fusionmatch/pkg/visualize"
)

// Primal-dual solver types accepted by --primal-dual-type.
const (
	solverSerial       = "serial"
	solverParallel     = "parallel"
	solverDualParallel = "dual-parallel"
)

// Partition strategies accepted by --partition-strategy.
const (
	strategyNone          = "none"
	strategyTimePartition = "phenomenological-time-partition"
	strategyManual        = "manual"
)

// Verifier modes accepted by --verifier.
const (
	verifierNone        = "none"
	verifierActualError = "actual-error"
	verifierExact       = "exact"
)

// benchmarkOpts holds the command-line flags of the benchmark command.
type benchmarkOpts struct {
	rounds            int
	p                 float64
	noisyMeasurements int
	codeType          string
	codeConfig        string
	primalDualType    string
	partitionStrategy string
	partitionConfig   string
	verifier          string
	profilerOutput    string
	visualizerOutput  string
	maxTreeSize       int
	threadPoolSize    int
	seed              int64
	streaming         bool
	prioritizeBase    bool
	measureInterval   time.Duration
	showProgress      bool
}

// timePartitionConfig is the --partition-config shape of the
// time-partition strategy.
type timePartitionConfig struct {
	UnitCount int `json:"unit_count" toml:"unit_count"`
}

func newBenchmarkCmd() *cobra.Command {
	var opts benchmarkOpts
	cmd := &cobra.Command{
		Use:   "benchmark <code_distance>",
		Short: "Decode random syndromes and report timing",
		Long: `Benchmark decodes -n rounds of random syndromes sampled from an example
code at physical error rate p, optionally verifying each decoded subgraph
and writing a scheduler profile for offline analysis.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			distance, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("code_distance %q: %w", args[0], err)
			}
			return runBenchmark(cmd.Context(), distance, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.rounds, "rounds", "n", 100, "number of decoding rounds")
	cmd.Flags().Float64VarP(&opts.p, "probability", "p", 0.01, "physical error rate")
	cmd.Flags().IntVar(&opts.noisyMeasurements, "noisy-measurements", 0, "measurement rounds for phenomenological codes (default: code distance)")
	cmd.Flags().StringVar(&opts.codeType, "code-type", codes.TypeRepetition, "example code: code-capacity-repetition, code-capacity-planar, phenomenological-planar")
	cmd.Flags().StringVar(&opts.codeConfig, "code-config", "", "code config overrides: TOML/JSON file or inline JSON")
	cmd.Flags().StringVar(&opts.primalDualType, "primal-dual-type", solverSerial, "solver: serial, parallel, dual-parallel")
	cmd.Flags().StringVar(&opts.partitionStrategy, "partition-strategy", strategyNone, "partition strategy: none, phenomenological-time-partition, manual")
	cmd.Flags().StringVar(&opts.partitionConfig, "partition-config", "", "partition config: TOML/JSON file or inline JSON")
	cmd.Flags().StringVar(&opts.verifier, "verifier", verifierNone, "verify decoded subgraphs: none, actual-error, exact")
	cmd.Flags().StringVar(&opts.profilerOutput, "benchmark-profiler-output", "", "write the scheduler profile to this file")
	cmd.Flags().StringVar(&opts.visualizerOutput, "visualizer-output", "", "write a snapshot of the first round to this file")
	cmd.Flags().IntVar(&opts.maxTreeSize, "max-tree-size", 0, "bound alternating trees (0 = exact MWPM)")
	cmd.Flags().IntVar(&opts.threadPoolSize, "thread-pool-size", 0, "worker count for parallel solvers (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "base random seed; round i uses seed+i")
	cmd.Flags().BoolVar(&opts.streaming, "streaming", false, "fuse units as soon as both children finish")
	cmd.Flags().BoolVar(&opts.prioritizeBase, "prioritize-base-partitions", false, "schedule leaf jobs before ready fusions")
	cmd.Flags().DurationVar(&opts.measureInterval, "mock-measure-interval", 0, "pace leaf availability to emulate real-time arrival (streaming)")
	cmd.Flags().BoolVar(&opts.showProgress, "progress", false, "show a live progress display")
	return cmd
}

// modulesProvider is satisfied by every solver variant that can expose
// its (fused) modules for snapshot capture.
type modulesProvider interface {
	Modules() (*dual.Module, *primal.Module)
}

func runBenchmark(ctx context.Context, distance int, opts benchmarkOpts) error {
	logger := loggerFromContext(ctx)
	setup := newProgress(logger)

	codeCfg := codes.Config{
		Distance:    distance,
		Rounds:      opts.noisyMeasurements,
		Probability: opts.p,
	}
	if codeCfg.Rounds == 0 {
		codeCfg.Rounds = distance
	}
	if opts.codeConfig != "" {
		if err := loadConfig(opts.codeConfig, &codeCfg); err != nil {
			return fmt.Errorf("--code-config: %w", err)
		}
	}
	code, err := codes.New(opts.codeType, codeCfg)
	if err != nil {
		return err
	}
	ini := code.Initializer()
	logger.Debug("built example code",
		"type", opts.codeType, "vertices", ini.VertexNum, "edges", len(ini.WeightedEdges))

	pcfg, err := buildPartition(code, opts)
	if err != nil {
		return err
	}

	s, err := buildSolver(ini, pcfg, opts)
	if err != nil {
		return err
	}

	profiler := profile.NewProfiler()
	if sink, ok := s.(interface{ SetEventSink(parallel.EventSink) }); ok {
		sink.SetEventSink(profiler)
	}
	var writer *profile.Writer
	if opts.profilerOutput != "" {
		header := map[string]any{
			"run_id":           uuid.NewString(),
			"code_type":        opts.codeType,
			"code_distance":    distance,
			"p":                opts.p,
			"primal_dual_type": opts.primalDualType,
			"rounds":           opts.rounds,
			"seed":             opts.seed,
		}
		partitionHeader := any(pcfg)
		if pcfg == nil {
			partitionHeader = partition.NewConfig(ini.VertexNum)
		}
		writer, err = profile.NewWriter(opts.profilerOutput, partitionHeader, header)
		if err != nil {
			return err
		}
		defer writer.Close()
	}
	setup.done(fmt.Sprintf("prepared %s solver over %d vertices", opts.primalDualType, ini.VertexNum))

	roundTimes := make([]float64, 0, opts.rounds)
	runRounds := func(report func(roundDoneMsg)) error {
		for round := 0; round < opts.rounds; round++ {
			rng := rand.New(rand.NewSource(opts.seed + int64(round)))
			pattern, _ := codes.SampleSyndrome(code, rng)
			profiler.BeginRound()
			start := time.Now()
			if err := s.Solve(pattern); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			roundTime := time.Since(start).Seconds()
			roundTimes = append(roundTimes, roundTime)

			verified, err := verifyRound(s, code, pattern, opts.verifier)
			if err != nil {
				if failure := recordFailedSyndrome(round, pattern); failure != "" {
					logger.Error("verification failed; offending syndrome recorded", "file", failure)
				}
				return fmt.Errorf("round %d: %w", round, err)
			}
			if writer != nil {
				rec := profile.RoundRecord{
					RoundTime: roundTime,
					Events:    profile.RoundEvents{Decoded: true, Verified: verified},
					DefectNum: len(pattern.DefectVertices),
					SolverProfile: profile.SolverProfile{
						Primal: profile.PrimalProfile{EventTimeVec: profiler.EventTimeVec()},
					},
				}
				if err := writer.WriteRound(rec); err != nil {
					return err
				}
			}
			if round == 0 && opts.visualizerOutput != "" {
				if err := saveSnapshot(s, code, pattern, opts.visualizerOutput); err != nil {
					return err
				}
			}
			s.Clear()
			if report != nil {
				report(roundDoneMsg{index: round, seconds: roundTime, defects: len(pattern.DefectVertices)})
			} else if (round+1)%100 == 0 {
				logger.Info("benchmark progress", "round", round+1, "of", opts.rounds)
			}
		}
		return nil
	}

	if opts.showProgress {
		err = runWithProgress(opts.rounds, runRounds)
	} else {
		err = runRounds(nil)
	}
	if err != nil {
		return err
	}

	summary := profile.Summarize(roundTimes)
	fmt.Fprintln(os.Stdout, renderSummary(summary))
	logger.Info("benchmark finished",
		"rounds", summary.Rounds,
		"mean", fmt.Sprintf("%.3fms", summary.Mean*1000),
		"total", fmt.Sprintf("%.2fs", summary.Total))
	return nil
}

// buildPartition resolves the partition strategy into a config, or nil
// for unpartitioned solving.
func buildPartition(code codes.Code, opts benchmarkOpts) (*partition.Config, error) {
	switch opts.partitionStrategy {
	case strategyNone:
		return nil, nil
	case strategyTimePartition:
		phenom, ok := code.(*codes.PhenomenologicalPlanarCode)
		if !ok {
			return nil, fmt.Errorf("--partition-strategy %s requires --code-type %s",
				strategyTimePartition, codes.TypePhenomenological)
		}
		tcfg := timePartitionConfig{UnitCount: 2}
		if opts.partitionConfig != "" {
			if err := loadConfig(opts.partitionConfig, &tcfg); err != nil {
				return nil, fmt.Errorf("--partition-config: %w", err)
			}
		}
		return codes.TimePartition(phenom, tcfg.UnitCount)
	case strategyManual:
		if opts.partitionConfig == "" {
			return nil, errors.New("--partition-strategy manual requires --partition-config")
		}
		var pcfg partition.Config
		if err := loadConfig(opts.partitionConfig, &pcfg); err != nil {
			return nil, fmt.Errorf("--partition-config: %w", err)
		}
		return &pcfg, nil
	}
	return nil, fmt.Errorf("unknown partition strategy %q", opts.partitionStrategy)
}

func buildSolver(ini *decoding.SolverInitializer, pcfg *partition.Config, opts benchmarkOpts) (solver.Solver, error) {
	parallelCfg := parallel.Config{
		ThreadPoolSize:           opts.threadPoolSize,
		Streaming:                opts.streaming,
		PrioritizeBasePartitions: opts.prioritizeBase,
		MockMeasureInterval:      opts.measureInterval,
		MaxTreeSize:              opts.maxTreeSize,
	}
	switch opts.primalDualType {
	case solverSerial:
		s, err := solver.NewSerialSolver(ini)
		if err != nil {
			return nil, err
		}
		s.SetMaxTreeSize(opts.maxTreeSize)
		return s, nil
	case solverParallel:
		if pcfg == nil {
			return nil, errors.New("--primal-dual-type parallel requires a partition strategy")
		}
		return parallel.NewSolver(ini, pcfg, parallelCfg)
	case solverDualParallel:
		if pcfg == nil {
			return nil, errors.New("--primal-dual-type dual-parallel requires a partition strategy")
		}
		return parallel.NewDualParallelSolver(ini, pcfg, parallelCfg)
	}
	return nil, fmt.Errorf("unknown primal-dual type %q", opts.primalDualType)
}

// verifyRound checks one decoded round per the --verifier mode and
// reports whether any verification ran.
func verifyRound(s solver.Solver, code codes.Code, pattern *decoding.SyndromePattern, mode string) (bool, error) {
	if mode == verifierNone {
		return false, nil
	}
	subgraph, err := s.Subgraph()
	if err != nil {
		return false, err
	}
	g, err := code.Initializer().Graph()
	if err != nil {
		return false, err
	}
	switch mode {
	case verifierActualError:
		return true, solver.VerifyParity(g, pattern, subgraph)
	case verifierExact:
		err := solver.VerifySubgraph(g, pattern, subgraph)
		if errors.Is(err, solver.ErrTooManyDefects) {
			// fall back to the parity check on oversized syndromes
			return true, solver.VerifyParity(g, pattern, subgraph)
		}
		return true, err
	}
	return false, fmt.Errorf("unknown verifier %q", mode)
}

// recordFailedSyndrome writes the offending syndrome to disk and
// returns the file name, or "" if writing failed.
func recordFailedSyndrome(round int, pattern *decoding.SyndromePattern) string {
	name := fmt.Sprintf("fusionmatch-failed-syndrome-%d.json", round)
	data, err := json.Marshal(pattern)
	if err != nil {
		return ""
	}
	if err := os.WriteFile(name, append(data, '\n'), 0644); err != nil {
		return ""
	}
	return name
}

func saveSnapshot(s solver.Solver, code codes.Code, pattern *decoding.SyndromePattern, path string) error {
	provider, ok := s.(modulesProvider)
	if !ok {
		return nil
	}
	subgraph, err := s.Subgraph()
	if err != nil {
		return err
	}
	positions := make([]visualize.Position, len(code.Positions()))
	for i, p := range code.Positions() {
		positions[i] = visualize.Position{I: p.I, J: p.J, T: p.T}
	}
	v := visualize.New(positions)
	d, p := provider.Modules()
	v.TerminalSnapshot("solved", d, p, subgraph)
	return v.SaveFile(path)
}

// loadConfig fills v from a TOML or JSON file, or from inline JSON
// when the argument starts with '{'.
func loadConfig(source string, v any) error {
	if strings.HasPrefix(strings.TrimSpace(source), "{") {
		return json.Unmarshal([]byte(source), v)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	if strings.HasSuffix(source, ".json") {
		return json.Unmarshal(data, v)
	}
	return toml.Unmarshal(data, v)
}
