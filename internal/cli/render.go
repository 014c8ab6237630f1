package cli

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qecdec/fusionmatch/pkg/codes"
	"github.com/qecdec/fusionmatch/pkg/solver"
	"github.com/qecdec/fusionmatch/pkg/visualize"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string
	format     string
	codeType   string
	codeConfig string
	distance   int
	rounds     int
	p          float64
	seed       int64
	decode     bool
}

func newRenderCmd() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw a decoding graph as SVG or PNG",
		Long: `Render builds an example code's decoding graph, optionally samples and
decodes one random syndrome, and draws the result through graphviz with
defects highlighted and the decoded parity subgraph in bold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "decoding.svg", "output file")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: svg, png, dot (default: from file extension)")
	cmd.Flags().StringVar(&opts.codeType, "code-type", codes.TypeRepetition, "example code type")
	cmd.Flags().StringVar(&opts.codeConfig, "code-config", "", "code config overrides: TOML/JSON file or inline JSON")
	cmd.Flags().IntVarP(&opts.distance, "code-distance", "d", 5, "code distance")
	cmd.Flags().IntVar(&opts.rounds, "noisy-measurements", 0, "measurement rounds for phenomenological codes")
	cmd.Flags().Float64VarP(&opts.p, "probability", "p", 0.05, "physical error rate")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed for the sampled syndrome")
	cmd.Flags().BoolVar(&opts.decode, "decode", true, "sample and decode one syndrome")
	return cmd
}

func runRender(cmd *cobra.Command, opts renderOpts) error {
	logger := loggerFromContext(cmd.Context())
	format := opts.format
	if format == "" {
		switch {
		case strings.HasSuffix(opts.output, ".png"):
			format = "png"
		case strings.HasSuffix(opts.output, ".dot"):
			format = "dot"
		default:
			format = "svg"
		}
	}

	cfg := codes.Config{Distance: opts.distance, Rounds: opts.rounds, Probability: opts.p}
	if cfg.Rounds == 0 {
		cfg.Rounds = opts.distance
	}
	if opts.codeConfig != "" {
		if err := loadConfig(opts.codeConfig, &cfg); err != nil {
			return fmt.Errorf("--code-config: %w", err)
		}
	}
	code, err := codes.New(opts.codeType, cfg)
	if err != nil {
		return err
	}
	g, err := code.Initializer().Graph()
	if err != nil {
		return err
	}

	var defects, subgraph []int
	if opts.decode {
		rng := rand.New(rand.NewSource(opts.seed))
		pattern, _ := codes.SampleSyndrome(code, rng)
		defects = pattern.DefectVertices
		s, err := solver.NewSerialSolver(code.Initializer())
		if err != nil {
			return err
		}
		if err := s.Solve(pattern); err != nil {
			return err
		}
		if subgraph, err = s.Subgraph(); err != nil {
			return err
		}
		logger.Debug("decoded sample syndrome", "defects", len(defects), "subgraph_edges", len(subgraph))
	}

	positions := make([]visualize.Position, len(code.Positions()))
	for i, p := range code.Positions() {
		positions[i] = visualize.Position{I: p.I, J: p.J, T: p.T}
	}
	track := newProgress(logger)
	dot := visualize.BuildDOT(g, positions, defects, subgraph)
	data, err := visualize.RenderDOT(cmd.Context(), dot, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0644); err != nil {
		return err
	}
	track.done(fmt.Sprintf("rendered %s (%d vertices, %d edges)", opts.output, g.VertexNum(), g.EdgeNum()))
	return nil
}
