package codes

import (
	"errors"
	"fmt"
	"math"

	"github.com/qecdec/fusionmatch/pkg/decoding"
)

var (
	// ErrBadDistance is returned when the code distance is too small
	// or even where an odd distance is required.
	ErrBadDistance = errors.New("invalid code distance")

	// ErrBadProbability is returned when the physical error rate is
	// outside (0, 0.5).
	ErrBadProbability = errors.New("physical error rate must be in (0, 0.5)")

	// ErrUnknownCodeType is returned by [New] for an unrecognized
	// --code-type value.
	ErrUnknownCodeType = errors.New("unknown code type")
)

// Position is a vertex's visualizer coordinate: row, column and time.
type Position struct {
	I float64 `json:"i"`
	J float64 `json:"j"`
	T float64 `json:"t"`
}

// Code is an example decoding-graph generator.
type Code interface {
	// Initializer returns the decoding graph description.
	Initializer() *decoding.SolverInitializer
	// Positions returns one visualizer coordinate per vertex.
	Positions() []Position
	// ErrorProbability returns the physical error rate of edge e.
	ErrorProbability(e int) float64
}

// Config selects and parameterizes a code from CLI-ish inputs.
type Config struct {
	Distance    int     `json:"code_distance" toml:"code_distance"`
	Rounds      int     `json:"noisy_measurements" toml:"noisy_measurements"`
	Probability float64 `json:"p" toml:"p"`
	// WeightScale converts log-likelihood ratios into integer
	// weights; 0 uses the default of 500.
	WeightScale float64 `json:"weight_scale,omitempty" toml:"weight_scale"`
}

// Code type names accepted by [New] and the benchmark CLI.
const (
	TypeRepetition       = "code-capacity-repetition"
	TypePlanar           = "code-capacity-planar"
	TypePhenomenological = "phenomenological-planar"
)

// New builds the named example code.
func New(codeType string, cfg Config) (Code, error) {
	switch codeType {
	case TypeRepetition:
		return NewRepetitionCode(cfg)
	case TypePlanar:
		return NewPlanarCode(cfg)
	case TypePhenomenological:
		return NewPhenomenologicalPlanarCode(cfg)
	}
	return nil, fmt.Errorf("%q: %w", codeType, ErrUnknownCodeType)
}

// weightOf converts an error probability into an even integer weight
// proportional to its log-likelihood ratio.
func weightOf(p, scale float64) decoding.Weight {
	if scale <= 0 {
		scale = 500
	}
	w := decoding.Weight(math.Round(scale * math.Log((1-p)/p) / 2))
	if w < 1 {
		w = 1
	}
	return 2 * w
}

func (c Config) validate(needRounds bool) error {
	if c.Distance < 3 || c.Distance%2 == 0 {
		return fmt.Errorf("distance %d: %w", c.Distance, ErrBadDistance)
	}
	if c.Probability <= 0 || c.Probability >= 0.5 {
		return fmt.Errorf("p = %g: %w", c.Probability, ErrBadProbability)
	}
	if needRounds && c.Rounds < 1 {
		return fmt.Errorf("noisy measurement rounds %d: %w", c.Rounds, ErrBadDistance)
	}
	return nil
}

// RepetitionCode is the code-capacity repetition code: a chain of d-1
// syndrome vertices between two virtual boundaries.
type RepetitionCode struct {
	cfg       Config
	ini       *decoding.SolverInitializer
	positions []Position
}

// NewRepetitionCode builds a distance-d repetition code.
func NewRepetitionCode(cfg Config) (*RepetitionCode, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	d := cfg.Distance
	w := weightOf(cfg.Probability, cfg.WeightScale)
	vertexNum := d + 1
	edges := make([]decoding.WeightedEdge, d)
	positions := make([]Position, vertexNum)
	for i := 0; i < d; i++ {
		edges[i] = decoding.WeightedEdge{Left: i, Right: i + 1, Weight: w}
	}
	for v := 0; v < vertexNum; v++ {
		positions[v] = Position{I: 0, J: float64(v)}
	}
	return &RepetitionCode{
		cfg: cfg,
		ini: &decoding.SolverInitializer{
			VertexNum:       vertexNum,
			WeightedEdges:   edges,
			VirtualVertices: []int{0, d},
		},
		positions: positions,
	}, nil
}

func (c *RepetitionCode) Initializer() *decoding.SolverInitializer { return c.ini }
func (c *RepetitionCode) Positions() []Position                    { return c.positions }
func (c *RepetitionCode) ErrorProbability(int) float64             { return c.cfg.Probability }

// PlanarCode is the code-capacity planar surface code for a single
// error type: a d by d-1 grid of syndrome vertices with a virtual
// column on each side.
type PlanarCode struct {
	cfg       Config
	ini       *decoding.SolverInitializer
	positions []Position
}

// NewPlanarCode builds a distance-d planar code.
func NewPlanarCode(cfg Config) (*PlanarCode, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	c := &PlanarCode{cfg: cfg}
	c.ini, c.positions = planarLayer(cfg, 0, 0)
	return c, nil
}

// planarLayer builds one measurement round of the planar code with
// vertex indices starting at base; it is shared with the
// phenomenological code, which stacks layers.
func planarLayer(cfg Config, base int, t float64) (*decoding.SolverInitializer, []Position) {
	d := cfg.Distance
	w := weightOf(cfg.Probability, cfg.WeightScale)
	columns := d + 1 // j = 0 and j = d are virtual
	vertexNum := d * columns
	var edges []decoding.WeightedEdge
	var virtuals []int
	positions := make([]Position, vertexNum)
	at := func(i, j int) int { return base + i*columns + j }
	for i := 0; i < d; i++ {
		for j := 0; j < columns; j++ {
			positions[i*columns+j] = Position{I: float64(i), J: float64(j), T: t}
			if j == 0 || j == d {
				virtuals = append(virtuals, at(i, j))
			}
			if j+1 < columns {
				edges = append(edges, decoding.WeightedEdge{Left: at(i, j), Right: at(i, j + 1), Weight: w})
			}
			if i+1 < d && j > 0 && j < d {
				edges = append(edges, decoding.WeightedEdge{Left: at(i, j), Right: at(i + 1, j), Weight: w})
			}
		}
	}
	return &decoding.SolverInitializer{
		VertexNum:       vertexNum,
		WeightedEdges:   edges,
		VirtualVertices: virtuals,
	}, positions
}

func (c *PlanarCode) Initializer() *decoding.SolverInitializer { return c.ini }
func (c *PlanarCode) Positions() []Position                    { return c.positions }
func (c *PlanarCode) ErrorProbability(int) float64             { return c.cfg.Probability }

// PhenomenologicalPlanarCode stacks measurement rounds of the planar
// code along the time axis, with measurement-error edges joining the
// same syndrome vertex across consecutive rounds. Vertices are laid
// out round-by-round so time-axis partitions cut contiguous ranges.
type PhenomenologicalPlanarCode struct {
	cfg       Config
	ini       *decoding.SolverInitializer
	positions []Position
	layerSize int
}

// NewPhenomenologicalPlanarCode builds a distance-d planar code with
// cfg.Rounds noisy measurement rounds.
func NewPhenomenologicalPlanarCode(cfg Config) (*PhenomenologicalPlanarCode, error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	d := cfg.Distance
	w := weightOf(cfg.Probability, cfg.WeightScale)
	columns := d + 1
	layerSize := d * columns
	rounds := cfg.Rounds
	c := &PhenomenologicalPlanarCode{cfg: cfg, layerSize: layerSize}
	var edges []decoding.WeightedEdge
	var virtuals []int
	var positions []Position
	for t := 0; t < rounds; t++ {
		layer, layerPositions := planarLayer(cfg, t*layerSize, float64(t))
		edges = append(edges, layer.WeightedEdges...)
		virtuals = append(virtuals, layer.VirtualVertices...)
		positions = append(positions, layerPositions...)
		if t+1 < rounds {
			for i := 0; i < d; i++ {
				for j := 1; j < d; j++ {
					v := t*layerSize + i*columns + j
					edges = append(edges, decoding.WeightedEdge{Left: v, Right: v + layerSize, Weight: w})
				}
			}
		}
	}
	c.ini = &decoding.SolverInitializer{
		VertexNum:       rounds * layerSize,
		WeightedEdges:   edges,
		VirtualVertices: virtuals,
	}
	c.positions = positions
	return c, nil
}

func (c *PhenomenologicalPlanarCode) Initializer() *decoding.SolverInitializer { return c.ini }
func (c *PhenomenologicalPlanarCode) Positions() []Position                    { return c.positions }
func (c *PhenomenologicalPlanarCode) ErrorProbability(int) float64             { return c.cfg.Probability }

// LayerSize returns the vertex count of one measurement round.
func (c *PhenomenologicalPlanarCode) LayerSize() int { return c.layerSize }

// Rounds returns the number of measurement rounds.
func (c *PhenomenologicalPlanarCode) Rounds() int { return c.cfg.Rounds }
