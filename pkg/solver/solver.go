package solver

import (
	"errors"
	"fmt"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
	"github.com/qecdec/fusionmatch/pkg/primal"
)

var (
	// ErrSolverDirty is returned by Solve when the previous solve was
	// not cleared.
	ErrSolverDirty = errors.New("solver holds a finished solve; call Clear first")

	// ErrNotSolved is returned by output accessors before a solve.
	ErrNotSolved = errors.New("no finished solve")
)

// Solver is the shape shared by every decoder variant: solve a
// syndrome, read the results, clear for the next one.
type Solver interface {
	Solve(pattern *decoding.SyndromePattern) error
	Subgraph() ([]int, error)
	PerfectMatching() (*decoding.PerfectMatching, error)
	Clear()
}

// SerialSolver decodes syndromes with a single-threaded blossom run.
type SerialSolver struct {
	graph   *decoding.Graph
	store   *dual.Store
	dual    *dual.Module
	primal  *primal.Module
	pattern *decoding.SyndromePattern

	maxTreeSize int
}

var _ Solver = (*SerialSolver)(nil)

// NewSerialSolver builds a serial solver over the initializer's graph.
func NewSerialSolver(ini *decoding.SolverInitializer) (*SerialSolver, error) {
	g, err := ini.Graph()
	if err != nil {
		return nil, fmt.Errorf("build decoding graph: %w", err)
	}
	s := &SerialSolver{graph: g, store: dual.NewStore(g, 0)}
	s.dual = dual.NewModule(s.store)
	s.primal = primal.NewModule(s.dual)
	return s, nil
}

// SetMaxTreeSize bounds alternating trees; see primal.SetMaxTreeSize.
// It applies from the next Solve.
func (s *SerialSolver) SetMaxTreeSize(n int) {
	s.maxTreeSize = n
	s.primal.SetMaxTreeSize(n)
}

// Graph returns the decoding graph the solver operates on.
func (s *SerialSolver) Graph() *decoding.Graph { return s.graph }

// Modules exposes the dual and primal modules for snapshot capture.
func (s *SerialSolver) Modules() (*dual.Module, *primal.Module) { return s.dual, s.primal }

// Solve decodes one syndrome pattern to quiescence.
func (s *SerialSolver) Solve(pattern *decoding.SyndromePattern) error {
	if s.pattern != nil {
		return ErrSolverDirty
	}
	if err := s.store.LoadWeights(pattern); err != nil {
		return err
	}
	if err := s.primal.LoadDefects(pattern.DefectVertices); err != nil {
		return err
	}
	s.primal.Run()
	s.pattern = pattern
	return nil
}

// Subgraph returns the minimum-weight parity subgraph of the last
// solve as ascending edge indices.
func (s *SerialSolver) Subgraph() ([]int, error) {
	if s.pattern == nil {
		return nil, ErrNotSolved
	}
	return s.primal.Subgraph(), nil
}

// PerfectMatching returns the defect matching of the last solve.
func (s *SerialSolver) PerfectMatching() (*decoding.PerfectMatching, error) {
	if s.pattern == nil {
		return nil, ErrNotSolved
	}
	return s.primal.PerfectMatching(s.pattern), nil
}

// Clear recycles all per-solve state; the graph and its weights stay.
func (s *SerialSolver) Clear() {
	s.primal.Clear()
	s.dual.Clear()
	s.store.Clear()
	s.pattern = nil
}
