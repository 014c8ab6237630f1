package parallel

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
	"github.com/qecdec/fusionmatch/pkg/partition"
	"github.com/qecdec/fusionmatch/pkg/primal"
	"github.com/qecdec/fusionmatch/pkg/solver"
)

// DualParallelSolver parallelizes the dual side only: syndromes load
// into per-unit dual submodules concurrently, every unit is fused
// up-front, and a single serial primal module runs the event loop over
// the merged state. It trades the parallel primal's speed for the
// serial primal's simpler execution profile while keeping identical
// outputs.
type DualParallelSolver struct {
	graph   *decoding.Graph
	info    *partition.Info
	store   *dual.Store
	units   []*dual.Module
	root    *dual.Module
	primal  *primal.Module
	threads int
	pattern *decoding.SyndromePattern

	maxTreeSize int
}

var _ solver.Solver = (*DualParallelSolver)(nil)

// NewDualParallelSolver builds a dual-parallel solver from the
// initializer and a validated partition config.
func NewDualParallelSolver(ini *decoding.SolverInitializer, pcfg *partition.Config, cfg Config) (*DualParallelSolver, error) {
	inner, err := NewSolver(ini, pcfg, cfg)
	if err != nil {
		return nil, err
	}
	s := &DualParallelSolver{
		graph:       inner.graph,
		info:        inner.info,
		store:       inner.store,
		threads:     cfg.ThreadPoolSize,
		maxTreeSize: cfg.MaxTreeSize,
	}
	if s.threads <= 0 {
		s.threads = runtime.GOMAXPROCS(0)
	}
	s.units = make([]*dual.Module, s.info.UnitNum())
	for i := range s.units {
		s.units[i] = dual.NewModule(s.store)
	}
	s.root = dual.NewModule(s.store)
	s.primal = primal.NewModule(s.root)
	return s, nil
}

// Solve decodes one syndrome with parallel dual loading and a serial
// event loop.
func (s *DualParallelSolver) Solve(pattern *decoding.SyndromePattern) error {
	if s.pattern != nil {
		return solver.ErrSolverDirty
	}
	if err := s.store.LoadWeights(pattern); err != nil {
		return err
	}
	// mirrors are real from the start here; there are no base solves
	// whose boundaries they would need to fake
	for unitIndex := s.info.LeafNum(); unitIndex < s.info.UnitNum(); unitIndex++ {
		s.store.EnableUnit(unitIndex, true)
	}
	perUnit := s.info.SplitDefects(pattern)
	seen := make(map[int]bool, len(pattern.DefectVertices))
	for _, v := range pattern.DefectVertices {
		if v < 0 || v >= s.graph.VertexNum() {
			return fmt.Errorf("defect vertex %d: %w", v, decoding.ErrVertexOutOfRange)
		}
		if s.graph.IsVirtual(v) {
			return fmt.Errorf("defect on virtual vertex %d: %w", v, decoding.ErrVertexOutOfRange)
		}
		if seen[v] {
			return fmt.Errorf("defect vertex %d listed twice", v)
		}
		seen[v] = true
	}
	var group errgroup.Group
	group.SetLimit(s.threads)
	for i, defects := range perUnit {
		i, defects := i, defects
		group.Go(func() error {
			for _, v := range defects {
				s.units[i].AddDefect(v)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	s.root.Adopt(s.units...)
	s.primal.SetMaxTreeSize(s.maxTreeSize)
	s.primal.AttachLoadedDefects()
	s.primal.Run()
	s.pattern = pattern
	return nil
}

// Modules exposes the fused modules for snapshot capture.
func (s *DualParallelSolver) Modules() (*dual.Module, *primal.Module) {
	return s.root, s.primal
}

// Subgraph returns the minimum-weight parity subgraph of the last
// solve as ascending edge indices.
func (s *DualParallelSolver) Subgraph() ([]int, error) {
	if s.pattern == nil {
		return nil, solver.ErrNotSolved
	}
	return s.primal.Subgraph(), nil
}

// PerfectMatching returns the defect matching of the last solve.
func (s *DualParallelSolver) PerfectMatching() (*decoding.PerfectMatching, error) {
	if s.pattern == nil {
		return nil, solver.ErrNotSolved
	}
	return s.primal.PerfectMatching(s.pattern), nil
}

// Clear recycles all per-solve state.
func (s *DualParallelSolver) Clear() {
	s.primal.Clear()
	s.root.Clear()
	for _, u := range s.units {
		u.Clear()
	}
	s.store.Clear()
	s.pattern = nil
}
