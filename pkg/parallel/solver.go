package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qecdec/fusionmatch/pkg/decoding"
	"github.com/qecdec/fusionmatch/pkg/dual"
	"github.com/qecdec/fusionmatch/pkg/partition"
	"github.com/qecdec/fusionmatch/pkg/primal"
	"github.com/qecdec/fusionmatch/pkg/solver"
)

var (
	// ErrVertexCountMismatch is returned when the partition config and
	// the graph disagree about the number of vertices.
	ErrVertexCountMismatch = errors.New("partition config and graph vertex counts differ")

	// ErrSiblingCrossingEdge is returned when an edge connects two
	// units that are not ancestor and descendant in the fusion tree.
	// Such an edge has no interface vertex to mirror; the caller must
	// re-number vertices so every cut passes through an interface.
	ErrSiblingCrossingEdge = errors.New("edge crosses sibling partitions without an interface vertex")
)

// Config tunes the parallel solver's scheduling.
type Config struct {
	// ThreadPoolSize is the worker count; 0 uses GOMAXPROCS.
	ThreadPoolSize int
	// Streaming fuses a parent as soon as both children finish. The
	// default batch mode starts fusing only after every base partition
	// is done, which optimizes aggregate throughput over latency.
	Streaming bool
	// PrioritizeBasePartitions makes workers prefer leaf jobs over
	// ready fusions when both are queued.
	PrioritizeBasePartitions bool
	// MockMeasureInterval, in streaming mode, delays leaf i's
	// availability by i intervals to emulate real-time arrival.
	MockMeasureInterval time.Duration
	// MaxTreeSize bounds alternating trees; 0 keeps the solver exact.
	MaxTreeSize int
}

// EventSink receives the per-unit timing events of a solve; the
// benchmark profiler implements it.
type EventSink interface {
	RecordEvent(unitIndex, threadIndex int, start, end time.Time)
}

type unitState int8

const (
	unitPending unitState = iota
	unitBaseRunning
	unitBaseDone
	unitFusing
	unitDone
)

// unit is one node of the fusion tree with its private submodules.
type unit struct {
	index   int
	info    partition.UnitInfo
	dual    *dual.Module
	primal  *primal.Module
	state   unitState
	defects []int
}

// Solver is the fully parallel decoder: parallel base solves plus
// parallel fusion along the partition's fusion tree.
type Solver struct {
	graph   *decoding.Graph
	info    *partition.Info
	store   *dual.Store
	units   []*unit
	cfg     Config
	events  EventSink
	pattern *decoding.SyndromePattern
}

var _ solver.Solver = (*Solver)(nil)

// NewSolver builds a parallel solver from the initializer and a
// validated partition config.
func NewSolver(ini *decoding.SolverInitializer, pcfg *partition.Config, cfg Config) (*Solver, error) {
	g, err := ini.Graph()
	if err != nil {
		return nil, fmt.Errorf("build decoding graph: %w", err)
	}
	info, err := pcfg.Info()
	if err != nil {
		return nil, fmt.Errorf("partition config: %w", err)
	}
	if pcfg.VertexNum != g.VertexNum() {
		return nil, fmt.Errorf("config %d vs graph %d: %w", pcfg.VertexNum, g.VertexNum(), ErrVertexCountMismatch)
	}
	s := &Solver{graph: g, info: info, cfg: cfg}
	s.store = dual.NewStore(g, info.UnitNum())
	for v := 0; v < g.VertexNum(); v++ {
		if u := info.VertexToOwningUnit[v]; u >= info.LeafNum() {
			s.store.SetMirror(v, u)
		}
	}
	if err := s.validateEdgeOwnership(); err != nil {
		return nil, err
	}
	s.units = make([]*unit, info.UnitNum())
	for i := range s.units {
		d := dual.NewModule(s.store)
		s.units[i] = &unit{index: i, info: info.Units[i], dual: d, primal: primal.NewModule(d)}
	}
	return s, nil
}

// validateEdgeOwnership checks that every crossing edge connects an
// ancestor unit to a descendant, so the ancestor endpoint can be
// mirrored. Chunks are checked concurrently; decoding graphs run into
// millions of edges.
func (s *Solver) validateEdgeOwnership() error {
	const chunk = 1 << 16
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < s.graph.EdgeNum(); lo += chunk {
		lo := lo
		hi := min(lo+chunk, s.graph.EdgeNum())
		group.Go(func() error {
			for e := lo; e < hi; e++ {
				l, r := s.graph.Endpoints(e)
				ol := s.info.VertexToOwningUnit[l]
				or := s.info.VertexToOwningUnit[r]
				if ol == or || s.isAncestor(ol, or) || s.isAncestor(or, ol) {
					continue
				}
				return fmt.Errorf("edge %d (%d, %d) between units %d and %d: %w",
					e, l, r, ol, or, ErrSiblingCrossingEdge)
			}
			return nil
		})
	}
	return group.Wait()
}

// isAncestor reports whether unit a is a strict ancestor of unit b.
func (s *Solver) isAncestor(a, b int) bool {
	for p := s.info.Units[b].Parent; p >= 0; p = s.info.Units[p].Parent {
		if p == a {
			return true
		}
	}
	return false
}

// Graph returns the decoding graph.
func (s *Solver) Graph() *decoding.Graph { return s.graph }

// PartitionInfo returns the validated partition plan.
func (s *Solver) PartitionInfo() *partition.Info { return s.info }

// Modules exposes the root unit's modules for snapshot capture; only
// meaningful after a finished solve.
func (s *Solver) Modules() (*dual.Module, *primal.Module) {
	root := s.units[s.info.Root()]
	return root.dual, root.primal
}

// SetEventSink installs the timing sink for subsequent solves.
func (s *Solver) SetEventSink(sink EventSink) { s.events = sink }

// Solve decodes one syndrome: scatter defects onto units, run base
// solves in the worker pool, fuse bottom-up, finish at the root.
func (s *Solver) Solve(pattern *decoding.SyndromePattern) error {
	if s.pattern != nil {
		return solver.ErrSolverDirty
	}
	if err := s.validateDefects(pattern); err != nil {
		return err
	}
	if err := s.store.LoadWeights(pattern); err != nil {
		return err
	}
	perUnit := s.info.SplitDefects(pattern)
	for i, u := range s.units {
		u.defects = perUnit[i]
		u.state = unitPending
		u.primal.SetMaxTreeSize(s.cfg.MaxTreeSize)
	}
	s.runSchedule()
	s.pattern = pattern
	return nil
}

func (s *Solver) validateDefects(pattern *decoding.SyndromePattern) error {
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
	return nil
}

// runBase executes a leaf unit's standalone blossom solve.
func (s *Solver) runBase(u *unit) {
	if err := u.primal.LoadDefects(u.defects); err != nil {
		panic(fmt.Sprintf("parallel: unit %d rejected validated defects: %v", u.index, err))
	}
	u.primal.Run()
}

// runFusion stitches both children into the parent unit and resumes
// the event loop on the merged state.
func (s *Solver) runFusion(u *unit) {
	left := s.units[u.info.Children[0]]
	right := s.units[u.info.Children[1]]
	u.dual.Adopt(left.dual, right.dual)
	u.primal.Adopt(left.primal, right.primal)
	s.store.EnableUnit(u.index, true)
	// matches parked against mirrors that just turned real become
	// fresh alternating trees; matches against outer boundaries stay
	u.primal.RerootBoundaryMatches(s.store.IsBoundary)
	if err := u.primal.LoadDefects(u.defects); err != nil {
		panic(fmt.Sprintf("parallel: unit %d rejected interface defects: %v", u.index, err))
	}
	u.primal.Run()
}

// Subgraph returns the minimum-weight parity subgraph of the last
// solve as ascending edge indices.
func (s *Solver) Subgraph() ([]int, error) {
	if s.pattern == nil {
		return nil, solver.ErrNotSolved
	}
	return s.units[s.info.Root()].primal.Subgraph(), nil
}

// PerfectMatching returns the defect matching of the last solve.
func (s *Solver) PerfectMatching() (*decoding.PerfectMatching, error) {
	if s.pattern == nil {
		return nil, solver.ErrNotSolved
	}
	return s.units[s.info.Root()].primal.PerfectMatching(s.pattern), nil
}

// Clear recycles all per-solve state across every unit.
func (s *Solver) Clear() {
	for _, u := range s.units {
		u.primal.Clear()
		u.dual.Clear()
		u.state = unitPending
		u.defects = nil
	}
	s.store.Clear()
	s.pattern = nil
}
