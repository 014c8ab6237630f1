package parallel

import (
	"runtime"
	"sync"
	"time"
)

// scheduler is the ready queue of the worker pool. Units are pushed
// when their readiness condition holds and popped by idle workers;
// work-stealing falls out of every worker popping from the same queue.
type scheduler struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []*unit
	remaining  int // units not yet finished; 0 wakes everyone up
	leavesDone int
}

func newScheduler(unitNum int) *scheduler {
	sc := &scheduler{remaining: unitNum}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

func (sc *scheduler) push(u *unit) {
	sc.mu.Lock()
	sc.queue = append(sc.queue, u)
	sc.mu.Unlock()
	sc.cond.Signal()
}

// pop hands out the next ready unit, preferring base partitions when
// configured. It blocks until work arrives or the solve completes.
func (sc *scheduler) pop(prioritizeBase bool) (*unit, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for len(sc.queue) == 0 && sc.remaining > 0 {
		sc.cond.Wait()
	}
	if len(sc.queue) == 0 {
		return nil, false
	}
	pick := 0
	if prioritizeBase {
		for i, u := range sc.queue {
			if u.info.IsLeaf() {
				pick = i
				break
			}
		}
	}
	u := sc.queue[pick]
	sc.queue = append(sc.queue[:pick], sc.queue[pick+1:]...)
	if u.info.IsLeaf() {
		u.state = unitBaseRunning
	} else {
		u.state = unitFusing
	}
	return u, true
}

// runSchedule executes one solve's jobs on the worker pool and blocks
// until the root unit finishes.
func (s *Solver) runSchedule() {
	sc := newScheduler(len(s.units))
	workers := s.cfg.ThreadPoolSize
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// leaf availability: everything at once in batch mode, paced by
	// the mock measurement interval in streaming mode
	leaves := s.units[:s.info.LeafNum()]
	if s.cfg.Streaming && s.cfg.MockMeasureInterval > 0 {
		for i, u := range leaves {
			u := u
			time.AfterFunc(time.Duration(i)*s.cfg.MockMeasureInterval, func() { sc.push(u) })
		}
	} else {
		for _, u := range leaves {
			sc.push(u)
		}
	}

	var wg sync.WaitGroup
	for thread := 0; thread < workers; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for {
				u, ok := sc.pop(s.cfg.PrioritizeBasePartitions)
				if !ok {
					return
				}
				start := time.Now()
				if u.info.IsLeaf() {
					s.runBase(u)
				} else {
					s.runFusion(u)
				}
				if s.events != nil {
					s.events.RecordEvent(u.index, thread, start, time.Now())
				}
				s.unitFinished(sc, u)
			}
		}(thread)
	}
	wg.Wait()
}

// unitFinished records a unit's completion and pushes any fusion that
// became ready. Batch mode additionally gates every fusion on all
// leaves being done.
func (s *Solver) unitFinished(sc *scheduler, u *unit) {
	sc.mu.Lock()
	if u.info.IsLeaf() {
		u.state = unitBaseDone
		sc.leavesDone++
	} else {
		u.state = unitDone
	}
	sc.remaining--
	var ready []*unit
	if !s.cfg.Streaming && sc.leavesDone == s.info.LeafNum() && u.info.IsLeaf() {
		// the batch barrier just opened: collect every fusion whose
		// children finished (all of them, on the first sweep)
		for _, candidate := range s.units[s.info.LeafNum():] {
			if s.fusionReady(candidate) {
				ready = append(ready, candidate)
			}
		}
	} else if p := u.info.Parent; p >= 0 {
		parent := s.units[p]
		if s.fusionReady(parent) && (s.cfg.Streaming || sc.leavesDone == s.info.LeafNum()) {
			ready = append(ready, parent)
		}
	}
	finished := sc.remaining == 0
	sc.mu.Unlock()
	for _, r := range ready {
		sc.push(r)
	}
	if finished {
		sc.cond.Broadcast()
	}
}

// fusionReady reports whether a fusion unit's children both finished.
// Callers hold the scheduler lock.
func (s *Solver) fusionReady(u *unit) bool {
	if u.state != unitPending {
		return false
	}
	left := s.units[u.info.Children[0]]
	right := s.units[u.info.Children[1]]
	leftDone := left.state == unitBaseDone || left.state == unitDone
	rightDone := right.state == unitBaseDone || right.state == unitDone
	return leftDone && rightDone
}
