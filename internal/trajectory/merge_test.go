package trajectory

import (
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/kinematics"
)

// fakePlanner records every RequestPlan call and hands results back on a
// single reusable channel, mirroring the Planner interface's contract that
// a new call implicitly supersedes interest in the previous one.
type fakePlanner struct {
	calls []Goal
	ch    chan PlanResult
}

func newFakePlanner() *fakePlanner {
	return &fakePlanner{ch: make(chan PlanResult, 1)}
}

func (p *fakePlanner) RequestPlan(goal Goal, _ kinematics.Pose) <-chan PlanResult {
	p.calls = append(p.calls, goal)
	return p.ch
}

func TestMergeSchedulerArmsOnTickNotAtRequestTime(t *testing.T) {
	s := NewMergeScheduler()
	p := newFakePlanner()
	goal := Goal{X: 1, Y: 2}
	pose := kinematics.Pose{}

	s.RequestReplan(true)
	if len(p.calls) != 0 {
		t.Fatalf("planner invoked at RequestReplan time, want deferred to the arming Tick")
	}

	if splice, _, miss := s.Tick(p, goal, pose, 20); splice != nil || miss {
		t.Fatalf("unexpected splice/miss on the arming tick")
	}
	if len(p.calls) != 1 {
		t.Fatalf("expected exactly one RequestPlan call after the arming tick, got %d", len(p.calls))
	}
	if p.calls[0] != goal {
		t.Fatalf("planner armed with wrong goal: %+v", p.calls[0])
	}

	bundle := TrajectoryBundle{Samples: []Sample{{}}}
	p.ch <- PlanResult{Bundle: bundle}

	splice, offset, miss := s.Tick(p, goal, pose, 20)
	if miss {
		t.Fatalf("unexpected planner miss")
	}
	if splice == nil {
		t.Fatalf("expected a splice bundle once the plan result arrived")
	}
	if offset != 8 {
		t.Fatalf("expected splice offset 8, got %d", offset)
	}
	if len(p.calls) != 1 {
		t.Fatalf("planner should not be re-armed while a result is pending, got %d calls", len(p.calls))
	}
}

func TestMergeSchedulerReportsPlannerMissAfterDeadline(t *testing.T) {
	s := NewMergeScheduler()
	p := newFakePlanner()
	goal := Goal{}
	pose := kinematics.Pose{}

	s.RequestReplan(true)
	s.Tick(p, goal, pose, 20)

	var miss bool
	for i := 0; i < 10 && !miss; i++ {
		_, _, miss = s.Tick(p, goal, pose, 20)
	}
	if !miss {
		t.Fatalf("expected a planner miss when no result ever arrives within the deadline")
	}
	if !s.LastMiss() {
		t.Fatalf("LastMiss should report the miss recorded by Tick")
	}
	if s.LastMiss() {
		t.Fatalf("LastMiss should clear itself after being read once")
	}
}

func TestRequestReplanIdempotentWithinSameTick(t *testing.T) {
	s := NewMergeScheduler()
	s.RequestReplan(true)
	s.RequestReplan(true)
	if got := s.MergePoints(); len(got) != 1 {
		t.Fatalf("expected a single merge point for two same-tick requests, got %v", got)
	}
}

func TestSetGoalLastValueWinsAcrossSameTickRequests(t *testing.T) {
	s := NewMergeScheduler()
	p := newFakePlanner()
	pose := kinematics.Pose{}

	s.RequestReplan(true)
	s.RequestReplan(true)

	final := Goal{X: 42, Y: 7}
	s.Tick(p, final, pose, 20)

	if len(p.calls) != 1 {
		t.Fatalf("expected exactly one arming call, got %d", len(p.calls))
	}
	if p.calls[0] != final {
		t.Fatalf("expected the planner to observe the last goal value at arming time, got %+v", p.calls[0])
	}
}

func TestMergePointsStayStrictlyIncreasing(t *testing.T) {
	s := NewMergeScheduler()
	p := newFakePlanner()
	goal := Goal{}
	pose := kinematics.Pose{}

	s.RequestReplan(true)
	s.Tick(p, goal, pose, 20)

	s.RequestReplan(false)
	pts := s.MergePoints()
	if len(pts) != 2 {
		t.Fatalf("expected two merge points after the chained request, got %v", pts)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i] <= pts[i-1] {
			t.Fatalf("merge points not strictly increasing: %v", pts)
		}
	}
}
