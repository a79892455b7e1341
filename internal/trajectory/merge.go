package trajectory

import "github.com/GCS-LG/walking-controllers/internal/kinematics"

// spliceLookahead is the default "schedule a splice N samples ahead"
// distance.
const spliceLookahead = 10

// plannerDeadline is the sample-count budget the planner has to return a
// bundle before the handoff at countdown=2: re-planning fails if it
// cannot complete within 8 sample periods after being armed at
// countdown=spliceLookahead.
const plannerDeadline = spliceLookahead - 2

// Goal is the desired unicycle input sampled from the remote channel.
type Goal struct {
	X, Y float64
}

// PlanResult is what the external unicycle planner hands back.
type PlanResult struct {
	Bundle TrajectoryBundle
	Err error
}

// Planner is the out-of-scope unicycle footstep planner / DCM
// sub-trajectory generator, invoked asynchronously.
type Planner interface {
	// RequestPlan starts planning for goal given the measured pose of the
	// currently fixed foot, and returns a channel that will receive
	// exactly one PlanResult. A new call implicitly cancels interest in
	// any previous call's result: cancellation is implicit by the next
	// handoff.
	RequestPlan(goal Goal, measuredFixedFoot kinematics.Pose) <-chan PlanResult
}

// MergeScheduler owns the merge-point countdown list and drives the
// planner handoff protocol of
type MergeScheduler struct {
	mergePoints []int // ascending offsets, in samples from "now"

	// awaitingPlan/targetOffset track a merge point that has been chosen
	// and registered in mergePoints but whose planner call has not yet
	// been armed: the call must not fire until *that* point's own
	// countdown reaches spliceLookahead, not at RequestReplan time (a
	// chained replan can pick an offset well past 10).
	awaitingPlan bool
	targetOffset int

	pending bool
	pendingResult <-chan PlanResult
	pendingOffset int
	pendingDeadline int
	lastMiss bool
}

// NewMergeScheduler returns a scheduler with no pending merge points.
func NewMergeScheduler() *MergeScheduler {
	return &MergeScheduler{}
}

// MergePoints returns the current ascending list of merge-point offsets.
func (s *MergeScheduler) MergePoints() []int { return append([]int(nil), s.mergePoints...) }

// Tick decrements every merge point by one and drops any that reach zero,
// as advanceReferenceSignals does alongside the buffer pop.
// It also advances the planner handoff state machine. RequestReplan only
// registers a merge point and marks it awaitingPlan; the planner call
// itself is armed here, at the start of whichever Tick call observes
// that point's countdown already at (or below) spliceLookahead — either
// the very next tick after a fresh request, or, for a chained replan
// whose chosen offset sat well past 10, however many ticks later its
// countdown decrements down to it. Arming reads goal and
// measuredFixedFoot as passed into *this* Tick call, which is always
// current: any SetGoal issued between the request and the arming tick
// is naturally reflected, giving last-value-wins for free without the
// scheduler needing to track goal itself. Once armed, a result is
// expected within (armed countdown - 2) ticks: plannerDeadline (8) for
// the common case of arming exactly at countdown 10, or fewer if the
// chosen offset was already at or below spliceLookahead when requested.
// The boolean return reports whether a splice must be applied this tick, and
// plannerMiss reports whether the planner failed to respond in time (a
// non-fatal planner-miss condition).
func (s *MergeScheduler) Tick(planner Planner, goal Goal, measuredFixedFoot kinematics.Pose, bufLen int) (splice *TrajectoryBundle, spliceOffset int, plannerMiss bool) {
	for i := range s.mergePoints {
		s.mergePoints[i]--
	}
	for len(s.mergePoints) > 0 && s.mergePoints[0] <= 0 {
		s.mergePoints = s.mergePoints[1:]
	}

	if s.awaitingPlan && s.targetOffset <= spliceLookahead {
		s.awaitingPlan = false
		s.pending = true
		s.pendingOffset = s.targetOffset
		s.pendingDeadline = s.targetOffset - 2
		if s.pendingDeadline < 0 {
			s.pendingDeadline = 0
		}
		s.pendingResult = planner.RequestPlan(goal, measuredFixedFoot)
	}

	if s.awaitingPlan {
		s.targetOffset--
		return nil, 0, false
	}
	if !s.pending {
		return nil, 0, false
	}

	s.pendingOffset--
	s.pendingDeadline--

	select {
	case res := <-s.pendingResult:
		s.pending = false
		if res.Err != nil {
			s.lastMiss = true
			return nil, 0, true
		}
		b := res.Bundle
		return &b, s.pendingOffset, false
	default:
	}

	if s.pendingDeadline <= 0 {
		// countdown reached 2 without a result: planner miss.
		s.pending = false
		s.lastMiss = true
		return nil, 0, true
	}
	return nil, 0, false
}

// RequestReplan applies the merge discipline of when a new
// goal arrives: it decides where to schedule the splice and registers the
// new merge point. The planner call itself is always deferred to Tick,
// armed only once this merge point's countdown reaches spliceLookahead —
// see Tick's doc comment. bothDoubleSupport tells it whether both feet
// are currently in double support. If chooseOffset resolves to an
// offset that is already awaiting arming or already armed and pending,
// this is a no-op: the existing merge point and its in-flight plan are
// left untouched, so the caller's most recent goal value (held outside
// the scheduler) is what the eventual planner call observes, making two
// SetGoal calls in the same tick equivalent to the last one.
func (s *MergeScheduler) RequestReplan(bothDoubleSupport bool) {
	offset := s.chooseOffset(bothDoubleSupport)
	if s.awaitingPlan && s.targetOffset == offset {
		return
	}
	if s.pending && s.pendingOffset == offset {
		return
	}

	s.mergePoints = insertSortedUnique(s.mergePoints, offset)
	s.awaitingPlan = true
	s.targetOffset = offset
}

// chooseOffset implements: "If no merge point exists and both feet are in
// double support, schedule a splice 10 samples ahead. Otherwise, if the
// next merge point is > 10 samples away, splice there; else if a further
// merge point exists, splice at the second; else schedule 10 ahead."
func (s *MergeScheduler) chooseOffset(bothDoubleSupport bool) int {
	if len(s.mergePoints) == 0 {
		if bothDoubleSupport {
			return spliceLookahead
		}
		return spliceLookahead
	}
	if s.mergePoints[0] > spliceLookahead {
		return s.mergePoints[0]
	}
	if len(s.mergePoints) > 1 {
		return s.mergePoints[1]
	}
	return spliceLookahead
}

// LastMiss reports (and clears) whether the previous planner call missed
// its deadline, for diagnostics.
func (s *MergeScheduler) LastMiss() bool {
	v := s.lastMiss
	s.lastMiss = false
	return v
}

func insertSortedUnique(points []int, v int) []int {
	for _, p := range points {
		if p == v {
			return points
		}
	}
	out := append(points, v)
	// simple insertion sort is fine: len(points) is always tiny (<=2 in
	// practice, the scheduler never chains more than two outstanding
	// merge points).
	for i := len(out) - 1; i > 0 && out[i-1] > out[i]; i-- {
		out[i-1], out[i] = out[i], out[i-1]
	}
	return out
}
