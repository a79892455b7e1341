package fsm

import (
	"context"

	"github.com/GCS-LG/walking-controllers/internal/trajectory"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// PrepareRobot transitions Configured->Preparing, reads the first feedback
// sample and seeds every reference buffer with a hold sample built from it
// so the robot does not move, then settles into Prepared.
func (o *Orchestrator) PrepareRobot(ctx context.Context) error {
	o.mu.Lock()
	next, err := checkTransition(o.state, CmdPrepareRobot)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.state = next
	o.mu.Unlock()

	state, err := o.drv.ReadState(ctx)
	if err != nil {
		o.setState(Stopped)
		return wverr.Wrap(wverr.KindFeedbackTimeout, "prepare: read initial feedback", err)
	}
	snap, err := o.kin.Compute(state)
	if err != nil {
		o.setState(Stopped)
		return wverr.Wrap(wverr.KindNumericGuard, "prepare: initial forward kinematics", err)
	}

	hold := holdSampleFromSnapshot(snap)

	o.mu.Lock()
	o.buffer = trajectory.NewBuffer(hold, bufferLength)
	o.qCmd = append([]float64(nil), state.JointPositions...)
	o.admittanceJointVel = make([]float64, o.nJ)
	o.admittanceJointPos = append([]float64(nil), state.JointPositions...)
	o.state = Prepared
	o.mu.Unlock()
	return nil
}

// StartWalking transitions Prepared/Paused->Walking. The LIPM reference
// integrator is reseeded from the measured CoM on the first Walking tick
// (see tick.go), not here, since seeding needs a fresh Snapshot rather than
// whatever was last read at PrepareRobot or the previous Pause.
func (o *Orchestrator) StartWalking() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	next, err := checkTransition(o.state, CmdStartWalking)
	if err != nil {
		return err
	}
	o.state = next
	o.dcmReactive.Reset()
	o.justEnteredWalking = true
	return nil
}

// PauseWalking transitions Walking->Paused: the tick orchestrator stops
// driving the cascade and holds the last commanded posture.
func (o *Orchestrator) PauseWalking() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	next, err := checkTransition(o.state, CmdPauseWalking)
	if err != nil {
		return err
	}
	o.state = next
	return nil
}

// StopWalking transitions any active state to Stopped. Once Stopped, the
// orchestrator must be discarded; there is no transition back out of it.
func (o *Orchestrator) StopWalking() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	next, err := checkTransition(o.state, CmdStopWalking)
	if err != nil {
		return err
	}
	o.state = next
	return nil
}

// SetGoal sets the unicycle target and immediately requests a replan,
// scheduled per the merge discipline. It is rejected (returns false)
// outside Walking.
func (o *Orchestrator) SetGoal(x, y float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Walking || o.planner == nil || o.buffer == nil {
		return false
	}
	o.goal = trajectory.Goal{X: x, Y: y}
	front := o.buffer.Front()
	bothDoubleSupport := front.LeftInContact && front.RightInContact
	o.merge.RequestReplan(bothDoubleSupport)
	return true
}

// SetPlannerInput updates the continuous unicycle command consumed by the
// next already-scheduled replan, without itself forcing one (distinct from
// SetGoal, which both sets the target and triggers an immediate replan
// request).
func (o *Orchestrator) SetPlannerInput(x, y float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Walking {
		return false
	}
	o.goal = trajectory.Goal{X: x, Y: y}
	return true
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}
