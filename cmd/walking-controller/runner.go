package main

import (
	"context"
	"time"

	"github.com/GCS-LG/walking-controllers/internal/fsm"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/logging"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// unwiredKinematicsProvider stands in for the forward-kinematics/dynamics
// engine, an out-of-scope collaborator referenced only via
// kinematics.Provider (no iDynTree-equivalent binding ships in this
// module). Deployments must replace it with a real Provider before
// PrepareRobot can succeed: with this stand-in, PrepareRobot fails and the
// orchestrator ends in Stopped.
type unwiredKinematicsProvider struct{}

func (unwiredKinematicsProvider) Compute(state kinematics.RobotState) (kinematics.Snapshot, error) {
	return kinematics.Snapshot{}, wverr.New(wverr.KindConfig, "no forward-kinematics/dynamics engine wired into this deployment")
}

// Runner drives the fixed-period tick loop, the same ticker+select shape
// the teacher's Runner uses in closed_loop/runner.go, generalized from a
// single CAN transmit cadence to the orchestrator's full lifecycle: it
// prepares the robot, starts walking, and keeps ticking until the context
// is canceled or the orchestrator falls into Stopped.
type Runner struct {
	orch *fsm.Orchestrator
	log  *logging.Logger
	dt   float64
}

func NewRunner(orch *fsm.Orchestrator, log *logging.Logger, dt float64) *Runner {
	return &Runner{orch: orch, log: log, dt: dt}
}

func (r *Runner) Run(ctx context.Context) error {
	if err := r.orch.PrepareRobot(ctx); err != nil {
		r.log.Critical("prepare failed: %v", err)
		return err
	}
	if err := r.orch.StartWalking(); err != nil {
		r.log.Critical("start walking failed: %v", err)
		return err
	}
	r.log.Info("walking controller started, sampling_time=%.4fs", r.dt)

	ticker := time.NewTicker(time.Duration(r.dt * float64(time.Second)))
	defer ticker.Stop()

	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			r.log.Warn("context canceled; stopping")
			_ = r.orch.StopWalking()
			return ctx.Err()

		case <-ticker.C:
			if err := r.orch.Tick(ctx); err != nil {
				r.log.Error("tick %d failed: %v", ticks, err)
				if r.orch.State() == fsm.Stopped {
					r.log.Critical("orchestrator stopped after a fatal tick error")
					return err
				}
			}
			ticks++
		}
	}
}
