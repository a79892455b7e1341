// Package driver defines the RobotDriver boundary between the control
// cascade and the out-of-scope hardware: the FSM's tick orchestrator reads
// feedback from a RobotDriver at the top of every tick and writes the
// whole-body QP's result (joint torques, or joint positions integrated from
// the IK QP's velocities) back through it at the bottom. One concrete
// implementation ships in
// the candriver subpackage; the interface itself has no notion of CAN,
// EtherCAT, or any other bus.
package driver

import (
	"context"

	"github.com/GCS-LG/walking-controllers/internal/kinematics"
)

// RobotDriver is the collaborator the tick orchestrator talks to for
// reading joint/base/wrench feedback and writing joint commands. This is
// the thin interface the core consumes, not a bus bring-up/calibration
// stack.
type RobotDriver interface {
	// ReadState blocks until the next feedback sample is available, or ctx
	// is done. An implementation may bound its own wait and report the
	// overrun as wverr.KindFeedbackTimeout (candriver.Driver does); the tick
	// orchestrator wraps any ReadState error as wverr.KindFeedbackTimeout.
	ReadState(ctx context.Context) (kinematics.RobotState, error)

	// SendTorqueCommand writes a desired torque per actuated joint.
	SendTorqueCommand(ctx context.Context, tau []float64) error

	// SendPositionCommand writes a desired position per actuated joint,
	// used by the position-control-law path (config.RobotControl's
	// PositionControlLaw == "position").
	SendPositionCommand(ctx context.Context, q []float64) error

	// Close releases any transport resources (sockets, file handles).
	Close() error
}

// WrenchSource is the optional force/torque-sensor front end, separate
// from RobotDriver because treats foot wrench feedback as
// independently toggleable (config.FTSensors.UseFootWrench). When a driver
// also implements WrenchSource, the orchestrator prefers it over whatever
// wrench fields RobotDriver.ReadState already populated.
type WrenchSource interface {
	ReadWrenches(ctx context.Context) (left, right kinematics.Wrench, err error)
}
