// Package kinematics defines the data model shared by every controller in
// the cascade: poses/twists/wrenches in the world mixed representation,
// the robot state read from the driver, and the Snapshot of derived
// quantities (mass matrix, bias forces, Jacobians, CoM, momentum, DCM)
// that the out-of-scope forward-kinematics/dynamics engine supplies once
// per tick. Snapshot is a plain read-only struct handed into each solver,
// replacing shared-pointer access with an explicit per-tick snapshot.
package kinematics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

// Pose is a world-frame (position, rotation) pair.
type Pose struct {
	Position mathutil.Vec3
	Rotation mathutil.Mat3
}

// Twist is a mixed-representation (linear world, angular world) velocity.
type Twist struct {
	Linear mathutil.Vec3
	Angular mathutil.Vec3
}

// SpatialAcceleration is a mixed-representation acceleration, same layout
// as Twist.
type SpatialAcceleration struct {
	Linear mathutil.Vec3
	Angular mathutil.Vec3
}

// Wrench is a (force, torque) pair expressed in the world frame (or the
// foot frame with world orientation, which is the mixed convention used
// throughout).
type Wrench struct {
	Force mathutil.Vec3
	Torque mathutil.Vec3
}

// AsVector6 packs a wrench as [force; torque] for QP algebra.
func (w Wrench) AsVector6() *mat.VecDense {
	return mat.NewVecDense(6, []float64{
		w.Force[0], w.Force[1], w.Force[2],
		w.Torque[0], w.Torque[1], w.Torque[2],
	})
}

// WrenchFromVector6 is the inverse of AsVector6.
func WrenchFromVector6(v *mat.VecDense) Wrench {
	return Wrench{
		Force: mathutil.Vec3{v.AtVec(0), v.AtVec(1), v.AtVec(2)},
		Torque: mathutil.Vec3{v.AtVec(3), v.AtVec(4), v.AtVec(5)},
	}
}

// JointLimits describes per-joint position, velocity and torque bounds.
type JointLimits struct {
	PositionLower []float64
	PositionUpper []float64
	VelocityMax []float64
	TorqueMax []float64
}

// RobotState is the feedback read from the driver each tick: joint
// positions/velocities, optional externally estimated base transform and
// twist, and left/right foot wrenches.
type RobotState struct {
	NumJoints int

	JointPositions []float64
	JointVelocities []float64

	HasBaseEstimate bool
	BasePose Pose
	BaseTwist Twist

	LeftWrench Wrench
	RightWrench Wrench

	Limits JointLimits
}

// Snapshot is the full set of derived kinematic/dynamic quantities the
// out-of-scope FK/dynamics engine computes from a RobotState. M has shape
// (nJ+6)x(nJ+6); H has length nJ+6. Jacobians are 6x(nJ+6), mixed
// representation.
type Snapshot struct {
	NumJoints int

	MassMatrix *mat.Dense
	BiasForces *mat.VecDense

	LeftFootPose Pose
	RightFootPose Pose
	LeftFootJacobian *mat.Dense
	RightFootJacobian *mat.Dense
	LeftFootBiasAcc SpatialAcceleration
	RightFootBiasAcc SpatialAcceleration

	NeckOrientation mathutil.Mat3
	NeckJacobian *mat.Dense
	NeckBiasAcc mathutil.Vec3

	LeftHandPose Pose
	RightHandPose Pose
	LeftHandJacobian *mat.Dense
	RightHandJacobian *mat.Dense

	CoMPosition *mat.Dense // 3x1, kept as Dense so callers can use gonum ops directly
	CoMVelocity mathutil.Vec3
	CoMJacobian *mat.Dense // 3x(nJ+6)
	CoMBiasAcc mathutil.Vec3

	CentroidalMomentum Wrench // linear momentum in Force, angular in Torque
}

// DCM returns ξ = c + ċ/ω, the Divergent Component of Motion, given the
// instability rate ω = sqrt(g/h).
func DCM(comPos, comVel mathutil.Vec2, omega float64) mathutil.Vec2 {
	return mathutil.Vec2{
		comPos[0] + comVel[0]/omega,
		comPos[1] + comVel[1]/omega,
	}
}

// Omega computes ω = sqrt(g/h) for the commanded CoM height h, recomputed
// every tick
func Omega(gravity, height float64) float64 {
	return math.Sqrt(gravity / height)
}

// Provider is the out-of-scope forward-kinematics/dynamics engine
// collaborator: given the latest RobotState it produces a Snapshot.
type Provider interface {
	Compute(state RobotState) (Snapshot, error)
}
