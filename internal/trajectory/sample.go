// Package trajectory implements the sample-indexed reference buffers and
// the merge scheduler: a FIFO of per-tick reference samples (feet
// pose/twist/acceleration, contact schedule, ZMP, DCM, CoM height, weight
// split) together with the bookkeeping that splices a freshly planned
// TrajectoryBundle into the live buffer without a discontinuity.
package trajectory

import "github.com/GCS-LG/walking-controllers/internal/kinematics"

// Sample is one row of the TrajectoryBundle. Grouping all per-tick
// reference fields into a single struct (rather than N parallel deques,
// one per field) makes the "all trajectory buffers have identical
// length" invariant automatic: there is exactly one deque.
type Sample struct {
	LeftFootPose kinematics.Pose
	RightFootPose kinematics.Pose
	LeftFootTwist kinematics.Twist
	RightFootTwist kinematics.Twist
	LeftFootAccel kinematics.SpatialAcceleration
	RightFootAccel kinematics.SpatialAcceleration

	LeftInContact bool
	RightInContact bool
	// LeftIsFixedFrame is true when the left foot is the kinematic root
	// for this sample (stance foot in single support, or the
	// convention-chosen foot in double support).
	LeftIsFixedFrame bool

	DesiredZMP [2]float64

	DesiredDCMPosition [2]float64
	DesiredDCMVelocity [2]float64

	CoMHeight float64
	CoMHeightVelocity float64

	WeightLeft float64
	WeightRight float64
}

// Clone returns a value copy of s (Sample has no reference fields besides
// the Pose/Twist/etc. value types, so a plain copy suffices).
func (s Sample) Clone() Sample { return s }

// TrajectoryBundle is N samples produced by one planning call, aligned to
// the live buffer's sample grid.
type TrajectoryBundle struct {
	Samples []Sample
}

// Len returns the number of samples in the bundle.
func (b TrajectoryBundle) Len() int { return len(b.Samples) }
