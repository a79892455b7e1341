package fsm

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/admittance"
	"github.com/GCS-LG/walking-controllers/internal/dcm"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/logging"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/stepadaptor"
	"github.com/GCS-LG/walking-controllers/internal/trajectory"
	"github.com/GCS-LG/walking-controllers/internal/wholebody/ik"
	"github.com/GCS-LG/walking-controllers/internal/wholebody/torque"
	"github.com/GCS-LG/walking-controllers/internal/wrenchmap"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// minimumTotalVerticalForce is the numeric guard of : below this
// combined foot-force reading the measured ZMP estimate is meaningless
// (no reliable contact), and a tick in Walking must stop rather than feed
// a divide-by-near-zero result into the cascade.
const minimumTotalVerticalForce = 0.1

// Tick runs exactly one control cycle in the strict per-tick order of
// : read feedback, compute kinematics, estimate measured ZMP,
// advance references, step-adapt, outer control, inner control, whole-body
// QP, write the command. Configured and Stopped ticks are no-ops.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state == Configured || state == Stopped {
		return nil
	}

	feedback, err := o.drv.ReadState(ctx)
	if err != nil {
		return o.fatal(wverr.Wrap(wverr.KindFeedbackTimeout, "read feedback", err))
	}
	snap, err := o.kin.Compute(feedback)
	if err != nil {
		return o.fatal(wverr.Wrap(wverr.KindNumericGuard, "forward kinematics", err))
	}

	left, right := feedback.LeftWrench, feedback.RightWrench
	if o.wrenchSrc != nil {
		if l, r, werr := o.wrenchSrc.ReadWrenches(ctx); werr == nil {
			left, right = l, r
		}
	}

	switch state {
	case Preparing, Prepared, Paused:
		return o.holdPosture(ctx, feedback)
	case Walking:
		return o.walkTick(ctx, feedback, snap, left, right)
	default:
		return nil
	}
}

// holdPosture keeps the last commanded joint positions in force, the
// behavior of every non-Walking, non-terminal state.
func (o *Orchestrator) holdPosture(ctx context.Context, feedback kinematics.RobotState) error {
	o.mu.Lock()
	if o.qCmd == nil {
		o.qCmd = append([]float64(nil), feedback.JointPositions...)
	}
	qCmd := append([]float64(nil), o.qCmd...)
	o.mu.Unlock()
	if err := o.drv.SendPositionCommand(ctx, qCmd); err != nil {
		return o.fatal(wverr.Wrap(wverr.KindFeedbackTimeout, "send hold posture command", err))
	}
	return nil
}

// fatal applies 's fatal/non-fatal classification: a fatal
// error during Walking forces Stopped; a non-fatal one is logged and the
// tick returns the error for the caller to decide whether to retry.
func (o *Orchestrator) fatal(err *wverr.Error) error {
	if err.IsFatal() {
		o.mu.Lock()
		if o.state == Walking {
			o.state = Stopped
		}
		o.mu.Unlock()
	}
	if o.log != nil {
		o.log.Error("tick error: %v", err)
	}
	return err
}

func (o *Orchestrator) walkTick(ctx context.Context, feedback kinematics.RobotState, snap kinematics.Snapshot, leftWrench, rightWrench kinematics.Wrench) error {
	o.mu.Lock()
	justEntered := o.justEnteredWalking
	o.justEnteredWalking = false
	o.mu.Unlock()

	comXY := mathutil.Vec2{snap.CoMPosition.At(0, 0), snap.CoMPosition.At(1, 0)}
	comVelXY := mathutil.Vec2{snap.CoMVelocity[0], snap.CoMVelocity[1]}
	if justEntered {
		o.lipm.Reset(comXY, comVelXY)
	}

	totalFz := leftWrench.Force[2] + rightWrench.Force[2]
	if totalFz < minimumTotalVerticalForce {
		return o.fatal(wverr.New(wverr.KindNumericGuard, "total vertical contact force below guard threshold"))
	}

	front := o.buffer.Front()
	measuredZMP := estimateMeasuredZMP(leftWrench, rightWrench, snap.LeftFootPose.Position, snap.RightFootPose.Position, front.LeftInContact, front.RightInContact)

	// Reference advance: service the merge-point handoff, splice a fresh
	// bundle if the planner has responded, then pop the front sample.
	splice, spliceOffset, plannerMiss := o.merge.Tick(o.planner, o.goal, fixedFootPose(front), o.buffer.Len())
	if plannerMiss && o.log != nil {
		o.log.Warn("planner missed its merge-point deadline")
	}
	if splice != nil {
		if err := o.buffer.Splice(spliceOffset, splice.Samples); err != nil && o.log != nil {
			o.log.Error("splice failed: %v", err)
		}
	}
	o.buffer.Advance()
	front = o.buffer.Front()

	omega := kinematics.Omega(gravity, front.CoMHeight)
	dcmMeasured := kinematics.DCM(comXY, comVelXY, omega)
	dcmDesired := mathutil.Vec2(front.DesiredDCMPosition)
	dcmDesiredVel := mathutil.Vec2(front.DesiredDCMVelocity)
	zmpNominal := mathutil.Vec2(front.DesiredZMP)

	singleSupport := front.LeftInContact != front.RightInContact
	if o.cfg.StepAdaptator.UseStepAdaptation && singleSupport {
		nominal := stepadaptor.Nominal{
			ImpactTime: o.cfg.TrajectoryPlanner.NominalStepTime,
			ZMP: zmpNominal,
			DCMOffset: dcmDesired.Sub(zmpNominal),
		}
		adapted := o.stepAdaptor.Update(nominal, dcmMeasured, omega)
		zmpNominal = adapted.ZMP
		dcmDesired = adapted.ZMP.Add(adapted.DCMOffset)
	}

	vrp, err := o.outerControl(dcmMeasured, dcmDesired, dcmDesiredVel, omega, front)
	if err != nil {
		return o.fatal(wverr.Wrap(wverr.KindQPInfeasible, "outer DCM control", err))
	}

	comVelCmd := o.zmpCtrl.Update(dcmDesiredVel, measuredZMP, vrp, comXY, o.lipm.Position(), dcmDesiredVel)
	o.lipm.Step(vrp, omega, o.dt)

	var sendErr error
	if o.cfg.Toggles.UseQPIK {
		sendErr = o.solveIKAndSend(ctx, snap, feedback, front, comVelCmd)
	} else {
		sendErr = o.solveTorqueAndSend(ctx, snap, feedback, front, comVelCmd, zmpNominal, leftWrench, rightWrench)
	}
	if sendErr != nil {
		return o.fatal(wverr.Wrap(wverr.KindQPInfeasible, "whole-body QP", sendErr))
	}

	if o.log != nil {
		o.log.LogTick(logging.TickLog{
			DCMMeasured: [2]float64(dcmMeasured),
			DCMDesired: [2]float64(dcmDesired),
			ZMPMeasured: [2]float64(measuredZMP),
			ZMPDesired: [2]float64(vrp),
		})
	}
	return nil
}

func (o *Orchestrator) outerControl(dcmMeasured, dcmDesired, dcmDesiredVel mathutil.Vec2, omega float64, front trajectory.Sample) (mathutil.Vec2, error) {
	if !o.cfg.Toggles.UseMPC {
		return o.dcmReactive.Update(dcmMeasured, dcmDesired, dcmDesiredVel, omega, o.dt), nil
	}
	horizon := o.cfg.DCMMPCController.Horizon
	feet := singleContactCenter(front)
	polygon := dcm.FootRectangleHull(feet, o.cfg.TorqueQP.ContactForces.FootSize[0][1], o.cfg.TorqueQP.ContactForces.FootSize[1][1])
	dcmRef := make([]mathutil.Vec2, horizon)
	polygons := make([]dcm.SupportPolygon, horizon)
	for i := 0; i < horizon; i++ {
		dcmRef[i] = dcmDesired
		polygons[i] = polygon
	}
	return o.dcmMPC.Update(dcmMeasured, dcmRef, polygons, omega)
}

func (o *Orchestrator) solveIKAndSend(ctx context.Context, snap kinematics.Snapshot, feedback kinematics.RobotState, front trajectory.Sample, comVelCmd mathutil.Vec2) error {
	var leftHand, rightHand *kinematics.Twist
	if o.hand != nil {
		l, r, err := o.hand.HandTargets(ctx, o.dt)
		if err == nil {
			leftHand, rightHand = l, r
		}
	}

	targets := ik.Targets{
		LeftFootVelocity: front.LeftFootTwist,
		RightFootVelocity: front.RightFootTwist,
		CoMVelocity: mathutil.Vec3{comVelCmd[0], comVelCmd[1], front.CoMHeightVelocity},
		NeckOrientation: mathutil.Identity3(),
		NeckGain: o.cfg.TorqueQP.NeckOrientation.NeckWeight,
		LeftHandVelocity: leftHand,
		RightHandVelocity: rightHand,
		JointVelocityReg: make([]float64, o.nJ),
	}

	sol, err := o.ikSolver.Solve(snap, feedback.Limits, feedback.JointPositions, targets)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if o.qCmd == nil {
		o.qCmd = append([]float64(nil), feedback.JointPositions...)
	}
	for i := 0; i < o.nJ; i++ {
		o.qCmd[i] += sol.AtVec(6+i) * o.dt
	}
	qCmd := append([]float64(nil), o.qCmd...)
	o.mu.Unlock()

	return o.drv.SendPositionCommand(ctx, qCmd)
}

func (o *Orchestrator) solveTorqueAndSend(ctx context.Context, snap kinematics.Snapshot, feedback kinematics.RobotState, front trajectory.Sample, comVelCmd, zmpNominal mathutil.Vec2, leftWrench, rightWrench kinematics.Wrench) error {
	admTargets := admittance.Targets{
		Left: footError(front.LeftFootPose, snap.LeftFootPose, front.LeftFootTwist, leftWrench),
		Right: footError(front.RightFootPose, snap.RightFootPose, front.RightFootTwist, rightWrench),
		CoMDesiredPosition: mathutil.Vec3{zmpNominal[0], zmpNominal[1], front.CoMHeight},
		CoMDesiredVelocity: mathutil.Vec3{comVelCmd[0], comVelCmd[1], front.CoMHeightVelocity},
		NeckDesiredOrientation: mathutil.Identity3(),
		JointVelocityReg: o.admittanceJointVel,
	}
	nuDot, err := o.admittanceCtrl.Update(snap, admTargets)
	if err == nil {
		o.mu.Lock()
		for i := 0; i < o.nJ; i++ {
			o.admittanceJointVel[i] += nuDot.AtVec(6+i) * o.dt
			o.admittanceJointPos[i] += o.admittanceJointVel[i] * o.dt
		}
		o.mu.Unlock()
	} else if o.log != nil {
		o.log.Warn("admittance QP: %v", err)
	}

	// Desired centroidal wrench: vertical force recovered from the base
	// rows of the dynamics bias term (the gravity/Coriolis compensation a
	// floating base needs at the current configuration), horizontal
	// components left at zero (no yaw/shear force is commanded directly).
	desiredWrench := kinematics.Wrench{Force: mathutil.Vec3{0, 0, -snap.BiasForces.AtVec(2)}}
	leftContact := wrenchmap.FootContact{
		PositionFromCoM: footOffsetFromCoM(snap.LeftFootPose, snap.CoMPosition),
		Active: front.LeftInContact,
		WeightFraction: front.WeightLeft,
	}
	rightContact := wrenchmap.FootContact{
		PositionFromCoM: footOffsetFromCoM(snap.RightFootPose, snap.CoMPosition),
		Active: front.RightInContact,
		WeightFraction: front.WeightRight,
	}
	leftWrenchDesired, rightWrenchDesired, err := o.wrenchMapper.Distribute(desiredWrench, leftContact, rightContact)
	if err != nil && o.log != nil {
		o.log.Warn("contact-wrench mapper: %v", err)
	}

	targets := torque.Targets{
		CoMDesiredPosition: mathutil.Vec3{zmpNominal[0], zmpNominal[1], front.CoMHeight},
		CoMDesiredVelocity: mathutil.Vec3{comVelCmd[0], comVelCmd[1], front.CoMHeightVelocity},
		NeckDesiredOrientation: mathutil.Identity3(),
		Left: torqueFootTarget(front.LeftInContact, front.LeftFootTwist, front.LeftFootAccel, leftWrenchDesired, front.WeightLeft),
		Right: torqueFootTarget(front.RightInContact, front.RightFootTwist, front.RightFootAccel, rightWrenchDesired, front.WeightRight),
		JointPositionDesired: o.admittanceJointPos,
		JointVelocityDesired: o.admittanceJointVel,
		TorqueDesired: make([]float64, o.nJ),
	}

	sol, err := o.torqueSolver.Solve(snap, feedback, targets)
	if err != nil {
		return err
	}

	tau := make([]float64, o.nJ)
	for i := 0; i < o.nJ; i++ {
		tau[i] = sol.AtVec(o.nJ + 6 + i)
	}
	return o.drv.SendTorqueCommand(ctx, tau)
}

func torqueFootTarget(active bool, twist kinematics.Twist, accel kinematics.SpatialAcceleration, wrench kinematics.Wrench, weightFraction float64) torque.FootTarget {
	ft := torque.FootTarget{
		Active: active,
		DesiredAcceleration: accel,
		WeightFraction: weightFraction,
	}
	if active && wrench.Force[2] > 1e-6 {
		ft.DesiredZMPLocal = mathutil.Vec2{-wrench.Torque[1] / wrench.Force[2], wrench.Torque[0] / wrench.Force[2]}
		ft.NormalForceEstimate = wrench.Force[2]
	}
	_ = twist // velocity reference is not part of FootTarget; acceleration tracking is
	return ft
}

// admittanceComplianceGain scales how strongly measured foot contact force
// deflects the admittance-commanded acceleration. Not part of the
// configuration schema (ADMITTANCE_CONTROLLER carries only kp/kd for the
// stiff tracking term); fixed here as a small, conservative default.
const admittanceComplianceGain = 0.01

func footError(desired, measured kinematics.Pose, desiredTwist kinematics.Twist, measuredWrench kinematics.Wrench) admittance.FootError {
	return admittance.FootError{
		PositionError: desired.Position.Sub(measured.Position),
		VelocityError: desiredTwist.Linear,
		Measured: measuredWrench,
		AdmittanceGain: admittanceComplianceGain,
	}
}

func footOffsetFromCoM(footPose kinematics.Pose, com *mat.Dense) mathutil.Vec3 {
	return mathutil.Vec3{
		footPose.Position[0] - com.At(0, 0),
		footPose.Position[1] - com.At(1, 0),
		footPose.Position[2] - com.At(2, 0),
	}
}

func estimateMeasuredZMP(left, right kinematics.Wrench, leftPos, rightPos mathutil.Vec3, leftActive, rightActive bool) mathutil.Vec2 {
	var sumFz, x, y float64
	if leftActive && left.Force[2] > 1e-6 {
		x += (leftPos[0] - left.Torque[1]/left.Force[2]) * left.Force[2]
		y += (leftPos[1] + left.Torque[0]/left.Force[2]) * left.Force[2]
		sumFz += left.Force[2]
	}
	if rightActive && right.Force[2] > 1e-6 {
		x += (rightPos[0] - right.Torque[1]/right.Force[2]) * right.Force[2]
		y += (rightPos[1] + right.Torque[0]/right.Force[2]) * right.Force[2]
		sumFz += right.Force[2]
	}
	if sumFz < 1e-6 {
		return mathutil.Vec2{}
	}
	return mathutil.Vec2{x / sumFz, y / sumFz}
}

func fixedFootPose(front trajectory.Sample) kinematics.Pose {
	if front.LeftIsFixedFrame {
		return front.LeftFootPose
	}
	return front.RightFootPose
}

func singleContactCenter(front trajectory.Sample) []mathutil.Vec2 {
	var centers []mathutil.Vec2
	if front.LeftInContact {
		centers = append(centers, mathutil.Vec2{front.LeftFootPose.Position[0], front.LeftFootPose.Position[1]})
	}
	if front.RightInContact {
		centers = append(centers, mathutil.Vec2{front.RightFootPose.Position[0], front.RightFootPose.Position[1]})
	}
	if len(centers) == 0 {
		centers = append(centers, mathutil.Vec2{})
	}
	return centers
}

func holdSampleFromSnapshot(snap kinematics.Snapshot) trajectory.Sample {
	com := [2]float64{snap.CoMPosition.At(0, 0), snap.CoMPosition.At(1, 0)}
	return trajectory.Sample{
		LeftFootPose: snap.LeftFootPose,
		RightFootPose: snap.RightFootPose,
		LeftInContact: true,
		RightInContact: true,
		LeftIsFixedFrame: true,
		DesiredZMP: com,
		DesiredDCMPosition: com,
		CoMHeight: snap.CoMPosition.At(2, 0),
		WeightLeft: 0.5,
		WeightRight: 0.5,
	}
}
