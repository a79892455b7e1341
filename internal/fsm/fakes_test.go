package fsm

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

// fakeDriver is a stand-in RobotDriver: ReadState always returns the same
// feedback sample, and every command write-out is recorded for inspection.
type fakeDriver struct {
	state kinematics.RobotState

	sentPositions [][]float64
	sentTorques   [][]float64
}

func (d *fakeDriver) ReadState(ctx context.Context) (kinematics.RobotState, error) {
	return d.state, nil
}

func (d *fakeDriver) SendTorqueCommand(ctx context.Context, tau []float64) error {
	d.sentTorques = append(d.sentTorques, append([]float64(nil), tau...))
	return nil
}

func (d *fakeDriver) SendPositionCommand(ctx context.Context, q []float64) error {
	d.sentPositions = append(d.sentPositions, append([]float64(nil), q...))
	return nil
}

func (d *fakeDriver) Close() error { return nil }

// fakeProvider always returns the same fixed snapshot, regardless of the
// feedback it is handed.
type fakeProvider struct {
	snap kinematics.Snapshot
}

func (p fakeProvider) Compute(state kinematics.RobotState) (kinematics.Snapshot, error) {
	return p.snap, nil
}

// testRig bundles the fixtures shared by the lifecycle/tick tests: a
// single-joint robot, standing with both feet flat and loaded.
type testRig struct {
	cfg    config.Config
	driver *fakeDriver
	kin    fakeProvider
}

func newTestRig(useQPIK bool) testRig {
	const nJ = 1
	n := nJ + 6

	cfg := config.Config{
		General:      config.General{SamplingTime: 0.01},
		RobotControl: config.RobotControl{ActuatedJoints: []string{"j0"}},
		DCMReactiveController: config.DCMReactiveController{
			Kp: 1.0, Ki: 0.1,
		},
		DCMMPCController: config.DCMMPCController{Horizon: 2, WeightTracking: 1, WeightInput: 0.1},
		ZMPController:     config.ZMPController{KZmp: 1.0, KCom: 1.0},
		InverseKinematicsQP: config.InverseKinematicsQPSolver{
			KU: 1, KB: 1, JointRegularization: 1e-4,
		},
		TrajectoryPlanner: config.TrajectoryPlanner{NominalStepTime: 0.5},
		StepAdaptator:     config.StepAdaptator{UseStepAdaptation: false},
		Toggles:           config.Toggles{UseMPC: false, UseQPIK: useQPIK},
		TorqueQP: config.TorqueQP{
			CoM:             config.CoMTask{Kp: 10, Kd: 2},
			Feet:            config.FeetTask{Kp: 1, Kd: 1},
			NeckOrientation: config.NeckOrientation{NeckWeight: 1.0},
			ContactForces: config.ContactForces{
				StaticFrictionCoefficient:    0.5,
				NumberOfPoints:               4,
				TorsionalFrictionCoefficient: 0.05,
				FootSize:                     [2][2]float64{{-0.1, 0.1}, {-0.05, 0.05}},
				MinimalNormalForce:           10,
			},
			RegularizationTask:  config.RegularizationTask{JointRegularization: 1e-4},
			RegularizationForce: config.RegularizationForce{Scale: 1, Offset: 0.01},
			RateOfChange:        config.RateOfChange{MaximumRateOfChange: 100},
		},
		AdmittanceController: config.AdmittanceController{Kp: 1, Kd: 1},
		ContactWrenchMapping: config.ContactWrenchMapping{RegularizationWeight: 1e-3},
	}

	state := kinematics.RobotState{
		NumJoints:       nJ,
		JointPositions:  []float64{0},
		JointVelocities: []float64{0},
		LeftWrench:      kinematics.Wrench{Force: mathutil.Vec3{0, 0, 250}},
		RightWrench:     kinematics.Wrench{Force: mathutil.Vec3{0, 0, 250}},
		Limits: kinematics.JointLimits{
			PositionLower: []float64{-1},
			PositionUpper: []float64{1},
			VelocityMax:   []float64{2},
			TorqueMax:     []float64{100},
		},
	}

	snap := kinematics.Snapshot{
		NumJoints:         nJ,
		MassMatrix:        identityScaled(n, 10),
		BiasForces:        mat.NewVecDense(n, nil),
		LeftFootJacobian:  mat.NewDense(6, n, nil),
		RightFootJacobian: mat.NewDense(6, n, nil),
		CoMJacobian:       comJacobian(n),
		CoMPosition:       mat.NewDense(3, 1, []float64{0, 0, 0.5}),
		CoMVelocity:       mathutil.Vec3{},
		NeckOrientation:   mathutil.Identity3(),
		LeftFootPose:      kinematics.Pose{Position: mathutil.Vec3{0, 0.05, 0}, Rotation: mathutil.Identity3()},
		RightFootPose:     kinematics.Pose{Position: mathutil.Vec3{0, -0.05, 0}, Rotation: mathutil.Identity3()},
	}

	return testRig{
		cfg:    cfg,
		driver: &fakeDriver{state: state},
		kin:    fakeProvider{snap: snap},
	}
}

func identityScaled(n int, scale float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, scale)
	}
	return m
}

func comJacobian(n int) *mat.Dense {
	j := mat.NewDense(3, n, nil)
	for i := 0; i < 3; i++ {
		j.Set(i, i, 1)
	}
	return j
}
