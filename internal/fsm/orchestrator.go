package fsm

import (
	"sync"

	"github.com/GCS-LG/walking-controllers/internal/admittance"
	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/dcm"
	"github.com/GCS-LG/walking-controllers/internal/driver"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/logging"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/retarget"
	"github.com/GCS-LG/walking-controllers/internal/stepadaptor"
	"github.com/GCS-LG/walking-controllers/internal/trajectory"
	"github.com/GCS-LG/walking-controllers/internal/wholebody/ik"
	"github.com/GCS-LG/walking-controllers/internal/wholebody/torque"
	"github.com/GCS-LG/walking-controllers/internal/wrenchmap"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
	"github.com/GCS-LG/walking-controllers/internal/zmpcom"
)

// bufferLength is the number of samples the reference trajectory buffers
// carry. Picked large enough to hold several merge-point lookaheads
// (trajectory.spliceLookahead is 10) plus margin.
const bufferLength = 100

// gravity is the standard-gravity constant used everywhere ω = sqrt(g/h)
// is recomputed: every tick, from the commanded CoM height.
const gravity = 9.81

// dcmIntegralLimit bounds the reactive DCM controller's integral term.
// Not part of the configuration schema (DCM_REACTIVE_CONTROLLER carries
// only kp/ki); fixed here as a conservative anti-windup bound rather than
// left unbounded.
const dcmIntegralLimit = 0.05

// Orchestrator owns the controller lifecycle and the single control
// thread's per-tick state, mirroring the teacher's Runner
// (closed_loop/runner.go): one goroutine calls Tick at a fixed period,
// remote command methods mutate state under the same mutex rather than
// through a second thread.
type Orchestrator struct {
	cfg config.Config
	drv driver.RobotDriver
	wrenchSrc driver.WrenchSource
	kin kinematics.Provider
	planner trajectory.Planner
	hand *retarget.SmoothedClient
	log *logging.Logger

	nJ int
	dt float64

	mu sync.Mutex
	state State
	justEnteredWalking bool

	dcmReactive *dcm.Reactive
	dcmMPC *dcm.MPC
	zmpCtrl *zmpcom.Controller
	lipm *zmpcom.LIPMIntegrator
	stepAdaptor *stepadaptor.Adaptor
	wrenchMapper *wrenchmap.Mapper
	ikSolver *ik.Solver
	torqueSolver *torque.Solver
	admittanceCtrl *admittance.Controller

	buffer *trajectory.Buffer
	merge *trajectory.MergeScheduler
	goal trajectory.Goal

	qCmd []float64
	admittanceJointVel []float64
	admittanceJointPos []float64
}

// NewOrchestrator constructs an Orchestrator in state Configured. hand may
// be nil when config.Retargeting.Enabled is false.
func NewOrchestrator(cfg config.Config, drv driver.RobotDriver, kin kinematics.Provider, planner trajectory.Planner, hand retarget.HandClient, log *logging.Logger) (*Orchestrator, error) {
	nJ := len(cfg.RobotControl.ActuatedJoints)
	if nJ == 0 {
		return nil, wverr.New(wverr.KindConfig, "ROBOT_CONTROL.actuated_joints is empty")
	}
	dt := cfg.General.SamplingTime

	var wrenchSrc driver.WrenchSource
	if ws, ok := drv.(driver.WrenchSource); ok {
		wrenchSrc = ws
	}

	var smoothed *retarget.SmoothedClient
	if hand != nil {
		smoothed = retarget.NewSmoothedClient(hand, cfg.Retargeting.SmoothTime)
	}

	o := &Orchestrator{
		cfg: cfg,
		drv: drv,
		wrenchSrc: wrenchSrc,
		kin: kin,
		planner: planner,
		hand: smoothed,
		log: log,
		nJ: nJ,
		dt: dt,
		state: Configured,

		dcmReactive: dcm.NewReactive(dcm.ReactiveGains{
			Kp: cfg.DCMReactiveController.Kp,
			Ki: cfg.DCMReactiveController.Ki,
			IntegralLimit: dcmIntegralLimit,
		}),
		dcmMPC: dcm.NewMPC(dcm.MPCGains{
			Horizon: cfg.DCMMPCController.Horizon,
			WeightTracking: cfg.DCMMPCController.WeightTracking,
			WeightInput: cfg.DCMMPCController.WeightInput,
		}, dt),
		zmpCtrl: zmpcom.NewController(zmpcom.Gains{
			KZmp: cfg.ZMPController.KZmp,
			KCom: cfg.ZMPController.KCom,
		}),
		lipm: zmpcom.NewLIPMIntegrator(mathutil.Vec2{}, mathutil.Vec2{}),
		stepAdaptor: stepadaptor.NewAdaptor(stepadaptor.Gains{
			MaxStepDuration: cfg.StepAdaptator.MaxStepDuration,
			MinStepDuration: cfg.StepAdaptator.MinStepDuration,
			MaxFootDisplacementX: cfg.StepAdaptator.MaxFootDisplacementX,
			MaxFootDisplacementY: cfg.StepAdaptator.MaxFootDisplacementY,
			CostTimeWeight: cfg.StepAdaptator.CostTimeWeight,
			CostPositionWeight: cfg.StepAdaptator.CostPositionWeight,
			CostOffsetWeight: cfg.StepAdaptator.CostOffsetWeight,
		}),
		wrenchMapper: wrenchmap.NewMapper(cfg.TorqueQP.ContactForces, cfg.ContactWrenchMapping.RegularizationWeight),
		ikSolver: ik.NewSolver(cfg.InverseKinematicsQP, nJ),
		torqueSolver: torque.NewSolver(cfg.TorqueQP, nJ, dt, nil),
		admittanceCtrl: admittance.NewController(cfg.AdmittanceController, cfg.TorqueQP.CoM, cfg.TorqueQP.NeckOrientation, cfg.TorqueQP.RegularizationTask, nJ),

		merge: trajectory.NewMergeScheduler(),

		admittanceJointVel: make([]float64, nJ),
		admittanceJointPos: make([]float64, nJ),
	}
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}
