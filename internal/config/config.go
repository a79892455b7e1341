// Package config loads the hierarchical key-value configuration document.
// Loading follows the teacher's scenario-file idiom
// (closed_loop/scenario.go): read the whole file, json.Unmarshal into a
// typed tree, then run structural validation and return a wrapped error
// on the first problem found. Config errors are fatal at init.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// General corresponds to the GENERAL group.
type General struct {
	SamplingTime float64 `json:"sampling_time"`
	Name string `json:"name"`
}

// RobotControl corresponds to the ROBOT_CONTROL driver-config group. Its
// fields are opaque to the core; they are handed verbatim to whichever
// driver.RobotDriver implementation is constructed.
type RobotControl struct {
	RemoteControlBoards []string `json:"remote_control_boards"`
	ActuatedJoints []string `json:"actuated_joints"`
	PositionControlLaw string `json:"position_control_law"`
}

// FTSensors corresponds to the FT_SENSORS driver-config group.
type FTSensors struct {
	LeftFootFrame string `json:"left_foot_frame"`
	RightFootFrame string `json:"right_foot_frame"`
	UseFootWrench bool `json:"use_foot_wrench"`
}

// TrajectoryPlanner corresponds to TRAJECTORY_PLANNER.
type TrajectoryPlanner struct {
	StepHeight float64 `json:"step_height"`
	NominalStepTime float64 `json:"nominal_step_time"`
	NominalStepWidth float64 `json:"nominal_step_width"`
}

// StepAdaptator corresponds to STEP_ADAPTATOR, the kinematic/feasibility
// bounds on the step-adaptor QP.
type StepAdaptator struct {
	UseStepAdaptation bool `json:"use_step_adaptation"`
	MaxStepDuration float64 `json:"max_step_duration"`
	MinStepDuration float64 `json:"min_step_duration"`
	MaxFootDisplacementX float64 `json:"max_foot_displacement_x"`
	MaxFootDisplacementY float64 `json:"max_foot_displacement_y"`
	CostTimeWeight float64 `json:"cost_time_weight"`
	CostPositionWeight float64 `json:"cost_position_weight"`
	CostOffsetWeight float64 `json:"cost_offset_weight"`
}

// DCMReactiveController corresponds to DCM_REACTIVE_CONTROLLER.
type DCMReactiveController struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
}

// DCMMPCController corresponds to DCM_MPC_CONTROLLER.
type DCMMPCController struct {
	Horizon int `json:"horizon"`
	WeightTracking float64 `json:"weight_tracking"`
	WeightInput float64 `json:"weight_input"`
}

// ZMPController corresponds to ZMP_CONTROLLER.
type ZMPController struct {
	KZmp float64 `json:"k_zmp"`
	KCom float64 `json:"k_com"`
}

// InverseKinematicsQPSolver corresponds to INVERSE_KINEMATICS_QP_SOLVER.
type InverseKinematicsQPSolver struct {
	UseCoMAsConstraint bool `json:"useCoMAsConstraint"`
	KU float64 `json:"k_u"`
	KB float64 `json:"k_b"`
	JointRegularization float64 `json:"jointRegularization"`
	AdditionalRotation [3]float64 `json:"additional_rotation"`
}

// ForwardKinematicsSolver corresponds to FORWARD_KINEMATICS_SOLVER.
type ForwardKinematicsSolver struct {
	URDFPath string `json:"urdf_path"`
	JointList []string `json:"joint_list"`
	RootLinkName string `json:"root_link_name"`
}

// PIDGains corresponds to the top-level PID gain schedule.
type PIDGains struct {
	LinearKp float64 `json:"linear_kp"`
	LinearKd float64 `json:"linear_kd"`
	RotC0 float64 `json:"rotational_c0"`
	RotC1 float64 `json:"rotational_c1"`
	RotC2 float64 `json:"rotational_c2"`
}

// Retargeting corresponds to RETARGETING.
type Retargeting struct {
	Enabled bool `json:"enabled"`
	SmoothTime float64 `json:"smoothing_time"`
}

// ContactWrenchMapping corresponds to CONTACT_WRENCH_MAPPING.
type ContactWrenchMapping struct {
	RegularizationWeight float64 `json:"regularization_weight"`
}

// AdmittanceController corresponds to ADMITTANCE_CONTROLLER.
type AdmittanceController struct {
	Kp float64 `json:"kp"`
	Kd float64 `json:"kd"`
}

// CoMTask corresponds to the torque QP's COM subgroup.
type CoMTask struct {
	Kp float64 `json:"kp"`
	Kd float64 `json:"kd"`
	ControlOnlyHeight bool `json:"controllOnlyHeight"`
}

// FeetTask corresponds to the torque QP's FEET subgroup.
type FeetTask struct {
	Kp float64 `json:"kp"`
	Kd float64 `json:"kd"`
	C0 float64 `json:"c0"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
}

// ZMPTask corresponds to the torque QP's ZMP subgroup.
type ZMPTask struct {
	Weight float64 `json:"weight"`
}

// ContactForces corresponds to CONTACT_FORCES. FootSize is
// [{minX,maxX},{minY,maxY}] of the foot rectangle in the local contact
// frame, giving the CoP bounds L_x = FootSize[0][1], L_y = FootSize[1][1].
type ContactForces struct {
	StaticFrictionCoefficient float64 `json:"staticFrictionCoefficient"`
	NumberOfPoints int `json:"numberOfPoints"`
	TorsionalFrictionCoefficient float64 `json:"torsionalFrictionCoefficient"`
	FootSize [2][2]float64 `json:"foot_size"`
	MinimalNormalForce float64 `json:"minimalNormalForce"`
}

// NeckOrientation corresponds to NECK_ORIENTATION.
type NeckOrientation struct {
	C0 float64 `json:"c0"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
	NeckWeight float64 `json:"neckWeight"`
	AdditionalRotation [3]float64 `json:"additional_rotation"`
}

// RegularizationTask corresponds to REGULARIZATION_TASK.
type RegularizationTask struct {
	JointRegularization float64 `json:"jointRegularization"`
	JointRegularizationWeights []float64 `json:"jointRegularizationWeights"`
	ProportionalGains []float64 `json:"proportionalGains"`
	DerivativeGains []float64 `json:"derivativeGains"`
}

// RegularizationTorque corresponds to REGULARIZATION_TORQUE.
type RegularizationTorque struct {
	RegularizationWeights []float64 `json:"regularizationWeights"`
}

// RegularizationForce corresponds to REGULARIZATION_FORCE.
type RegularizationForce struct {
	Scale float64 `json:"regularizationForceScale"`
	Offset float64 `json:"regularizationForceOffset"`
}

// RateOfChange corresponds to RATE_OF_CHANGE.
type RateOfChange struct {
	MaximumRateOfChange float64 `json:"maximumRateOfChange"`
}

// TorqueQP bundles the subgroups nested within the task-based torque QP.
type TorqueQP struct {
	CoM CoMTask `json:"COM"`
	Feet FeetTask `json:"FEET"`
	ZMP ZMPTask `json:"ZMP"`
	ContactForces ContactForces `json:"CONTACT_FORCES"`
	NeckOrientation NeckOrientation `json:"NECK_ORIENTATION"`
	RegularizationTask RegularizationTask `json:"REGULARIZATION_TASK"`
	RegularizationTorque RegularizationTorque `json:"REGULARIZATION_TORQUE"`
	RegularizationForce RegularizationForce `json:"REGULARIZATION_FORCE"`
	RateOfChange RateOfChange `json:"RATE_OF_CHANGE"`
}

// Toggles corresponds to the flat boolean toggle set in
type Toggles struct {
	UseStepAdaptation bool `json:"use_step_adaptation"`
	UseMPC bool `json:"use_mpc"`
	UseQPIK bool `json:"use_QP-IK"`
	UseOSQP bool `json:"use_osqp"`
	DumpData bool `json:"dump_data"`
}

// Config is the complete hierarchical document, unmarshaled from JSON.
type Config struct {
	General General `json:"GENERAL"`
	RobotControl RobotControl `json:"ROBOT_CONTROL"`
	FTSensors FTSensors `json:"FT_SENSORS"`
	TrajectoryPlanner TrajectoryPlanner `json:"TRAJECTORY_PLANNER"`
	StepAdaptator StepAdaptator `json:"STEP_ADAPTATOR"`
	DCMMPCController DCMMPCController `json:"DCM_MPC_CONTROLLER"`
	DCMReactiveController DCMReactiveController `json:"DCM_REACTIVE_CONTROLLER"`
	ZMPController ZMPController `json:"ZMP_CONTROLLER"`
	InverseKinematicsQP InverseKinematicsQPSolver `json:"INVERSE_KINEMATICS_QP_SOLVER"`
	ForwardKinematicsSolver ForwardKinematicsSolver `json:"FORWARD_KINEMATICS_SOLVER"`
	PID PIDGains `json:"PID"`
	Retargeting Retargeting `json:"RETARGETING"`
	ContactWrenchMapping ContactWrenchMapping `json:"CONTACT_WRENCH_MAPPING"`
	AdmittanceController AdmittanceController `json:"ADMITTANCE_CONTROLLER"`
	TorqueQP TorqueQP `json:"TORQUE_QP"`
	Toggles Toggles `json:"TOGGLES"`
}

// Load reads and validates the configuration document at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, wverr.Wrap(wverr.KindConfig, "read config file", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, wverr.Wrap(wverr.KindConfig, "unmarshal config", err)
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.General.SamplingTime <= 0 {
		return wverr.New(wverr.KindConfig, fmt.Sprintf("invalid GENERAL.sampling_time: %f", cfg.General.SamplingTime))
	}
	if cfg.Toggles.UseMPC && cfg.DCMMPCController.Horizon <= 0 {
		return wverr.New(wverr.KindConfig, "DCM_MPC_CONTROLLER.horizon must be > 0 when use_mpc is set")
	}
	if cfg.TorqueQP.ContactForces.NumberOfPoints < 3 {
		return wverr.New(wverr.KindConfig, "CONTACT_FORCES.numberOfPoints must be >= 3")
	}
	if cfg.TorqueQP.ContactForces.StaticFrictionCoefficient <= 0 {
		return wverr.New(wverr.KindConfig, "CONTACT_FORCES.staticFrictionCoefficient must be > 0")
	}
	return nil
}
