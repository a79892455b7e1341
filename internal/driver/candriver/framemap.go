package candriver

// Frame/signal layout for the synthesized default map: one 8-byte command
// frame and one 8-byte feedback frame per actuated joint, plus one 8-byte
// wrench frame per foot. IDs are allocated sequentially off a base so two
// joints never collide; a deployment with a fixed board-assigned ID scheme
// should use LoadFrameMap with its own CSV instead.
const (
	jointCommandIDBase  = 0x100
	jointFeedbackIDBase = 0x200
	wrenchIDBase        = 0x300

	positionFactor = 1e-4 // rad per LSB
	velocityFactor = 1e-3 // rad/s per LSB
	torqueFactor   = 1e-2 // N*m per LSB
	wrenchFactor   = 1e-2 // N or N*m per LSB
)

// DefaultFrameMap synthesizes the joint command/feedback and foot-wrench
// frames for the given actuated-joint names. Command frames carry a mode
// signal (0 = position, 1 = torque) alongside both setpoints so a single
// frame per joint serves either config.RobotControl.PositionControlLaw
// path without doubling the frame count.
func DefaultFrameMap(jointNames []string) *FrameMap {
	m := &FrameMap{ByID: map[uint32]*FrameDef{}, ByName: map[string]*FrameDef{}}

	for i, name := range jointNames {
		cmdID := uint32(jointCommandIDBase + i)
		cmd := &FrameDef{
			ID: cmdID, Name: name + "_cmd", DLC: 8,
			Signals: []SignalDef{
				{Name: "mode", StartBit: 0, BitLength: 8, Factor: 1, Min: 0, Max: 1},
				{Name: "position_cmd", StartBit: 8, BitLength: 24, Signed: true, Factor: positionFactor, Min: -100, Max: 100},
				{Name: "torque_cmd", StartBit: 32, BitLength: 24, Signed: true, Factor: torqueFactor, Min: -1000, Max: 1000},
			},
		}
		m.ByID[cmdID] = cmd
		m.ByName[cmd.Name] = cmd

		// Feedback boards on this platform pack velocity Motorola-style,
		// MSB-first from byte 7's high bit down through byte 4; position
		// stays Intel in bytes 0-3. Velocity occupies the same byte range
		// (4-7) a LittleEndian StartBit=32 layout would, just numbered from
		// the other end.
		fbID := uint32(jointFeedbackIDBase + i)
		fb := &FrameDef{
			ID: fbID, Name: name + "_fb", DLC: 8,
			Signals: []SignalDef{
				{Name: "position", StartBit: 0, BitLength: 32, Signed: true, Order: LittleEndian, Factor: positionFactor, Min: -1000, Max: 1000},
				{Name: "velocity", StartBit: 56, BitLength: 32, Signed: true, Order: BigEndian, Factor: velocityFactor, Min: -1000, Max: 1000},
			},
		}
		m.ByID[fbID] = fb
		m.ByName[fb.Name] = fb
	}

	// Full 6-axis foot wrench feedback needs two frames per foot: a 64-bit
	// frame holds at most three 20-bit signed signals at this resolution.
	for i, side := range []string{"left", "right"} {
		forceID := uint32(wrenchIDBase + 4*i)
		force := &FrameDef{
			ID: forceID, Name: side + "_foot_force", DLC: 8,
			Signals: []SignalDef{
				{Name: "force_x", StartBit: 0, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -5000, Max: 5000},
				{Name: "force_y", StartBit: 20, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -5000, Max: 5000},
				{Name: "force_z", StartBit: 40, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -5000, Max: 5000},
			},
		}
		m.ByID[forceID] = force
		m.ByName[force.Name] = force

		torqueID := uint32(wrenchIDBase + 4*i + 1)
		torque := &FrameDef{
			ID: torqueID, Name: side + "_foot_torque", DLC: 8,
			Signals: []SignalDef{
				{Name: "torque_x", StartBit: 0, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -1000, Max: 1000},
				{Name: "torque_y", StartBit: 20, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -1000, Max: 1000},
				{Name: "torque_z", StartBit: 40, BitLength: 20, Signed: true, Factor: wrenchFactor, Min: -1000, Max: 1000},
			},
		}
		m.ByID[torqueID] = torque
		m.ByName[torque.Name] = torque
	}

	return m
}
