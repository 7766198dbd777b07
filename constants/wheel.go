package constants

import "time"

// Spin Defaults
const (
	// DefaultSpinDuration matches the three second animation of the web wheel
	DefaultSpinDuration = 3 * time.Second

	DefaultMinTurns = 3
	DefaultMaxTurns = 5

	// MinTurnsFloor keeps every spin visibly a spin
	MinTurnsFloor = 2

	// DefaultBoundaryEpsilon is the clearance in radians kept from segment edges
	DefaultBoundaryEpsilon = 0.02
)

// Frame Rate
const (
	DefaultFPS = 60
	MinFPS     = 1
	MaxFPS     = 240
)

// Authority
const (
	// DefaultAuthorityTimeout bounds one round trip to the reward service
	DefaultAuthorityTimeout = 10 * time.Second

	// DefaultMaxAbsence is how many missed events make a member inactive
	DefaultMaxAbsence = 3
)
