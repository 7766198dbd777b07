package constants

import "time"

// UI Layout Constants
const (
	// HeaderRows is the title line above the wheel
	HeaderRows = 1

	// FooterRows holds the result banner and the status bar
	FooterRows = 2

	// MinWheelRows is the smallest region worth drawing a wheel in
	MinWheelRows = 5
)

// UI Text
const (
	TitleText = " Guild Reward Wheel "
	KeyHints  = "space spin  g/s quality  r refresh  m mute  q quit"
)

// UI Timing Constants
const (
	// StatusMessageTimeout is how long transient status messages stay up
	StatusMessageTimeout = 4 * time.Second

	// RefreshDebounce drops refresh requests arriving closer together than this
	RefreshDebounce = 500 * time.Millisecond
)
