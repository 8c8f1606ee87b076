package params

// ZeroOrderMode selects how a step's zero-order phase is obtained.
type ZeroOrderMode uint8

const (
	// ModeManual uses the stored value.
	ModeManual ZeroOrderMode = iota
	// ModeAuto computes the value from the step's own spectrum.
	ModeAuto
	// ModeAllTogether computes one value from every all-together step.
	ModeAllTogether
	// ModeFollowPilot copies the value of the pilot step.
	ModeFollowPilot
)

var zeroOrderNames = [...]string{"manual", "auto", "all-together", "follow-pilot"}

func (m ZeroOrderMode) String() string {
	if int(m) < len(zeroOrderNames) {
		return zeroOrderNames[m]
	}
	return "unknown"
}

// Valid reports whether m is a known mode.
func (m ZeroOrderMode) Valid() bool { return int(m) < len(zeroOrderNames) }

// Automatic reports whether the value is computed rather than stored.
func (m ZeroOrderMode) Automatic() bool { return m != ModeManual }

// FirstOrderRef selects the time origin of the first-order phase value.
type FirstOrderRef uint8

const (
	// RefRelative measures the delay from the processing-window start.
	RefRelative FirstOrderRef = iota
	// RefAbsolute measures the delay from the chunk start.
	RefAbsolute
)

func (r FirstOrderRef) String() string {
	switch r {
	case RefRelative:
		return "relative"
	case RefAbsolute:
		return "absolute"
	}
	return "unknown"
}

// Valid reports whether r is a known reference.
func (r FirstOrderRef) Valid() bool { return r <= RefAbsolute }
