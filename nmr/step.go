package nmr

// AllSteps addresses every step at once.
const AllSteps = -1

// StepFlag describes how a step takes part in processing.
type StepFlag uint8

const (
	// StepOK is a regular, usable step.
	StepOK StepFlag = iota
	// StepBlank marks a step that holds no data.
	StepBlank
	// StepIgnored excludes a step from chunk detection and the envelope.
	StepIgnored
	// StepNoEnvelope keeps a step processed but out of the envelope.
	StepNoEnvelope
	// StepHidden keeps a step processed but hidden from the envelope and views.
	StepHidden
)

var stepFlagNames = [...]string{"ok", "blank", "ignored", "no-envelope", "hidden"}

// String returns the flag name.
func (f StepFlag) String() string {
	if int(f) < len(stepFlagNames) {
		return stepFlagNames[f]
	}
	return "unknown"
}

// Valid reports whether f is a known flag.
func (f StepFlag) Valid() bool {
	return int(f) < len(stepFlagNames)
}

// ContributesToChunks reports whether a step's samples take part in chunk
// pattern detection.
func (f StepFlag) ContributesToChunks() bool {
	return f != StepIgnored && f != StepBlank
}

// EnvelopeEligible reports whether a step contributes to the envelope.
func (f StepFlag) EnvelopeEligible() bool {
	return f == StepOK
}

// InRange reports whether step addresses one of n steps.
func InRange(step, n int) bool {
	return step >= 0 && step < n
}
