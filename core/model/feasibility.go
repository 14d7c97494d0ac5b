package model

// Default tolerances used when FeasibilityOptions leaves them unset.
const (
	DefaultViolationTolerance = 1e-5
	DefaultRelativeTolerance  = 1e-7
)

// FeasibilityOptions tunes the network constraint check. Nil tolerances
// select the defaults; an explicit zero means an exact check.
type FeasibilityOptions struct {
	// Linear evaluates constraints on real currents, ignoring phase angles.
	Linear             bool
	ViolationTolerance *float64
	RelativeTolerance  *float64
}

// Tolerance returns a pointer to v for use in FeasibilityOptions.
func Tolerance(v float64) *float64 { return &v }

// Tolerances returns the absolute and relative tolerances with defaults
// applied.
func (o FeasibilityOptions) Tolerances() (violation, relative float64) {
	violation, relative = DefaultViolationTolerance, DefaultRelativeTolerance
	if o.ViolationTolerance != nil {
		violation = *o.ViolationTolerance
	}
	if o.RelativeTolerance != nil {
		relative = *o.RelativeTolerance
	}
	return violation, relative
}
