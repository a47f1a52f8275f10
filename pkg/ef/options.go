package ef

import "io"

// NumberFormat names a base for rendering model values, mirroring the
// OUTPUT_NUMBER_FORMAT option of section 6.4. The driver carries it in
// Options but does not read it; value rendering is done by the caller.
type NumberFormat uint8

const (
	// FormatBinary renders values as 0/1 strings (the default).
	FormatBinary NumberFormat = iota
	FormatHex
	FormatDecimal
)

// Options configures one EF Driver run. Construct with DefaultOptions
// and the With* functional options below, the same pattern the teacher
// package uses for DefaultSolverConfig/NewFDSolver.
type Options struct {
	// Synth enables the synthesis-based refinement of section 4.6; when
	// false, the driver never tries the constant-function fit and always
	// uses the sample ite-chain model (EF_SYNTH=false of section 6.5).
	Synth bool

	// DualSolver is accepted for compatibility with the option surface
	// of section 6.5 (EF_DUAL_SOLVER) but is a recognized no-op: this
	// driver always runs the single-solver refinement loop of section
	// 4.7 (see the Open Questions resolution in DESIGN.md).
	DualSolver bool

	// NumberFormat is stored for the caller; the driver does not read it.
	NumberFormat NumberFormat

	// MaxRefinements bounds the CEGIS loop; zero means unbounded. Hitting
	// the bound returns ErrResourceExhausted.
	MaxRefinements int

	// EnumLimit is the largest number of accumulated samples for which
	// the synthesizer tries the constant-function fit; with more samples,
	// or with EnumLimit zero, it keeps the sample ite-chain model. The
	// limit stays fixed for the whole run: it is not adapted or doubled
	// between rounds.
	EnumLimit int

	// Trace, if non-nil, receives one line per EF Driver state
	// transition (section 10.2); nil disables tracing.
	Trace io.Writer
}

// DefaultOptions returns the Options a Driver uses when none are given:
// synthesis on, dual solver off, binary output, unbounded refinements,
// the package's default constant-fit sample limit.
func DefaultOptions() Options {
	return Options{
		Synth:        true,
		DualSolver:   false,
		NumberFormat: FormatBinary,
		MaxRefinements: 0,
		EnumLimit:    defaultEnumLimit,
	}
}

const defaultEnumLimit = 4

// Option mutates an Options value; functional options are applied in
// order by NewDriver.
type Option func(*Options)

// WithSynth toggles synthesis-based refinement (EF_SYNTH, section 6.5).
func WithSynth(enabled bool) Option {
	return func(o *Options) { o.Synth = enabled }
}

// WithDualSolver sets the EF_DUAL_SOLVER flag. Accepted, but a no-op
// (see Options.DualSolver).
func WithDualSolver(enabled bool) Option {
	return func(o *Options) { o.DualSolver = enabled }
}

// WithNumberFormat sets the model output number format (section 6.4).
func WithNumberFormat(f NumberFormat) Option {
	return func(o *Options) { o.NumberFormat = f }
}

// WithMaxRefinements bounds the number of CEGIS refinement rounds.
func WithMaxRefinements(n int) Option {
	return func(o *Options) { o.MaxRefinements = n }
}

// WithEnumLimit sets the synthesizer's constant-fit sample limit (see
// Options.EnumLimit).
func WithEnumLimit(n int) Option {
	return func(o *Options) { o.EnumLimit = n }
}

// WithTrace installs a writer that receives one line per state-machine
// transition, the driver's only logging surface (section 10.2).
func WithTrace(w io.Writer) Option {
	return func(o *Options) { o.Trace = w }
}

func buildOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
