package ef

import (
	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/term"
)

// upsertSample inserts or overwrites the sample for a given argument
// tuple, keeping at most one observation per distinct dependency-value
// point (a later round re-observing the same counterexample overwrites
// rather than duplicates, since the function being synthesized is
// deterministic).
func upsertSample(samples []Sample, args bv.Tuple, value bv.Value) []Sample {
	for i, s := range samples {
		if s.Args.Equal(args) {
			samples[i].Value = value
			return samples
		}
	}
	return append(samples, Sample{Args: args, Value: value})
}

// synthesize implements the Synthesizer of section 4.6: it turns the
// E-solver's current assignment to the trivial existentials, plus every
// dependent existential's and every UF's accumulated (argument tuple ->
// output) sample set, into a candidate model (one entry per existential
// and one per UF, keyed by the same NodeID space — section 4.5's "for
// each existential/UF" treats the two uniformly). When EF_SYNTH is
// enabled and a function's samples all agree on one output value, it is
// synthesized as that constant function (the one-term synthesis this
// implementation attempts); otherwise the candidate falls back to
// mk_concrete_lambda_model — an explicit ite-chain over the observed
// samples, which is always sound by construction.
func (d *Driver) synthesize(trivialVals map[term.NodeID]bv.Value, samples map[term.NodeID][]Sample) map[term.NodeID]ExistentialModel {
	candidate := make(map[term.NodeID]ExistentialModel, len(d.prob.Existentials)+len(d.prob.UFs))
	for _, e := range d.prob.Existentials {
		deps := d.deps[e.ID]
		width := widthOf(d.prob.Store, e)
		if len(deps) == 0 {
			v, ok := trivialVals[e.ID]
			if !ok {
				v = bv.Zero(width)
			}
			candidate[e.ID] = ExistentialModel{Trivial: true, Value: v}
			continue
		}
		candidate[e.ID] = d.fitOrSample(samples[e.ID], deps, width)
	}
	for _, uf := range d.prob.UFs {
		width := ufCodomainWidth(d.prob.Store, uf)
		candidate[uf.ID] = d.fitOrSample(samples[uf.ID], nil, width)
	}
	return candidate
}

// fitOrSample is the shared decision every dependent existential and
// every UF goes through: try the constant-function shortcut over its
// accumulated samples, else keep the sample table as an always-sound
// ite-chain fallback (section 4.6).
func (d *Driver) fitOrSample(s []Sample, deps []term.Ref, width uint32) ExistentialModel {
	if d.opts.Synth && len(s) > 0 && len(s) <= d.opts.EnumLimit {
		if constVal, ok := constantFit(s); ok {
			d.stats.SynthReused++
			return ExistentialModel{Trivial: true, Value: constVal}
		}
	}
	d.stats.SynthFallbacks++
	return ExistentialModel{
		Trivial: false,
		Deps:    deps,
		Samples: append([]Sample(nil), s...),
		Default: bv.Zero(width),
	}
}

// constantFit reports whether every observed sample agrees on the same
// output value, in which case the dependent existential can be
// synthesized as a single constant function rather than a sampled one
// (a trivial but real one-term synthesis heuristic).
func constantFit(samples []Sample) (bv.Value, bool) {
	if len(samples) == 0 {
		return bv.Value{}, false
	}
	first := samples[0].Value
	for _, s := range samples[1:] {
		if !s.Value.Equal(first) {
			return bv.Value{}, false
		}
	}
	return first, true
}
