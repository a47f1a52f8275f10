// Command efsolve reads a quantified bit-vector formula (the SMT-LIB2
// subset of internal/sexpr: declare-const, declare-fun, assert,
// forall/exists, and the core BV operators) from a file or stdin and
// runs the EF CEGIS driver of pkg/ef over it, printing sat/unsat and,
// when sat, an SMT-LIB2 model block whose values are written in the
// number base selected by -format (section 6.4).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/efcore/bvef/internal/bv"
	"github.com/efcore/bvef/internal/sexpr"
	"github.com/efcore/bvef/pkg/ef"
)

func main() {
	var (
		format      = flag.String("format", "binary", "model number format: binary, hex, decimal")
		synth       = flag.Bool("synth", true, "enable synthesis-based refinement")
		dualSolver  = flag.Bool("dual-solver", false, "accepted for option-surface compatibility; no-op")
		maxRefine   = flag.Int("max-refinements", 0, "bound on CEGIS refinement rounds (0 = unbounded)")
		enumLimit   = flag.Int("enum-limit", 0, "synthesizer constant-fit sample limit (0 = package default)")
		timeout     = flag.Duration("timeout", 0, "overall wall-clock budget (0 = unbounded)")
		verbose     = flag.Bool("v", false, "enable trace logging of driver state transitions")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "efsolve",
		Level: hclog.Warn,
	})
	if *verbose {
		logger.SetLevel(hclog.Debug)
	}

	var src *os.File
	if flag.NArg() >= 1 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			logger.Error("failed to open input", "error", err)
			os.Exit(2)
		}
		defer f.Close()
		src = f
	} else {
		src = os.Stdin
	}

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := src.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}

	forms, err := sexpr.Parse(string(buf))
	if err != nil {
		logger.Error("parse error", "error", err)
		os.Exit(2)
	}

	b := sexpr.NewBuilder()
	if err := b.Process(forms); err != nil {
		logger.Error("build error", "error", err)
		os.Exit(2)
	}
	prob, err := b.Problem()
	if err != nil {
		logger.Error("build error", "error", err)
		os.Exit(2)
	}

	nf, err := parseFormat(*format)
	if err != nil {
		logger.Error("bad -format", "error", err)
		os.Exit(2)
	}

	opts := []ef.Option{
		ef.WithSynth(*synth),
		ef.WithDualSolver(*dualSolver),
		ef.WithNumberFormat(nf),
		ef.WithMaxRefinements(*maxRefine),
	}
	if *enumLimit > 0 {
		opts = append(opts, ef.WithEnumLimit(*enumLimit))
	}
	if *verbose {
		opts = append(opts, ef.WithTrace(os.Stderr))
	}

	driver := ef.NewDriver(prob, opts...)

	ctx := context.Background()
	var cancel context.CancelFunc
	if *timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := driver.Solve(ctx)
	elapsed := time.Since(start)

	if err != nil {
		logger.Error("solve failed", "error", err, "elapsed", elapsed)
		os.Exit(1)
	}

	switch res.Status {
	case ef.StatusSat:
		fmt.Println("sat")
		printModel(prob, res, nf)
	case ef.StatusUnsat:
		fmt.Println("unsat")
	default:
		fmt.Println("unknown")
	}
	logger.Debug("solved", "status", res.Status, "refinements", res.Stats.Refinements, "elapsed", elapsed)
}

func parseFormat(s string) (ef.NumberFormat, error) {
	switch s {
	case "binary":
		return ef.FormatBinary, nil
	case "hex":
		return ef.FormatHex, nil
	case "decimal":
		return ef.FormatDecimal, nil
	default:
		return 0, fmt.Errorf("unknown format %q (want binary, hex, or decimal)", s)
	}
}

// printModel renders res.Model in the SMT-LIB2 model block format of
// section 6.4: a top-level (model ...) wrapping one (define-fun SYMBOL
// (PARAMS) SORT EXPR) per existential and per UF, with a dependent
// existential's or a UF's function body expressed as a nested ite over
// argument equalities terminating in its default value, mirroring the
// concrete-lambda construction of section 4.6.
func printModel(prob ef.Problem, res ef.Result, nf ef.NumberFormat) {
	fmt.Println("(model")
	for _, e := range prob.Existentials {
		m, ok := res.Model[e.ID]
		if !ok {
			continue
		}
		name := prob.Store.Node(e.ID).Name
		width := prob.Store.Width(prob.Store.SortOfRef(e))
		paramWidths := make([]uint32, len(m.Deps))
		for i, dep := range m.Deps {
			paramWidths[i] = prob.Store.Width(prob.Store.SortOfRef(dep))
		}
		printDefineFun(name, paramWidths, width, m, nf)
	}
	for _, uf := range prob.UFs {
		m, ok := res.Model[uf.ID]
		if !ok {
			continue
		}
		name := prob.Store.Node(uf.ID).Name
		sort := prob.Store.SortOf(prob.Store.SortOfRef(uf))
		width := prob.Store.Width(sort.Codomain)
		domain := prob.Store.SortOf(sort.Domain)
		paramWidths := make([]uint32, len(domain.Elems))
		for i, elem := range domain.Elems {
			paramWidths[i] = prob.Store.Width(elem)
		}
		printDefineFun(name, paramWidths, width, m, nf)
	}
	fmt.Println(")")
}

// printDefineFun prints one (define-fun ...) entry with one parameter per
// entry of paramWidths (a UF's domain, or an existential model's Deps,
// which is empty for a trivial existential model). A trivial model (a
// dependency-free existential, or a function synthesized as a constant)
// has a bare value body; otherwise the body is the ite-chain built by
// iteChain.
func printDefineFun(name string, paramWidths []uint32, resultWidth uint32, m ef.ExistentialModel, nf ef.NumberFormat) {
	paramNames := make([]string, len(paramWidths))
	for i := range paramNames {
		paramNames[i] = fmt.Sprintf("p%d", i)
	}
	var params strings.Builder
	for i, w := range paramWidths {
		if i > 0 {
			params.WriteByte(' ')
		}
		fmt.Fprintf(&params, "(%s %s)", paramNames[i], bvSort(w))
	}

	if m.Trivial {
		fmt.Printf("  (define-fun %s (%s) %s %s)\n", name, params.String(), bvSort(resultWidth), renderValue(m.Value, resultWidth, nf))
		return
	}
	fmt.Printf("  (define-fun %s (%s) %s %s)\n", name, params.String(), bvSort(resultWidth), iteChain(paramNames, m.Samples, m.Default, nf))
}

// bvSort renders the SMT-LIB2 fixed-size bit-vector sort of width w.
func bvSort(w uint32) string {
	return fmt.Sprintf("(_ BitVec %d)", w)
}

// iteChain builds the nested ite over argument-equality conditions that
// represents a sampled function's concrete model (section 4.6), wrapping
// samples in slice order so the first sample is the innermost test and
// the last the outermost, and falling through to def when no sample's
// arguments match.
func iteChain(paramNames []string, samples []ef.Sample, def bv.Value, nf ef.NumberFormat) string {
	acc := renderValue(def, def.Width(), nf)
	for _, s := range samples {
		acc = fmt.Sprintf("(ite %s %s %s)", eqConds(paramNames, s.Args, nf), renderValue(s.Value, s.Value.Width(), nf), acc)
	}
	return acc
}

// eqConds conjoins one equality per argument position between the
// define-fun's formal parameters and a sample's observed argument tuple.
func eqConds(names []string, args bv.Tuple, nf ef.NumberFormat) string {
	if len(names) == 0 {
		return "true"
	}
	var b strings.Builder
	b.WriteString("(and")
	for i, name := range names {
		fmt.Fprintf(&b, " (= %s %s)", name, renderValue(args[i], args[i].Width(), nf))
	}
	b.WriteByte(')')
	return b.String()
}

func renderValue(v interface {
	Uint64() uint64
}, width uint32, nf ef.NumberFormat) string {
	switch nf {
	case ef.FormatHex:
		return fmt.Sprintf("#x%0*x", (width+3)/4, v.Uint64())
	case ef.FormatDecimal:
		return fmt.Sprintf("%d", v.Uint64())
	default:
		return fmt.Sprintf("#b%0*b", width, v.Uint64())
	}
}
