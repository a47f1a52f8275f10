package ef

import "github.com/efcore/bvef/internal/term"

// crossStoreRebuild walks root (which lives in src) bottom-up and builds
// its equivalent in dst, the shape shared by the Refinement Builder and
// the Instantiator (section 4.4, 4.5): both rebuild a quantifier-free
// matrix from one store into another, substituting some leaves along
// the way. It is the cross-store analogue of internal/term.Rebuild,
// which only ever rebuilds within a single store — crossing the E/F
// solver boundary always means leaving the source store behind (section
// 5), so this traversal is kept local to this package rather than
// generalized into internal/term.
//
// leaf is consulted first at every node; if it returns ok, descent stops
// and its Ref (already in dst) is used directly — this is how
// Forall/Exists/quantifier params and UF symbols are substituted. build
// is then used for every node leaf declines, given the node and its
// already-rebuilt (in dst) children.
func crossStoreRebuild(
	src *term.Store,
	root term.Ref,
	dst *term.Store,
	leaf func(n *term.Node) (term.Ref, bool),
	build func(n *term.Node, rebuiltChildren []term.Ref) term.Ref,
) term.Ref {
	type frame struct {
		ref      term.Ref
		children []term.Ref
		next     int
	}

	done := make(map[term.NodeID]term.Ref)
	var stack []frame
	stack = append(stack, frame{ref: root})

	applyNeg := func(r term.Ref, neg bool) term.Ref {
		if !neg {
			return r
		}
		return dst.Not(r)
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if _, seen := done[top.ref.ID]; seen {
			stack = stack[:len(stack)-1]
			continue
		}

		n := src.Node(top.ref.ID)

		if top.children == nil {
			if r, ok := leaf(n); ok {
				done[top.ref.ID] = r
				stack = stack[:len(stack)-1]
				continue
			}
			top.children = n.Children
		}

		if top.next < len(top.children) {
			c := top.children[top.next]
			top.next++
			if _, seen := done[c.ID]; !seen {
				stack = append(stack, frame{ref: c})
			}
			continue
		}

		rebuilt := make([]term.Ref, len(n.Children))
		for i, c := range n.Children {
			rebuilt[i] = applyNeg(done[c.ID], c.Neg)
		}
		done[top.ref.ID] = build(n, rebuilt)
		stack = stack[:len(stack)-1]
	}

	return applyNeg(done[root.ID], root.Neg)
}
