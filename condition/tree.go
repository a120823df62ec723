package condition

import "github.com/fluxgate/decisionengine/core"

// LeafFunc resolves a single leaf index (or, for audience-of-audiences
// trees, a single element index standing in for an audience ID) to its
// three-valued result. The audience package supplies two different
// LeafFunc implementations over the same EvalTree: one that dispatches
// to a LeafEvaluator for custom-attribute leaves, one that looks up and
// recursively evaluates an inner audience.
type LeafFunc func(index int) core.TriState

// EvalTree applies Kleene three-valued boolean logic over a condition
// structure, per §4.3. Leaves are visited left-to-right; short-circuit
// evaluation is used only where doing so cannot change the result (or
// must still visit every operand before returning False, since a later
// operand could still be True or Unknown).
func EvalTree(n *Node, leaf LeafFunc) core.TriState {
	if n == nil {
		return core.Unknown
	}

	switch n.Kind {
	case NodeLeaf:
		return leaf(n.LeafIndex)

	case NodeOperator:
		switch n.Op {
		case OpNot:
			if len(n.Children) == 0 {
				return core.Unknown
			}
			return EvalTree(n.Children[0], leaf).Not()

		case OpAnd:
			return evalAnd(n.Children, leaf)

		case OpOr:
			return evalOr(n.Children, leaf)

		default:
			return core.Unknown
		}

	default:
		return core.Unknown
	}
}

// evalAnd short-circuits on the first False child (and cannot be
// invalidated by later operands), but otherwise visits every child so
// that a child logs as part of the traversal the original
// implementation performs. Once every visited child is in hand, the
// fold itself is delegated to core.And.
func evalAnd(children []*Node, leaf LeafFunc) core.TriState {
	if len(children) == 0 {
		return core.Unknown
	}
	results := make([]core.TriState, 0, len(children))
	for _, c := range children {
		r := EvalTree(c, leaf)
		if r == core.False {
			return core.False
		}
		results = append(results, r)
	}
	return core.And(results...)
}

// evalOr must not return False until every operand has been evaluated
// and none produced True or Unknown (§4.3), so unlike evalAnd it never
// returns early on a False child — only on a True one, which can no
// longer be changed by later operands. The final fold is delegated to
// core.Or.
func evalOr(children []*Node, leaf LeafFunc) core.TriState {
	if len(children) == 0 {
		return core.Unknown
	}
	results := make([]core.TriState, 0, len(children))
	for _, c := range children {
		r := EvalTree(c, leaf)
		if r == core.True {
			return core.True
		}
		results = append(results, r)
	}
	return core.Or(results...)
}
