package condition

import (
	"strings"

	"github.com/fluxgate/decisionengine/core"
)

// Log message IDs, emitted verbatim per §6. The format is a contract:
// callers match on these exact strings when asserting on log output.
const (
	LogMissingAttributeValue = "MISSING_ATTRIBUTE_VALUE"
	LogUnexpectedType        = "UNEXPECTED_TYPE"
)

// LeafEvaluator evaluates a single leaf against a fixed set of user
// attributes, per the dispatch table in §4.2. One LeafEvaluator is
// built per audience (closing over that audience's condition list and
// the attributes for the current decision) rather than per leaf, since
// §4.2's logging contract needs the full leaf JSON and attribute name
// at the point of evaluation.
type LeafEvaluator struct {
	leaves []Leaf
	attrs  map[string]any
	logger core.Logger
}

// NewLeafEvaluator builds an evaluator over a condition list and the
// current decision's user attributes. attrs may be nil (treated as no
// attributes present).
func NewLeafEvaluator(leaves []Leaf, attrs map[string]any, logger core.Logger) *LeafEvaluator {
	if logger == nil {
		logger = core.NoopLogger{}
	}
	return &LeafEvaluator{leaves: leaves, attrs: attrs, logger: logger}
}

// Evaluate dispatches leaf index to its match rule and returns the
// three-valued result, logging MISSING_ATTRIBUTE_VALUE / UNEXPECTED_TYPE
// as required by §4.2 and §7. A malformed type or match is Unknown
// immediately, without logging — only the documented match kinds log a
// warning when the user-side attribute is missing or mistyped.
func (e *LeafEvaluator) Evaluate(index int) core.TriState {
	leaf := e.leaves[index]

	if !leaf.HasType || leaf.Type != TypeCustomAttribute {
		return core.Unknown
	}

	switch leaf.EffectiveMatch() {
	case MatchExists:
		return e.evalExists(leaf)
	case MatchExact:
		return e.evalExact(leaf)
	case MatchSubstring:
		return e.evalSubstring(leaf)
	case MatchGT:
		return e.evalCompare(leaf, true)
	case MatchLT:
		return e.evalCompare(leaf, false)
	default:
		return core.Unknown
	}
}

// lookup reports whether the attribute key is present at all
// (distinguishing "never set" from "explicitly null"), and its raw
// decoded value.
func (e *LeafEvaluator) lookup(name string) (raw any, present bool) {
	if e.attrs == nil {
		return nil, false
	}
	raw, present = e.attrs[name]
	return raw, present
}

func (e *LeafEvaluator) evalExists(leaf Leaf) core.TriState {
	if !leaf.HasName {
		return core.False
	}
	raw, present := e.lookup(leaf.Name)
	return core.FromBool(present && raw != nil)
}

func (e *LeafEvaluator) evalExact(leaf Leaf) core.TriState {
	if !leaf.HasName || !leaf.HasValue {
		return core.Unknown
	}
	raw, present := e.lookup(leaf.Name)
	if !present {
		e.logMissing(leaf)
		return core.Unknown
	}
	userVal := core.FromAny(raw)
	if userVal.Kind() != leaf.Value.Kind() {
		e.logUnexpectedType(leaf, raw)
		return core.Unknown
	}
	return core.FromBool(userVal.Equal(leaf.Value))
}

func (e *LeafEvaluator) evalSubstring(leaf Leaf) core.TriState {
	if !leaf.HasName || !leaf.HasValue || leaf.Value.Kind() != core.KindString {
		return core.Unknown
	}
	raw, present := e.lookup(leaf.Name)
	if !present {
		e.logMissing(leaf)
		return core.Unknown
	}
	userVal := core.FromAny(raw)
	if userVal.Kind() != core.KindString {
		e.logUnexpectedType(leaf, raw)
		return core.Unknown
	}
	return core.FromBool(strings.Contains(userVal.StringVal(), leaf.Value.StringVal()))
}

// evalCompare implements both gt (greater) and lt (!greater).
func (e *LeafEvaluator) evalCompare(leaf Leaf, greater bool) core.TriState {
	if !leaf.HasName || !leaf.HasValue || leaf.Value.Kind() != core.KindNumber {
		return core.Unknown
	}
	raw, present := e.lookup(leaf.Name)
	if !present {
		e.logMissing(leaf)
		return core.Unknown
	}
	userVal := core.FromAny(raw)
	// Booleans are not numbers, even though Go's JSON decoder never
	// confuses the two — this guards against a bool literal smuggled in
	// through a non-JSON attribute source.
	if userVal.Kind() != core.KindNumber {
		e.logUnexpectedType(leaf, raw)
		return core.Unknown
	}
	if greater {
		return core.FromBool(userVal.NumberVal() > leaf.Value.NumberVal())
	}
	return core.FromBool(userVal.NumberVal() < leaf.Value.NumberVal())
}

func (e *LeafEvaluator) logMissing(leaf Leaf) {
	e.logger.Warning(LogMissingAttributeValue, "leaf", leaf.JSON(), "attribute", leaf.Name)
}

func (e *LeafEvaluator) logUnexpectedType(leaf Leaf, value any) {
	e.logger.Warning(LogUnexpectedType, "leaf", leaf.JSON(), "attribute", leaf.Name, "value", value)
}
