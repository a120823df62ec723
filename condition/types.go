// Package condition implements the audience-condition decoder, the
// single-leaf evaluator, and the three-valued condition tree evaluator
// described by the decision engine's audience-matching subsystem. It
// has no knowledge of experiments, audiences, or bucketing — those are
// composed on top of it by the audience package.
package condition

import (
	"encoding/json"

	"github.com/fluxgate/decisionengine/core"
)

// Recognized leaf match kinds. Any other string makes a leaf evaluate
// to Unknown.
const (
	MatchExact     = "exact"
	MatchExists    = "exists"
	MatchSubstring = "substring"
	MatchGT        = "gt"
	MatchLT        = "lt"
)

// Recognized leaf type kinds. Any other string makes a leaf evaluate to
// Unknown.
const (
	TypeCustomAttribute = "custom_attribute"
)

// Recognized tree operators.
const (
	OpAnd = "and"
	OpOr  = "or"
	OpNot = "not"
)

// Leaf is the immutable 4-tuple (name, value, type, match). Each field
// tracks whether it was present in the source JSON, since an absent
// match defaults to "exact" (per the strict-mode default chosen in
// SPEC_FULL.md/DESIGN.md) while an absent name or value simply can
// never match anything.
type Leaf struct {
	Name     string
	HasName  bool
	Value    core.Value
	HasValue bool
	Type     string
	HasType  bool
	Match    string
	HasMatch bool

	// raw preserves the original JSON object for the MISSING_ATTRIBUTE_VALUE
	// / UNEXPECTED_TYPE log lines, which bind to the leaf's JSON text.
	raw map[string]any
}

// JSON renders the leaf the way it was decoded, for log binding.
func (l Leaf) JSON() string {
	b, err := json.Marshal(l.raw)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// EffectiveMatch returns the leaf's match kind, defaulting absent match
// to "exact".
func (l Leaf) EffectiveMatch() string {
	if !l.HasMatch {
		return MatchExact
	}
	return l.Match
}

// NodeKind tags a Node as either an operator or a leaf reference.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeOperator
)

// Node is the condition structure: a tagged variant of either an
// operator with children, or a leaf index into an Element list. Using
// an explicit tagged struct (rather than recursive `any`) keeps the
// tree evaluator's switch exhaustive and avoids runtime type
// assertions scattered through the evaluator.
type Node struct {
	Kind     NodeKind
	Op       string  // valid when Kind == NodeOperator: "and" | "or" | "not"
	Children []*Node // valid when Kind == NodeOperator

	LeafIndex int // valid when Kind == NodeLeaf: index into the decoded Element list
}

// Element is one entry in the flat list a Decode call produces. At the
// audience level an element is a Leaf (a custom-attribute condition);
// at the experiment level (audience-of-audiences trees) an element is
// a bare audience ID string. The decoder does not know which context
// it is running in — it just records what it found at each leaf
// position — so a single decode routine serves both §4.1 cases.
type Element struct {
	IsLeaf     bool
	Leaf       Leaf
	AudienceID string
}
