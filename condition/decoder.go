package condition

import (
	"fmt"

	"github.com/fluxgate/decisionengine/core"
)

// Decode normalizes a raw audience-condition value (the recursive mix
// of []any, map[string]any, string, and numbers you get back from
// encoding/json.Unmarshal into an any) into a condition structure and
// its parallel flat element list, per §4.1.
//
// Decode handles every shape the raw value can take:
//   - an operator array ["and"|"or"|"not", child, ...], recursively decoded
//   - a leaf object {name, value, type, match}, appended to the element
//     list and replaced with its index
//   - a bare audience-ID string, appended to the element list and
//     replaced with its index
//   - a bare array with a non-operator first element, treated as if
//     prefixed with "or" (the legacy implicit operator)
//
// The decoder preserves input order: indices are assigned in the order
// leaves are encountered, so test fixtures may reference a specific
// leaf by position.
func Decode(raw any) (*Node, []Element, error) {
	var elements []Element
	root, err := decodeNode(raw, &elements)
	if err != nil {
		return nil, nil, err
	}
	return root, elements, nil
}

func decodeNode(raw any, elements *[]Element) (*Node, error) {
	switch v := raw.(type) {
	case nil:
		return &Node{Kind: NodeOperator, Op: OpOr}, nil

	case []any:
		return decodeArray(v, elements)

	case string:
		idx := appendElement(elements, Element{IsLeaf: false, AudienceID: v})
		return &Node{Kind: NodeLeaf, LeafIndex: idx}, nil

	case map[string]any:
		idx := appendElement(elements, Element{IsLeaf: true, Leaf: decodeLeaf(v)})
		return &Node{Kind: NodeLeaf, LeafIndex: idx}, nil

	default:
		return nil, fmt.Errorf("condition: unsupported node value of type %T", raw)
	}
}

func decodeArray(v []any, elements *[]Element) (*Node, error) {
	if len(v) == 0 {
		// An empty structure has no operands; Or() of no operands yields
		// Unknown at eval time, matching §4.3 "operator with no operands".
		return &Node{Kind: NodeOperator, Op: OpOr}, nil
	}

	if opStr, ok := v[0].(string); ok && isOperator(opStr) {
		children := make([]*Node, 0, len(v)-1)
		for _, c := range v[1:] {
			child, err := decodeNode(c, elements)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &Node{Kind: NodeOperator, Op: opStr, Children: children}, nil
	}

	// Implicit operator: the whole array is treated as "or" of its elements.
	children := make([]*Node, 0, len(v))
	for _, c := range v {
		child, err := decodeNode(c, elements)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Node{Kind: NodeOperator, Op: OpOr, Children: children}, nil
}

func isOperator(s string) bool {
	return s == OpAnd || s == OpOr || s == OpNot
}

func appendElement(elements *[]Element, e Element) int {
	*elements = append(*elements, e)
	return len(*elements) - 1
}

// decodeLeaf deserializes a leaf object to the 4-tuple, leaving a field
// absent (rather than zero-valued) when the source JSON omits it.
func decodeLeaf(m map[string]any) Leaf {
	leaf := Leaf{raw: m}

	if v, ok := m["name"]; ok {
		if s, ok2 := v.(string); ok2 {
			leaf.Name = s
			leaf.HasName = true
		}
	}
	if v, ok := m["value"]; ok {
		leaf.Value = core.FromAny(v)
		leaf.HasValue = true
	}
	if v, ok := m["type"]; ok {
		if s, ok2 := v.(string); ok2 {
			leaf.Type = s
			leaf.HasType = true
		}
	}
	if v, ok := m["match"]; ok {
		if s, ok2 := v.(string); ok2 {
			leaf.Match = s
			leaf.HasMatch = true
		}
	}

	return leaf
}
