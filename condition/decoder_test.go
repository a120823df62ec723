package condition

import (
	"encoding/json"
	"testing"

	"github.com/fluxgate/decisionengine/core"
)

func mustUnmarshal(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal(%q): %v", raw, err)
	}
	return v
}

func TestDecode_LeafDefaults(t *testing.T) {
	root, elements, err := Decode(mustUnmarshal(t, `{}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeLeaf || root.LeafIndex != 0 {
		t.Fatalf("root = %+v, want leaf index 0", root)
	}
	if len(elements) != 1 {
		t.Fatalf("elements = %v, want 1", elements)
	}
	leaf := elements[0].Leaf
	if leaf.HasName || leaf.HasValue || leaf.HasType || leaf.HasMatch {
		t.Errorf("leaf = %+v, want all fields absent", leaf)
	}
}

func TestDecode_LeafFields(t *testing.T) {
	root, elements, err := Decode(mustUnmarshal(t, `{"name":"browser_type","value":"safari","type":"custom_attribute","match":"exact"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeLeaf {
		t.Fatalf("root.Kind = %v, want NodeLeaf", root.Kind)
	}
	leaf := elements[root.LeafIndex].Leaf
	if leaf.Name != "browser_type" || !leaf.HasName {
		t.Errorf("Name = %q HasName=%v", leaf.Name, leaf.HasName)
	}
	if leaf.Value.Kind() != core.KindString || leaf.Value.StringVal() != "safari" {
		t.Errorf("Value = %+v", leaf.Value)
	}
	if leaf.Type != TypeCustomAttribute {
		t.Errorf("Type = %q", leaf.Type)
	}
	if leaf.Match != MatchExact {
		t.Errorf("Match = %q", leaf.Match)
	}
}

func TestDecode_OperatorTree(t *testing.T) {
	raw := mustUnmarshal(t, `["and",
		["or", {"name":"a","value":1,"type":"custom_attribute","match":"exact"}, {"name":"b","value":2,"type":"custom_attribute","match":"exact"}],
		["or", {"name":"c","value":3,"type":"custom_attribute","match":"exact"}]
	]`)
	root, elements, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeOperator || root.Op != OpAnd {
		t.Fatalf("root = %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if len(elements) != 3 {
		t.Fatalf("elements = %d, want 3 (stable index order)", len(elements))
	}
	// Indices are assigned in encounter order: a=0, b=1, c=2.
	if elements[0].Leaf.Name != "a" || elements[1].Leaf.Name != "b" || elements[2].Leaf.Name != "c" {
		t.Errorf("element order = %+v", elements)
	}
}

func TestDecode_AudienceIDLeaves(t *testing.T) {
	// Experiment-level audienceConditions: leaves are bare audience ID strings.
	raw := mustUnmarshal(t, `["and", ["or", "1", "2"], ["or", "3", "4", "5", "6", "7"]]`)
	root, elements, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Op != OpAnd {
		t.Fatalf("root.Op = %q", root.Op)
	}
	if len(elements) != 7 {
		t.Fatalf("elements = %d, want 7", len(elements))
	}
	for i, want := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		if elements[i].IsLeaf {
			t.Errorf("elements[%d] is a leaf, want an audience ID", i)
		}
		if elements[i].AudienceID != want {
			t.Errorf("elements[%d].AudienceID = %q, want %q", i, elements[i].AudienceID, want)
		}
	}
}

func TestDecode_BareSingletonAudienceID(t *testing.T) {
	// A bare top-level audience-ID string must be accepted and treated as
	// an implicit singleton, per the resolved Open Question in spec.md §9.
	root, elements, err := Decode(mustUnmarshal(t, `"11154"`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeLeaf {
		t.Fatalf("root.Kind = %v, want NodeLeaf", root.Kind)
	}
	if elements[root.LeafIndex].AudienceID != "11154" {
		t.Errorf("AudienceID = %q", elements[root.LeafIndex].AudienceID)
	}
}

func TestDecode_ImplicitOrList(t *testing.T) {
	// A list whose first element is not an operator string is treated as
	// if prefixed by "or" (the legacy implicit operator).
	root, elements, err := Decode(mustUnmarshal(t, `["1", "2", "3"]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeOperator || root.Op != OpOr {
		t.Fatalf("root = %+v, want implicit or", root)
	}
	if len(root.Children) != 3 || len(elements) != 3 {
		t.Fatalf("children/elements = %d/%d, want 3/3", len(root.Children), len(elements))
	}
}

func TestDecode_EmptyArrayYieldsEmptyOperator(t *testing.T) {
	root, elements, err := Decode(mustUnmarshal(t, `[]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != NodeOperator || len(root.Children) != 0 {
		t.Fatalf("root = %+v, want empty operator", root)
	}
	if len(elements) != 0 {
		t.Fatalf("elements = %d, want 0", len(elements))
	}
}

func TestDecode_UnsupportedType(t *testing.T) {
	if _, _, err := Decode(42.0); err == nil {
		t.Fatal("expected error for a bare number at decode time")
	}
}
