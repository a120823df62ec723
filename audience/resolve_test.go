package audience

import (
	"testing"

	"github.com/fluxgate/decisionengine/condition"
	"github.com/fluxgate/decisionengine/project"
)

// orderingLogger records each logged message ID, in call order, so
// tests can assert on log sequencing without caring about the
// structured args attached to each line.
type orderingLogger struct {
	messages []string
}

func (l *orderingLogger) Debug(msg string, _ ...any)   { l.messages = append(l.messages, msg) }
func (l *orderingLogger) Info(msg string, _ ...any)    { l.messages = append(l.messages, msg) }
func (l *orderingLogger) Warning(msg string, _ ...any) { l.messages = append(l.messages, msg) }

func (l *orderingLogger) contains(msg string) bool {
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func mustCondition(t *testing.T, raw any) (*condition.Node, []condition.Element) {
	t.Helper()
	n, elems, err := condition.Decode(raw)
	if err != nil {
		t.Fatalf("condition.Decode: %v", err)
	}
	return n, elems
}

func newConfig() *project.ProjectConfig {
	return &project.ProjectConfig{
		Audiences:   map[string]*project.Audience{},
		Experiments: map[string]*project.Experiment{},
		Groups:      map[string]*project.Group{},
	}
}

func TestResolve_NoAudienceAttached(t *testing.T) {
	cfg := newConfig()
	exp := &project.Experiment{Key: "exp1"}
	if !Resolve(cfg, exp, nil, nil) {
		t.Error("Resolve() = false, want true (no audience attached)")
	}
}

func TestResolve_NoAudienceAttachedNeverLogsUserAttributes(t *testing.T) {
	cfg := newConfig()
	exp := &project.Experiment{Key: "exp1"}
	logger := &orderingLogger{}
	Resolve(cfg, exp, map[string]any{"flag": true}, logger)
	if logger.contains(LogUserAttributes) {
		t.Errorf("messages = %v, want no USER_ATTRIBUTES on the no-audience path", logger.messages)
	}
	if !logger.contains(LogNoAudienceAttached) {
		t.Errorf("messages = %v, want NO_AUDIENCE_ATTACHED", logger.messages)
	}
}

func TestResolve_AttachedAudienceLogsCombinedBeforeUserAttributes(t *testing.T) {
	cfg := newConfig()
	leafStructure, leafElements := mustCondition(t, map[string]any{
		"name": "flag", "value": true, "type": "custom_attribute", "match": "exact",
	})
	cfg.Audiences["known"] = &project.Audience{ID: "known", ConditionStructure: leafStructure, ConditionList: leafElements}

	structure, elements := mustCondition(t, "known")
	exp := &project.Experiment{
		Key: "exp1", HasAudienceConditions: true,
		AudienceConditionStructure: structure, AudienceConditionList: elements,
	}
	logger := &orderingLogger{}
	Resolve(cfg, exp, map[string]any{"flag": true}, logger)

	combinedIdx, attrsIdx := -1, -1
	for i, m := range logger.messages {
		switch m {
		case LogEvaluatingAudiencesCombined:
			combinedIdx = i
		case LogUserAttributes:
			attrsIdx = i
		}
	}
	if combinedIdx == -1 || attrsIdx == -1 {
		t.Fatalf("messages = %v, want both EVALUATING_AUDIENCES_COMBINED and USER_ATTRIBUTES", logger.messages)
	}
	if combinedIdx >= attrsIdx {
		t.Errorf("messages = %v, want EVALUATING_AUDIENCES_COMBINED before USER_ATTRIBUTES", logger.messages)
	}
}

func TestResolve_EmptyAudienceConditionsAdmits(t *testing.T) {
	structure, elements := mustCondition(t, []any{})
	cfg := newConfig()
	exp := &project.Experiment{
		Key: "exp1", HasAudienceConditions: true,
		AudienceConditionStructure: structure, AudienceConditionList: elements,
	}
	if !Resolve(cfg, exp, nil, nil) {
		t.Error("Resolve() = false, want true (empty structure admits)")
	}
}

func TestResolve_AudienceConditionsPreferredOverAudienceIDs(t *testing.T) {
	// audienceIds would reject (missing audience); audienceConditions,
	// being present, must take priority per invariant 6 (§8).
	cfg := newConfig()
	knownStructure, knownElements := mustCondition(t, map[string]any{
		"name": "flag", "value": true, "type": "custom_attribute", "match": "exact",
	})
	cfg.Audiences["known"] = &project.Audience{ID: "known", ConditionStructure: knownStructure, ConditionList: knownElements}

	structure, elements := mustCondition(t, "known")
	exp := &project.Experiment{
		Key:         "exp1",
		AudienceIDs: []string{"missing-audience"},
		HasAudienceConditions:      true,
		AudienceConditionStructure: structure,
		AudienceConditionList:      elements,
	}
	if !Resolve(cfg, exp, map[string]any{"flag": true}, nil) {
		t.Error("Resolve() = false, want true via audienceConditions, ignoring audienceIds")
	}
}

func TestResolve_UnknownAudienceCoercesToFalse(t *testing.T) {
	cfg := newConfig()
	exp := &project.Experiment{Key: "exp1", AudienceIDs: []string{"does-not-exist"}}
	if Resolve(cfg, exp, nil, nil) {
		t.Error("Resolve() = true, want false (missing audience -> unknown -> false)")
	}
}

func TestResolve_AudienceIDsImplicitOr(t *testing.T) {
	cfg := newConfig()
	// audience "a" matches iff browser_type is exactly "safari".
	leafStructure, leafElements := mustCondition(t, map[string]any{
		"name": "browser_type", "value": "safari", "type": "custom_attribute", "match": "exact",
	})
	cfg.Audiences["a"] = &project.Audience{ID: "a", ConditionStructure: leafStructure, ConditionList: leafElements}

	exp := &project.Experiment{Key: "exp1", AudienceIDs: []string{"a"}}

	t.Run("matches", func(t *testing.T) {
		if !Resolve(cfg, exp, map[string]any{"browser_type": "safari"}, nil) {
			t.Error("Resolve() = false, want true")
		}
	})
	t.Run("does not match", func(t *testing.T) {
		if Resolve(cfg, exp, map[string]any{"browser_type": "chrome"}, nil) {
			t.Error("Resolve() = true, want false")
		}
	})
}

func TestResolve_NotExistsAdmitsAbsentAttribute(t *testing.T) {
	// "not exists input_value" admits any user lacking the attribute,
	// per the concrete scenario in §8.
	cfg := newConfig()
	structure, elements := mustCondition(t, []any{
		"not",
		map[string]any{"name": "input_value", "type": "custom_attribute", "match": "exists"},
	})
	cfg.Audiences["a"] = &project.Audience{ID: "a", ConditionStructure: structure, ConditionList: elements}
	exp := &project.Experiment{Key: "exp1", AudienceIDs: []string{"a"}}

	if !Resolve(cfg, exp, map[string]any{}, nil) {
		t.Error("Resolve() = false, want true (not exists admits absent attribute)")
	}
	if Resolve(cfg, exp, map[string]any{"input_value": "present"}, nil) {
		t.Error("Resolve() = true, want false when attribute is present")
	}
}

func TestResolve_CombinedAudienceStructure(t *testing.T) {
	// and(or(A,B), or(C,D,E,F,G)) per the "combined audience" scenario.
	// Each defined audience admits iff attrs["flag"] == true; G is left
	// undefined. G is never evaluated here: with flag=true the second Or
	// returns True at C, and with flag=false the And returns False after
	// the first Or.
	cfg := newConfig()
	for _, id := range []string{"A", "B", "C", "D", "E", "F"} {
		leafStructure, leafElements := mustCondition(t, map[string]any{
			"name": "flag", "value": true, "type": "custom_attribute", "match": "exact",
		})
		cfg.Audiences[id] = &project.Audience{ID: id, ConditionStructure: leafStructure, ConditionList: leafElements}
	}
	structure, elements := mustCondition(t, []any{"and", []any{"or", "A", "B"}, []any{"or", "C", "D", "E", "F", "G"}})
	exp := &project.Experiment{
		Key: "exp1", HasAudienceConditions: true,
		AudienceConditionStructure: structure, AudienceConditionList: elements,
	}
	if !Resolve(cfg, exp, map[string]any{"flag": true}, nil) {
		t.Error("Resolve() = false, want true (all referenced audiences admit with flag=true)")
	}
	if Resolve(cfg, exp, map[string]any{"flag": false}, nil) {
		t.Error("Resolve() = true, want false when flag is false")
	}
}
