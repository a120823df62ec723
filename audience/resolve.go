// Package audience implements the Audience Resolver (§4.4): given a
// project configuration, an experiment, and a user's attributes, it
// decides whether the user is admitted to the experiment. It has no
// knowledge of bucketing or traffic allocation.
package audience

import (
	"encoding/json"

	"github.com/fluxgate/decisionengine/condition"
	"github.com/fluxgate/decisionengine/core"
	"github.com/fluxgate/decisionengine/project"
)

// Log message IDs, emitted verbatim per §6.
const (
	LogNoAudienceAttached             = "NO_AUDIENCE_ATTACHED"
	LogEvaluatingAudiencesCombined     = "EVALUATING_AUDIENCES_COMBINED"
	LogUserAttributes                 = "USER_ATTRIBUTES"
	LogEvaluatingAudience              = "EVALUATING_AUDIENCE"
	LogAudienceEvaluationResult         = "AUDIENCE_EVALUATION_RESULT"
	LogAudienceEvaluationResultCombined = "AUDIENCE_EVALUATION_RESULT_COMBINED"
)

// Resolve decides whether attrs admits the user to exp, per §4.4.
// It always returns a strict boolean: an Unknown combined result
// coerces to false before returning (invariant 2 in §8).
func Resolve(cfg *project.ProjectConfig, exp *project.Experiment, attrs map[string]any, logger core.Logger) bool {
	if logger == nil {
		logger = core.NoopLogger{}
	}

	structure, elements, rawForLog, ok := selectStructure(exp)
	if !ok {
		logger.Info(LogNoAudienceAttached, "experiment_key", exp.Key)
		return true
	}

	logger.Debug(LogEvaluatingAudiencesCombined, "experiment_key", exp.Key, "conditions", jsonOf(rawForLog))
	logger.Debug(LogUserAttributes, "attributes", jsonOf(attrs))

	leafFn := func(index int) core.TriState {
		return evalElement(cfg, elements[index], attrs, logger)
	}

	result := condition.EvalTree(structure, leafFn).Bool()
	logger.Info(LogAudienceEvaluationResultCombined, "experiment_key", exp.Key, "result", result)
	return result
}

// selectStructure implements the §4.4 step-1/2/3 selection: prefer
// audienceConditions; fall back to an implicit-or of audienceIds; ok
// is false when the resulting structure has no operands at all.
func selectStructure(exp *project.Experiment) (structure *condition.Node, elements []condition.Element, rawForLog any, ok bool) {
	if exp.HasAudienceConditions {
		if exp.AudienceConditionStructure == nil || isEmptyOperator(exp.AudienceConditionStructure) {
			return nil, nil, nil, false
		}
		return exp.AudienceConditionStructure, exp.AudienceConditionList, exp.AudienceConditionsRaw, true
	}

	if len(exp.AudienceIDs) == 0 {
		return nil, nil, nil, false
	}

	elements = make([]condition.Element, len(exp.AudienceIDs))
	children := make([]*condition.Node, len(exp.AudienceIDs))
	for i, id := range exp.AudienceIDs {
		elements[i] = condition.Element{IsLeaf: false, AudienceID: id}
		children[i] = &condition.Node{Kind: condition.NodeLeaf, LeafIndex: i}
	}
	structure = &condition.Node{Kind: condition.NodeOperator, Op: condition.OpOr, Children: children}
	return structure, elements, exp.AudienceIDs, true
}

func isEmptyOperator(n *condition.Node) bool {
	return n.Kind == condition.NodeOperator && len(n.Children) == 0
}

// evalElement dispatches one experiment-level element: per §4.4, these
// are always audience-ID references, never raw leaves.
func evalElement(cfg *project.ProjectConfig, el condition.Element, attrs map[string]any, logger core.Logger) core.TriState {
	if el.IsLeaf {
		return core.Unknown
	}

	aud, found := cfg.AudienceByID(el.AudienceID)
	if !found {
		return core.Unknown
	}

	logger.Debug(LogEvaluatingAudience, "audience_id", aud.ID, "conditions", jsonOf(aud.ConditionsRaw))

	leaves := make([]condition.Leaf, len(aud.ConditionList))
	for i, inner := range aud.ConditionList {
		leaves[i] = inner.Leaf
	}
	innerEval := condition.NewLeafEvaluator(leaves, attrs, logger)
	result := condition.EvalTree(aud.ConditionStructure, innerEval.Evaluate)

	logger.Info(LogAudienceEvaluationResult, "audience_id", aud.ID, "result", result)
	return result
}

func jsonOf(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
