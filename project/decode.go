package project

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fluxgate/decisionengine/condition"
	"gopkg.in/yaml.v3"
)

// Decode parses raw project-config bytes into a ProjectConfig, auto
// detecting YAML vs JSON from path's extension, in the teacher's
// loader/detect.go manner (yaml.Unmarshal into map[string]any, then
// normalizeYAMLMap, for YAML; bare json.Unmarshal for everything else).
// Every audience's
// ConditionsRaw and every experiment's AudienceConditionsRaw is run
// through the Condition Decoder (§4.1) here, once, at load time.
func Decode(raw []byte, path string) (*ProjectConfig, error) {
	var doc map[string]any
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("project: parsing YAML: %w", err)
		}
		doc = normalizeYAMLMap(doc).(map[string]any)
	} else {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("project: parsing JSON: %w", err)
		}
	}

	cfg := &ProjectConfig{
		Audiences:   map[string]*Audience{},
		Experiments: map[string]*Experiment{},
		Groups:      map[string]*Group{},
	}

	for _, raw := range asSlice(doc["audiences"]) {
		a, err := decodeAudience(raw)
		if err != nil {
			return nil, err
		}
		cfg.Audiences[a.ID] = a
	}

	for _, raw := range asSlice(doc["groups"]) {
		g, err := decodeGroup(raw)
		if err != nil {
			return nil, err
		}
		cfg.Groups[g.ID] = g
	}

	for _, raw := range asSlice(doc["experiments"]) {
		e, err := decodeExperiment(raw)
		if err != nil {
			return nil, err
		}
		cfg.Experiments[e.Key] = e
	}

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// normalizeYAMLMap converts the map[any]any / map[string]any mix that
// gopkg.in/yaml.v3 can produce into the all-map[string]any shape
// encoding/json always yields, so downstream code only ever deals with
// one representation.
func normalizeYAMLMap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLMap(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLMap(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLMap(val)
		}
		return out
	default:
		return v
	}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func decodeAudience(raw any) (*Audience, error) {
	m := asMap(raw)
	a := &Audience{
		ID:            asString(m["id"]),
		Name:          asString(m["name"]),
		ConditionsRaw: m["conditions"],
	}
	structure, list, err := condition.Decode(a.ConditionsRaw)
	if err != nil {
		return nil, fmt.Errorf("project: audience %q: %w", a.ID, err)
	}
	a.ConditionStructure = structure
	a.ConditionList = list
	return a, nil
}

func decodeGroup(raw any) (*Group, error) {
	m := asMap(raw)
	g := &Group{ID: asString(m["id"])}
	for _, e := range asSlice(m["trafficAllocation"]) {
		g.TrafficAllocation = append(g.TrafficAllocation, decodeTrafficEntry(asMap(e)))
	}
	return g, nil
}

func decodeExperiment(raw any) (*Experiment, error) {
	m := asMap(raw)
	e := &Experiment{
		Key:     asString(m["key"]),
		ID:      asString(m["id"]),
		GroupID: asString(m["groupId"]),
	}

	for _, id := range asSlice(m["audienceIds"]) {
		if s, ok := id.(string); ok {
			e.AudienceIDs = append(e.AudienceIDs, s)
		}
	}

	if ac, present := m["audienceConditions"]; present && ac != nil {
		structure, list, err := condition.Decode(ac)
		if err != nil {
			return nil, fmt.Errorf("project: experiment %q audienceConditions: %w", e.Key, err)
		}
		e.AudienceConditionsRaw = ac
		e.HasAudienceConditions = true
		e.AudienceConditionStructure = structure
		e.AudienceConditionList = list
	}

	for _, t := range asSlice(m["trafficAllocation"]) {
		e.TrafficAllocation = append(e.TrafficAllocation, decodeTrafficEntry(asMap(t)))
	}

	if fv := asMap(m["forcedVariations"]); fv != nil {
		e.ForcedVariations = make(map[string]string, len(fv))
		for user, key := range fv {
			e.ForcedVariations[user] = asString(key)
		}
	}

	for _, v := range asSlice(m["variations"]) {
		vm := asMap(v)
		e.Variations = append(e.Variations, Variation{ID: asString(vm["id"]), Key: asString(vm["key"])})
	}

	return e, nil
}

func decodeTrafficEntry(m map[string]any) TrafficAllocationEntry {
	end := 0
	switch v := m["endOfRange"].(type) {
	case float64:
		end = int(v)
	case int:
		end = v
	}
	return TrafficAllocationEntry{EntityID: asString(m["entityId"]), EndOfRange: end}
}
