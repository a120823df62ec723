// Package project holds the read-only entity model a decision run
// operates over: audiences, experiments, groups, and variations, per
// the data model in §3. Nothing in this package performs I/O; loading
// raw bytes into a ProjectConfig is the job of Decode (project/decode.go).
package project

import "github.com/fluxgate/decisionengine/condition"

// TrafficAllocationEntry is one (entityId, endOfRange) pair in an
// ordered traffic-allocation sequence, partitioning [0, 10000) into
// half-open intervals.
type TrafficAllocationEntry struct {
	EntityID   string `json:"entityId" yaml:"entityId"`
	EndOfRange int    `json:"endOfRange" yaml:"endOfRange"`
}

// Variation is a single arm of an experiment.
type Variation struct {
	ID  string `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

// Audience is a named predicate over user attributes. ConditionStructure
// and ConditionList are populated by Decode from ConditionsRaw, once,
// at load time (§4.1 runs once at config load, not per decision).
type Audience struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	ConditionsRaw  any    `json:"conditions" yaml:"conditions"`
	ConditionStructure *condition.Node
	ConditionList      []condition.Element
}

// Experiment is one A/B test: an audience gate plus a traffic
// allocation over variations, optionally nested inside a
// mutually-exclusive Group.
type Experiment struct {
	Key                string                    `json:"key" yaml:"key"`
	ID                 string                    `json:"id" yaml:"id"`
	AudienceIDs        []string                  `json:"audienceIds" yaml:"audienceIds"`
	AudienceConditionsRaw any                     `json:"audienceConditions" yaml:"audienceConditions"`
	HasAudienceConditions bool                    `json:"-" yaml:"-"`
	AudienceConditionStructure *condition.Node    `json:"-" yaml:"-"`
	AudienceConditionList      []condition.Element `json:"-" yaml:"-"`
	TrafficAllocation  []TrafficAllocationEntry  `json:"trafficAllocation" yaml:"trafficAllocation"`
	ForcedVariations   map[string]string         `json:"forcedVariations" yaml:"forcedVariations"`
	GroupID            string                    `json:"groupId" yaml:"groupId"`
	Variations         []Variation               `json:"variations" yaml:"variations"`
}

// VariationByKey looks up one of the experiment's own variations.
func (e *Experiment) VariationByKey(key string) (Variation, bool) {
	for _, v := range e.Variations {
		if v.Key == key {
			return v, true
		}
	}
	return Variation{}, false
}

// VariationByID looks up one of the experiment's own variations by ID.
func (e *Experiment) VariationByID(id string) (Variation, bool) {
	for _, v := range e.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// Group is a mutually-exclusive set of experiments: traffic is
// allocated to at most one member experiment before that experiment's
// own variation bucketing runs.
type Group struct {
	ID                string                   `json:"id" yaml:"id"`
	TrafficAllocation []TrafficAllocationEntry `json:"trafficAllocation" yaml:"trafficAllocation"`
}

// ProjectConfig is the full read-only entity set a decision run
// consults. It is safe for concurrent readers once constructed (§5).
type ProjectConfig struct {
	Audiences   map[string]*Audience   `json:"-" yaml:"-"`
	Experiments map[string]*Experiment `json:"-" yaml:"-"`
	Groups      map[string]*Group      `json:"-" yaml:"-"`
}

// ExperimentByKey looks up an experiment by its key.
func (c *ProjectConfig) ExperimentByKey(key string) (*Experiment, bool) {
	e, ok := c.Experiments[key]
	return e, ok
}

// AudienceByID looks up an audience by its ID.
func (c *ProjectConfig) AudienceByID(id string) (*Audience, bool) {
	a, ok := c.Audiences[id]
	return a, ok
}

// GroupByID looks up a mutually-exclusive group by its ID.
func (c *ProjectConfig) GroupByID(id string) (*Group, bool) {
	g, ok := c.Groups[id]
	return g, ok
}
