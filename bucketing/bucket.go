// Package bucketing implements the Bucketer (§4.5): deterministic
// assignment of a user to a variation within an experiment, including
// mutually-exclusive group dispatch and forced-variation overrides.
package bucketing

import (
	"fmt"

	"github.com/fluxgate/decisionengine/core"
	"github.com/fluxgate/decisionengine/project"
)

const (
	// HashSeed is the seed MurmurHash3 x86_32 runs with, per §4.5.
	HashSeed = uint32(1)
	// MaxHashValue is 2^32, the range of the unsigned hash output.
	MaxHashValue = float64(1) * (1 << 32)
	// MaxTrafficValue partitions [0, 10000) across a traffic allocation.
	MaxTrafficValue = 10000
)

// Log message IDs, emitted verbatim per §6.
const (
	LogAssignedBucket = "Assigned bucket %d to user \"%s\"."
)

// BucketValue computes the deterministic bucket value in [0, 10000) for
// a bucketing ID, per §4.5 steps 1-2.
func BucketValue(bucketingID string) int {
	h := murmur32([]byte(bucketingID), HashSeed)
	ratio := float64(h) / MaxHashValue
	return int(ratio * MaxTrafficValue)
}

// BucketingID builds the user_id + parent_id_as_decimal_string
// concatenation used as the hash input throughout §4.5.
func BucketingID(userID, parentID string) string {
	return userID + parentID
}

// selectFromAllocation returns the first entityId whose endOfRange is
// strictly greater than bucketValue, per the half-open interval rule
// in §4.5. Returns ("", false) if no entry qualifies.
func selectFromAllocation(allocation []project.TrafficAllocationEntry, bucketValue int) (string, bool) {
	for _, entry := range allocation {
		if entry.EndOfRange > bucketValue {
			return entry.EntityID, true
		}
	}
	return "", false
}

// NoBucketValue is returned as the bucket value when a decision was
// reached without hashing at all (a forced variation, an unknown
// experiment key, or a GroupID naming no group in cfg), so callers that
// record the value (e.g. telemetry) can tell "not computed" apart from
// a real value in [0, MaxTrafficValue).
const NoBucketValue = -1

// Bucket is the §4.5 entry point: bucket(experiment, user_id) -> variation | none.
// cfg supplies group lookups for mutually-exclusive experiments. The
// returned int is the deterministic bucket value the decision actually
// turned on: the group's bucket value (hashed against exp.GroupID) if
// the user was rejected at group dispatch, the experiment's own bucket
// value (hashed against exp.ID) otherwise, or NoBucketValue if a forced
// variation short-circuited before any hash ran. An experiment whose
// GroupID names no group in cfg yields none with NoBucketValue, without
// hashing.
func Bucket(cfg *project.ProjectConfig, exp *project.Experiment, userID string, logger core.Logger) (*project.Variation, int, error) {
	if logger == nil {
		logger = core.NoopLogger{}
	}

	// Step 1: forced variation short-circuits before any hash is computed.
	if exp.ForcedVariations != nil {
		if key, forced := exp.ForcedVariations[userID]; forced {
			v, ok := exp.VariationByKey(key)
			if !ok {
				return nil, NoBucketValue, nil
			}
			return &v, NoBucketValue, nil
		}
	}

	// Step 2: mutually-exclusive group dispatch.
	if exp.GroupID != "" {
		group, found := cfg.GroupByID(exp.GroupID)
		if !found {
			return nil, NoBucketValue, nil
		}
		groupBucketValue := BucketValue(BucketingID(userID, exp.GroupID))
		logger.Debug(formatAssignedBucket(groupBucketValue, userID))

		selectedExpID, ok := selectFromAllocation(group.TrafficAllocation, groupBucketValue)
		if !ok || selectedExpID != exp.ID {
			return nil, groupBucketValue, nil
		}
	}

	// Step 3: variation selection within the experiment itself.
	bucketValue := BucketValue(BucketingID(userID, exp.ID))
	logger.Debug(formatAssignedBucket(bucketValue, userID))

	entityID, ok := selectFromAllocation(exp.TrafficAllocation, bucketValue)
	if !ok {
		return nil, bucketValue, nil
	}

	v, found := exp.VariationByID(entityID)
	if !found {
		return nil, bucketValue, nil
	}
	return &v, bucketValue, nil
}

func formatAssignedBucket(bucketValue int, userID string) string {
	return fmt.Sprintf(LogAssignedBucket, bucketValue, userID)
}

// BucketByKey looks up an experiment by key and buckets the user, per
// the "unknown experiment key -> none, no hashing" failure semantics
// in §4.5/§7.
func BucketByKey(cfg *project.ProjectConfig, experimentKey, userID string, logger core.Logger) (*project.Variation, int, error) {
	exp, found := cfg.ExperimentByKey(experimentKey)
	if !found {
		return nil, NoBucketValue, nil
	}
	return Bucket(cfg, exp, userID, logger)
}
