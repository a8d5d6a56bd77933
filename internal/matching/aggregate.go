package matching

import (
	"encoding/json"
	"math"
)

// Component names a scorer in the breakdown.
type Component string

const (
	ComponentEmbedding        Component = "embedding"
	ComponentSemantic         Component = "semantic"
	ComponentTagOverlap       Component = "tagOverlap"
	ComponentRoleMatch        Component = "roleMatch"
	ComponentGeoMatch         Component = "geoMatch"
	ComponentRelationship     Component = "relationship"
	ComponentPersonalAffinity Component = "personalAffinity"
	ComponentCheckSize        Component = "checkSize"
)

// Components lists every scorer in evaluation order.
var Components = []Component{
	ComponentEmbedding,
	ComponentSemantic,
	ComponentTagOverlap,
	ComponentRoleMatch,
	ComponentGeoMatch,
	ComponentRelationship,
	ComponentPersonalAffinity,
	ComponentCheckSize,
}

// Weights holds the contribution of each component to the raw score.
type Weights map[Component]float64

// WeightsWithEmbedding is used when the conversation has an embedding.
func WeightsWithEmbedding() Weights {
	return Weights{
		ComponentEmbedding:        0.25,
		ComponentSemantic:         0.10,
		ComponentTagOverlap:       0.20,
		ComponentRoleMatch:        0.10,
		ComponentGeoMatch:         0.05,
		ComponentRelationship:     0.10,
		ComponentPersonalAffinity: 0.15,
		ComponentCheckSize:        0.05,
	}
}

// WeightsWithoutEmbedding is used when the conversation has no embedding.
func WeightsWithoutEmbedding() Weights {
	return Weights{
		ComponentSemantic:         0.15,
		ComponentTagOverlap:       0.25,
		ComponentRoleMatch:        0.15,
		ComponentGeoMatch:         0.05,
		ComponentRelationship:     0.15,
		ComponentPersonalAffinity: 0.20,
		ComponentCheckSize:        0.05,
	}
}

// SelectWeights picks the preset for a run.
func SelectWeights(hasEmbedding bool) Weights {
	if hasEmbedding {
		return WeightsWithEmbedding()
	}
	return WeightsWithoutEmbedding()
}

// Breakdown holds per-component scores and whether each component had backing data.
type Breakdown struct {
	Scores    map[Component]float64
	Available map[Component]bool
}

// MarshalJSON flattens the scores next to an "_available" object. Map keys are emitted sorted
// so repeated runs produce identical bytes.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Scores)+1)
	for c, v := range b.Scores {
		out[string(c)] = v
	}
	available := make(map[string]bool, len(b.Available))
	for c, v := range b.Available {
		available[string(c)] = v
	}
	out["_available"] = available
	return json.Marshal(out)
}

// Availability decides which components have backing data for a contact.
func Availability(c Contact, tags []string) map[Component]bool {
	relationship := c.RelationshipStrength != nil && *c.RelationshipStrength != DefaultRelationshipStrength
	affinity := len(c.Education) > 0 || len(c.PersonalInterests) > 0 ||
		len(c.PortfolioCompanies) > 0 || len(c.ExpertiseAreas) > 0

	return map[Component]bool{
		ComponentEmbedding:        c.BioEmbedding != nil || c.ThesisEmbedding != nil,
		ComponentSemantic:         true,
		ComponentTagOverlap:       len(tags) > 0,
		ComponentRoleMatch:        true,
		ComponentGeoMatch:         true,
		ComponentRelationship:     relationship,
		ComponentPersonalAffinity: affinity,
		ComponentCheckSize:        c.IsInvestor && (c.CheckSizeMin != nil || c.CheckSizeMax != nil),
	}
}

// NameMatchBoost is added to the raw score per unit of name match score.
const NameMatchBoost = 0.3

// Aggregate combines component scores, renormalizing the weights over the components that have
// backing data, then adds the name boost and clamps to [0,1].
func Aggregate(b Breakdown, w Weights, name NameMatch) float64 {
	var activeWeight float64
	for _, c := range Components {
		if b.Available[c] {
			activeWeight += w[c]
		}
	}

	scale := 1.0
	if activeWeight > 0 {
		scale = 1 / activeWeight
	}

	var raw float64
	for _, c := range Components {
		if b.Available[c] {
			raw += w[c] * scale * b.Scores[c]
		}
	}

	if name.Matched {
		raw += NameMatchBoost * name.Score
	}

	return clamp01(raw)
}

// Star thresholds.
const (
	ThreeStarThreshold = 0.40
	TwoStarThreshold   = 0.20
	OneStarThreshold   = 0.05
)

// ScoreToStars maps a raw score onto the 0-3 star rating.
func ScoreToStars(raw float64) int {
	// tolerate float noise from renormalized sums landing just under a breakpoint
	raw = math.Round(raw*1e9) / 1e9
	switch {
	case raw >= ThreeStarThreshold:
		return 3
	case raw >= TwoStarThreshold:
		return 2
	case raw >= OneStarThreshold:
		return 1
	default:
		return 0
	}
}
