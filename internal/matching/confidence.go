package matching

import (
	"math"
	"strings"
)

const (
	// OverallConfidence is the key of the weighted average in the confidence map.
	OverallConfidence = "overall"

	nameConfidenceBoost = 0.2
)

// confidenceScores estimates how much each component's score can be trusted for a contact.
func confidenceScores(s Signals, ctx *ConversationContext, c Contact, available map[Component]bool, w Weights, name NameMatch) map[string]float64 {
	conf := make(map[string]float64, len(Components)+1)

	conf[string(ComponentEmbedding)] = pick(available[ComponentEmbedding], 0.9, 0)

	conf[string(ComponentSemantic)] = pick(strings.TrimSpace(contactText(c)) != "", 0.6, 0.2)

	tagConf := 0.0
	if available[ComponentTagOverlap] && len(s.Weighted) > 0 {
		var sum float64
		for _, wt := range s.Weighted {
			sum += wt.Weight
		}
		tagConf = sum / float64(len(s.Weighted))
	} else if available[ComponentTagOverlap] {
		tagConf = 0.5
	}
	conf[string(ComponentTagOverlap)] = tagConf

	hasNeeds := ctx != nil && (len(ctx.GoalsAndNeeds.Hiring.RolesNeeded) > 0 || len(ctx.GoalsAndNeeds.Fundraising.InvestorTypes) > 0)
	conf[string(ComponentRoleMatch)] = pick(hasNeeds, 0.7, 0.3)

	conf[string(ComponentGeoMatch)] = pick(c.Location != "" && len(s.Geos) > 0, 0.8, 0.3)
	conf[string(ComponentRelationship)] = pick(available[ComponentRelationship], 0.9, 0.3)
	conf[string(ComponentPersonalAffinity)] = pick(available[ComponentPersonalAffinity], 0.6, 0)
	conf[string(ComponentCheckSize)] = pick(available[ComponentCheckSize] && s.MinCheckSize != nil, 0.8, 0)

	var weighted, total float64
	for _, comp := range Components {
		weighted += w[comp] * conf[string(comp)]
		total += w[comp]
	}

	overall := 0.0
	if total > 0 {
		overall = weighted / total
	}
	if name.Matched {
		overall = math.Min(overall+nameConfidenceBoost*name.Score, 1)
	}
	conf[OverallConfidence] = overall

	return conf
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}
