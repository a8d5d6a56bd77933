package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultConfidence    = 0.5
	contextKeywordWeight = 0.7
)

// WeightedTerm is a lower-cased signal term with the confidence it was extracted with.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Signals groups conversation entities by type, ready for the scorers.
type Signals struct {
	Sectors          []string
	Stages           []string
	Geos             []string
	PersonNames      []string
	MinCheckSize     *float64
	MaxCheckSize     *float64
	Weighted         []WeightedTerm
	ConversationTags []string
}

// NormalizeEntities converts stored entities into typed entities. Unknown types are dropped and
// confidences that fail to parse default to 0.5.
func NormalizeEntities(raw []RawEntity) []Entity {
	entities := make([]Entity, 0, len(raw))
	for _, r := range raw {
		t := ParseEntityType(r.Type)
		if t == EntityUnknown {
			continue
		}
		value := strings.TrimSpace(r.Value)
		if value == "" {
			continue
		}
		entities = append(entities, Entity{Type: t, Value: value, Confidence: ParseConfidence(r.Confidence)})
	}
	return entities
}

// ParseConfidence coerces a loosely typed confidence into [0,1].
func ParseConfidence(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return defaultConfidence
		}
		f = parsed
	default:
		return defaultConfidence
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	return clamp01(f)
}

var checkSizePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(k|m|thousand|million)?`)

// ParseCheckSize reads amounts like "$5M", "$500K", "2.5m" or "10 thousand".
func ParseCheckSize(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)

	m := checkSizePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}

	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		n *= 1_000
	case "m", "million":
		n *= 1_000_000
	}

	return n, true
}

// BuildSignals groups entities by type and folds in the keyword lists from the rich context.
func BuildSignals(entities []Entity, ctx *ConversationContext) Signals {
	var s Signals
	var sizes []float64

	for _, e := range entities {
		switch e.Type {
		case EntitySector:
			s.Sectors = append(s.Sectors, e.Value)
		case EntityStage:
			s.Stages = append(s.Stages, e.Value)
		case EntityGeo:
			s.Geos = append(s.Geos, e.Value)
		case EntityPersonName:
			s.PersonNames = append(s.PersonNames, e.Value)
		case EntityCheckSize:
			if n, ok := ParseCheckSize(e.Value); ok {
				sizes = append(sizes, n)
			}
		}

		switch e.Type {
		case EntitySector, EntityStage, EntityGeo:
			s.Weighted = append(s.Weighted, WeightedTerm{Term: strings.ToLower(e.Value), Weight: e.Confidence})
		}
	}

	if len(sizes) > 0 {
		lo, hi := sizes[0], sizes[0]
		for _, n := range sizes[1:] {
			lo = math.Min(lo, n)
			hi = math.Max(hi, n)
		}
		s.MinCheckSize, s.MaxCheckSize = &lo, &hi
	}

	if ctx != nil {
		keywords := append([]string{}, ctx.DomainsAndTopics.ProductKeywords...)
		keywords = append(keywords, ctx.DomainsAndTopics.TechnologyKeywords...)

		seen := make(map[string]bool, len(keywords))
		for _, kw := range keywords {
			term := strings.ToLower(strings.TrimSpace(kw))
			if term == "" {
				continue
			}
			s.Weighted = append(s.Weighted, WeightedTerm{Term: term, Weight: contextKeywordWeight})
			if !seen[term] {
				seen[term] = true
				s.ConversationTags = append(s.ConversationTags, term)
			}
		}
	}

	return s
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
