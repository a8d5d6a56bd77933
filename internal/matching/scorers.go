package matching

import (
	"math"
	"strings"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
)

const (
	investorTypeMatchScore = 0.8
	checkSizeMissScoreCap  = 0.3
	checkSizeDecay         = 3.0

	educationAffinity     = 0.4
	interestAffinityStep  = 0.2
	interestAffinityCap   = 0.4
	portfolioAffinity     = 0.3
	expertiseAffinityStep = 0.15
	expertiseAffinityCap  = 0.3
)

// EmbeddingScore is the best cosine similarity between the conversation and either contact
// embedding, clamped to [0,1].
func EmbeddingScore(conversation embedding.Vector, c Contact) float64 {
	if conversation == nil || (c.BioEmbedding == nil && c.ThesisEmbedding == nil) {
		return 0
	}
	best := math.Max(embedding.Cosine(conversation, c.BioEmbedding), embedding.Cosine(conversation, c.ThesisEmbedding))
	return clamp01(best)
}

// SemanticScore is the fraction of sector, stage and conversation tag terms present in the
// contact's free text.
func SemanticScore(s Signals, c Contact) float64 {
	terms := make([]string, 0, len(s.Sectors)+len(s.Stages)+len(s.ConversationTags))
	terms = append(terms, s.Sectors...)
	terms = append(terms, s.Stages...)
	terms = append(terms, s.ConversationTags...)
	if len(terms) == 0 {
		return 0
	}

	text := contactText(c)
	found := 0
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" && strings.Contains(text, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

// JaccardSimilarity is intersection over union of two case-insensitive term sets.
func JaccardSimilarity(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0
	for term := range setA {
		if _, ok := setB[term]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// TagOverlapScore is the weighted Jaccard between the confidence-weighted signal terms and the
// contact's tags. It returns the matched terms for reasons.
func TagOverlapScore(s Signals, contactTags []string) (float64, []string) {
	tags := lowerSet(contactTags)

	if len(s.Weighted) == 0 {
		var plain []string
		plain = append(plain, s.Sectors...)
		plain = append(plain, s.Stages...)
		plain = append(plain, s.Geos...)
		return JaccardSimilarity(plain, contactTags), intersect(plain, tags)
	}

	var matchedWeight, totalWeight float64
	var matched []string
	seen := make(map[string]bool)
	for _, wt := range s.Weighted {
		totalWeight += wt.Weight
		if _, ok := tags[wt.Term]; ok {
			matchedWeight += wt.Weight
			if !seen[wt.Term] {
				seen[wt.Term] = true
				matched = append(matched, wt.Term)
			}
		}
	}

	denom := math.Max(totalWeight, float64(len(tags)))
	if denom == 0 {
		return 0, nil
	}
	return matchedWeight / denom, matched
}

// RoleMatch is the outcome of comparing a contact with the hiring and fundraising needs.
type RoleMatch struct {
	Score        float64
	Role         string
	InvestorType string
}

// RoleMatchScore scores a contact's title against the roles being hired and its contact types
// against the investor types being sought.
func RoleMatchScore(ctx *ConversationContext, c Contact) RoleMatch {
	if ctx == nil {
		return RoleMatch{}
	}

	title := strings.ToLower(c.Title)
	if title != "" {
		for _, role := range ctx.GoalsAndNeeds.Hiring.RolesNeeded {
			r := strings.ToLower(strings.TrimSpace(role))
			if r != "" && strings.Contains(title, r) {
				return RoleMatch{Score: 1.0, Role: role}
			}
		}
	}

	for _, label := range c.ContactType {
		l := strings.ToLower(strings.TrimSpace(label))
		if l == "" {
			continue
		}
		for _, want := range ctx.GoalsAndNeeds.Fundraising.InvestorTypes {
			w := strings.ToLower(strings.TrimSpace(want))
			if w != "" && overlaps(l, w) {
				return RoleMatch{Score: investorTypeMatchScore, InvestorType: label}
			}
		}
	}

	return RoleMatch{}
}

// GeoMatchScore is 1 when any extracted geo overlaps the contact's location.
func GeoMatchScore(geos []string, c Contact) float64 {
	loc := strings.ToLower(strings.TrimSpace(c.Location))
	if loc == "" {
		return 0
	}
	for _, g := range geos {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" && overlaps(loc, g) {
			return 1
		}
	}
	return 0
}

// RelationshipScore maps the 0-100 strength onto [0,1], treating a missing value as unknown.
func RelationshipScore(c Contact) float64 {
	strength := DefaultRelationshipStrength
	if c.RelationshipStrength != nil {
		strength = *c.RelationshipStrength
	}
	return float64(strength) / 100
}

// CheckSizeFit compares the check size discussed in the conversation with the contact's range.
// A single bound is treated as a point value.
func CheckSizeFit(convMin, convMax, contactMin, contactMax *float64) float64 {
	cMin, cMax, ok := pointRange(convMin, convMax)
	if !ok {
		return 0
	}
	tMin, tMax, ok := pointRange(contactMin, contactMax)
	if !ok {
		return 0
	}

	if tMin <= cMin && cMax <= tMax {
		return 1
	}

	lo, hi := math.Max(cMin, tMin), math.Min(cMax, tMax)
	if lo <= hi {
		convLength := cMax - cMin
		if convLength <= 0 {
			return 1
		}
		return math.Min(0.5+0.5*((hi-lo)/convLength), 1)
	}

	gap := tMin - cMax
	if cMin > tMax {
		gap = cMin - tMax
	}
	scale := math.Max(math.Max(cMax, tMax), 1)
	return math.Min(math.Exp(-checkSizeDecay*gap/scale), checkSizeMissScoreCap)
}

func pointRange(lo, hi *float64) (float64, float64, bool) {
	switch {
	case lo == nil && hi == nil:
		return 0, 0, false
	case lo == nil:
		return *hi, *hi, true
	case hi == nil:
		return *lo, *lo, true
	case *lo > *hi:
		return *hi, *lo, true
	default:
		return *lo, *hi, true
	}
}

// Affinity is the personal-affinity score with the overlaps that produced it.
type Affinity struct {
	Score            float64
	SharedSchools    []string
	SharedInterests  []string
	PortfolioOverlap []string
	ExpertiseOverlap []string
}

// PersonalAffinityScore adds up shared education, interests, portfolio companies and expertise,
// capped at 1.
func PersonalAffinityScore(ctx *ConversationContext, c Contact) Affinity {
	var a Affinity
	if ctx == nil {
		return a
	}

	for _, edu := range c.Education {
		school := strings.ToLower(strings.TrimSpace(edu.School))
		if school == "" {
			continue
		}
		for _, target := range ctx.TargetPerson.Education {
			ts := strings.ToLower(strings.TrimSpace(target.School))
			if ts != "" && overlaps(school, ts) {
				a.SharedSchools = append(a.SharedSchools, edu.School)
				break
			}
		}
	}
	if len(a.SharedSchools) > 0 {
		a.Score += educationAffinity
	}

	a.SharedInterests = overlapping(c.PersonalInterests, ctx.TargetPerson.PersonalInterests)
	a.Score += math.Min(interestAffinityStep*float64(len(a.SharedInterests)), interestAffinityCap)

	companies := append([]string{}, ctx.DomainsAndTopics.CompaniesMentioned...)
	if ctx.TargetPerson.Company != "" {
		companies = append(companies, ctx.TargetPerson.Company)
	}
	a.PortfolioOverlap = overlapping(c.PortfolioCompanies, companies)
	if len(a.PortfolioOverlap) > 0 {
		a.Score += portfolioAffinity
	}

	a.ExpertiseOverlap = overlapping(c.ExpertiseAreas, ctx.DomainsAndTopics.TechnologyKeywords)
	a.Score += math.Min(expertiseAffinityStep*float64(len(a.ExpertiseOverlap)), expertiseAffinityCap)

	a.Score = math.Min(a.Score, 1)
	return a
}

// overlapping returns the entries of mine that overlap any of theirs, keeping mine's spelling.
func overlapping(mine, theirs []string) []string {
	var out []string
	for _, m := range mine {
		lm := strings.ToLower(strings.TrimSpace(m))
		if lm == "" {
			continue
		}
		for _, t := range theirs {
			if lt := strings.ToLower(strings.TrimSpace(t)); lt != "" && overlaps(lm, lt) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// overlaps reports a substring match in either direction.
func overlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func intersect(values []string, set map[string]struct{}) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if _, ok := set[v]; ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
