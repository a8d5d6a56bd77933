package matching

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
)

// DefaultMaxResults caps the ranked candidate list.
const DefaultMaxResults = 20

// Engine scores contacts against a conversation. Run is pure: it reads the input snapshot only
// and the result does not depend on the number of workers.
type Engine struct {
	logger     *zap.Logger
	maxResults int
	workers    int
}

// NewEngine creates an Engine. maxResults <= 0 uses DefaultMaxResults and workers <= 1 scores
// sequentially.
func NewEngine(logger *zap.Logger, maxResults, workers int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Engine{logger: logger, maxResults: maxResults, workers: workers}
}

// Run scores every contact, drops zero-star candidates and returns the ranked top list.
func (e *Engine) Run(in Input) []Candidate {
	if len(in.Entities) == 0 || len(in.Contacts) == 0 {
		return nil
	}

	sc := scorer{
		signals:      BuildSignals(in.Entities, in.Context),
		ctx:          in.Context,
		conversation: in.ConversationEmbedding,
		weights:      SelectWeights(in.ConversationEmbedding != nil),
	}

	scored := make([]Candidate, len(in.Contacts))
	if e.workers > 1 {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i := range in.Contacts {
			g.Go(func() error {
				scored[i] = sc.score(in.Contacts[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range in.Contacts {
			scored[i] = sc.score(in.Contacts[i])
		}
	}

	kept := make([]Candidate, 0, len(scored))
	for _, c := range scored {
		if c.StarScore >= 1 {
			kept = append(kept, c)
		}
	}

	ranked := Rank(kept, e.maxResults)

	e.logger.Debug("contacts scored",
		zap.Int("contacts", len(in.Contacts)),
		zap.Int("entities", len(in.Entities)),
		zap.Bool("conversation_embedding", in.ConversationEmbedding != nil),
		zap.Int("kept", len(kept)),
		zap.Int("ranked", len(ranked)),
	)

	return ranked
}

// Rank orders candidates by stars then raw score, both descending, and keeps the first limit.
// Ties keep input order.
func Rank(candidates []Candidate, limit int) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StarScore != out[j].StarScore {
			return out[i].StarScore > out[j].StarScore
		}
		return out[i].RawScore > out[j].RawScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type scorer struct {
	signals      Signals
	ctx          *ConversationContext
	conversation embedding.Vector
	weights      Weights
}

func (s scorer) score(c Contact) Candidate {
	var name NameMatch
	for _, mentioned := range s.signals.PersonNames {
		if m := MatchContactName(mentioned, c); m.Matched && m.Score > name.Score {
			name = m
		}
	}

	tags := ContactTags(c)
	tagScore, tagsMatched := TagOverlapScore(s.signals, tags)
	role := RoleMatchScore(s.ctx, c)
	geo := GeoMatchScore(s.signals.Geos, c)
	affinity := PersonalAffinityScore(s.ctx, c)
	checkSize := CheckSizeFit(s.signals.MinCheckSize, s.signals.MaxCheckSize, c.CheckSizeMin, c.CheckSizeMax)

	available := Availability(c, tags)
	breakdown := Breakdown{
		Scores: map[Component]float64{
			ComponentEmbedding:        EmbeddingScore(s.conversation, c),
			ComponentSemantic:         SemanticScore(s.signals, c),
			ComponentTagOverlap:       tagScore,
			ComponentRoleMatch:        role.Score,
			ComponentGeoMatch:         geo,
			ComponentRelationship:     RelationshipScore(c),
			ComponentPersonalAffinity: affinity.Score,
			ComponentCheckSize:        checkSize,
		},
		Available: available,
	}

	raw := Aggregate(breakdown, s.weights, name)

	return Candidate{
		ContactID:        c.ID,
		ContactName:      c.Name,
		StarScore:        ScoreToStars(raw),
		RawScore:         raw,
		ScoreBreakdown:   breakdown,
		ConfidenceScores: confidenceScores(s.signals, s.ctx, c, available, s.weights, name),
		NameMatch:        name.Matched,
		NameMatchScore:   name.Score,
		NameMatchType:    name.Type,
		Reasons: buildReasons(reasonInputs{
			contact:     c,
			name:        name,
			tagScore:    tagScore,
			tagsMatched: tagsMatched,
			role:        role,
			checkSize:   checkSize,
			checkSizeOK: available[ComponentCheckSize],
			geo:         geo,
			affinity:    affinity,
		}),
	}
}
