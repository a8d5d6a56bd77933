package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/ai"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/logger"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
)

// ErrNoConversation is returned when the conversation does not exist in the source.
var ErrNoConversation = errors.New("conversation not found")

const (
	StepFetchEntities  = "fetch_entities"
	StepFetchContacts  = "fetch_contacts"
	StepFetchEmbedding = "fetch_embedding"
	StepScore          = "score"
	StepExplain        = "explain"
	StepPersist        = "persist"
)

const (
	DefaultExplainMaxCandidates = 5
	DefaultExplainMinStars      = 2
	DefaultExplainTimeout       = 30 * time.Second
)

// Source reads everything a matching run needs for one conversation.
type Source interface {
	Entities(ctx context.Context, conversationID string) ([]matching.RawEntity, error)
	Context(ctx context.Context, conversationID string) (*matching.ConversationContext, error)
	ConversationEmbedding(ctx context.Context, conversationID string) (embedding.Vector, error)
	Contacts(ctx context.Context, conversationID string) ([]matching.Contact, error)
}

// Store persists suggestions. UpsertMatch replaces any existing row for the same pair.
type Store interface {
	UpsertMatch(ctx context.Context, r Record) error
}

// Deps aggregates the collaborators of a Service. Store and Explainer are optional.
type Deps struct {
	Source    Source
	Store     Store
	Engine    *matching.Engine
	Explainer ai.Explainer
	Logger    *zap.Logger
}

// Config tunes the explanation fan-out.
type Config struct {
	ExplainMaxCandidates int
	ExplainMinStars      int
	ExplainTimeout       time.Duration
}

// Step describes the result of executing one stage of a run.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Report summarises one run.
type Report struct {
	RunID          string               `json:"runId"`
	ConversationID string               `json:"conversationId"`
	MatchVersion   string               `json:"matchVersion"`
	Steps          []Step               `json:"steps"`
	Candidates     []matching.Candidate `json:"candidates"`
	Records        []Record             `json:"records"`
	Explained      int                  `json:"explained"`
	Persisted      int                  `json:"persisted"`
	Failed         int                  `json:"failed"`
}

// Service runs fetch, score, explain and persist for a conversation.
type Service struct {
	deps   Deps
	config Config
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Source == nil {
		return nil, errors.New("source is required")
	}
	if deps.Engine == nil {
		deps.Engine = matching.NewEngine(deps.Logger, 0, 1)
	}
	deps.Logger = logger.WithFields(deps.Logger)

	if cfg.ExplainMaxCandidates <= 0 {
		cfg.ExplainMaxCandidates = DefaultExplainMaxCandidates
	}
	if cfg.ExplainMinStars <= 0 {
		cfg.ExplainMinStars = DefaultExplainMinStars
	}
	if cfg.ExplainTimeout <= 0 {
		cfg.ExplainTimeout = DefaultExplainTimeout
	}

	return &Service{deps: deps, config: cfg}, nil
}

// Run prepares and persists suggestions for the conversation.
func (s *Service) Run(ctx context.Context, conversationID string) (*Report, error) {
	report, err := s.Prepare(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Prepare fetches inputs, scores contacts and explains the top candidates without persisting.
// Empty entities or contacts yield an empty report.
func (s *Service) Prepare(ctx context.Context, conversationID string) (*Report, error) {
	report := &Report{
		RunID:          uuid.NewString(),
		ConversationID: conversationID,
		MatchVersion:   matching.MatchVersion,
		Steps:          []Step{},
		Candidates:     []matching.Candidate{},
		Records:        []Record{},
	}
	log := logger.WithFields(s.deps.Logger, logger.RunFields(report.RunID, conversationID, matching.MatchVersion)...)

	raw, err := s.deps.Source.Entities(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepFetchEntities, err)
	}
	entities := matching.NormalizeEntities(raw)
	s.step(log, report, Step{Name: StepFetchEntities, Initial: len(raw), Dropped: len(raw) - len(entities), Left: len(entities)})
	if len(entities) == 0 {
		log.Info("no entities extracted for conversation, nothing to match")
		return report, nil
	}

	convCtx, err := s.deps.Source.Context(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch context: %w", err)
	}

	contacts, err := s.deps.Source.Contacts(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepFetchContacts, err)
	}
	s.step(log, report, Step{Name: StepFetchContacts, Initial: len(contacts), Left: len(contacts)})
	if len(contacts) == 0 {
		log.Info("no contacts to match against")
		return report, nil
	}

	vector, err := s.deps.Source.ConversationEmbedding(ctx, conversationID)
	if err != nil {
		log.Warn("conversation embedding unavailable, scoring without it", zap.Error(err))
		vector = nil
	}
	embedded := 0
	if vector != nil {
		embedded = 1
	}
	s.step(log, report, Step{Name: StepFetchEmbedding, Initial: 1, Dropped: 1 - embedded, Left: embedded})

	candidates := s.deps.Engine.Run(matching.Input{
		Entities:              entities,
		Context:               convCtx,
		ConversationEmbedding: vector,
		Contacts:              contacts,
	})
	if candidates == nil {
		candidates = []matching.Candidate{}
	}
	report.Candidates = candidates
	s.step(log, report, Step{Name: StepScore, Initial: len(contacts), Dropped: len(contacts) - len(candidates), Left: len(candidates)})

	records := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		r, err := NewRecord(conversationID, c)
		if err != nil {
			return nil, fmt.Errorf("build record for contact %s: %w", c.ContactID, err)
		}
		records = append(records, r)
	}
	report.Records = records

	if s.deps.Explainer != nil {
		s.explain(ctx, log, report, entities, convCtx, contacts)
	}

	return report, nil
}

// Persist upserts every record of the report. Individual failures are logged and counted.
func (s *Service) Persist(ctx context.Context, report *Report) error {
	if report == nil {
		return errors.New("report is required")
	}
	if s.deps.Store == nil {
		return errors.New("store is not configured")
	}

	log := logger.WithFields(s.deps.Logger, logger.RunFields(report.RunID, report.ConversationID, report.MatchVersion)...)

	report.Persisted, report.Failed = 0, 0
	for _, r := range report.Records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", StepPersist, err)
		}
		if err := s.deps.Store.UpsertMatch(ctx, r); err != nil {
			report.Failed++
			log.Warn("persisting suggestion failed", logger.ContactField(r.ContactID), zap.Error(err))
			continue
		}
		report.Persisted++
	}

	s.step(log, report, Step{Name: StepPersist, Initial: len(report.Records), Dropped: report.Failed, Left: report.Persisted})
	return nil
}

func (s *Service) explain(ctx context.Context, log *zap.Logger, report *Report, entities []matching.Entity, convCtx *matching.ConversationContext, contacts []matching.Contact) {
	byID := make(map[string]matching.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	var eligible []int
	for i, c := range report.Candidates {
		if len(eligible) == s.config.ExplainMaxCandidates {
			break
		}
		if c.StarScore >= s.config.ExplainMinStars {
			eligible = append(eligible, i)
		}
	}

	texts := make([]*string, len(eligible))
	var g errgroup.Group
	for slot, idx := range eligible {
		candidate := report.Candidates[idx]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.config.ExplainTimeout)
			defer cancel()

			explanation, err := s.deps.Explainer.Explain(callCtx, ai.ExplainRequest{
				ConversationID: report.ConversationID,
				Entities:       entities,
				Context:        convCtx,
				Contact:        byID[candidate.ContactID],
				Candidate:      candidate,
			})
			if err != nil {
				log.Warn("explanation failed, suggestion kept without it",
					logger.ContactField(candidate.ContactID),
					zap.Error(err),
				)
				return nil
			}
			text := explanation.Text
			texts[slot] = &text
			return nil
		})
	}
	_ = g.Wait()

	explained := 0
	for slot, idx := range eligible {
		if texts[slot] != nil {
			report.Records[idx].AIExplanation = texts[slot]
			explained++
		}
	}
	report.Explained = explained

	s.step(log, report, Step{Name: StepExplain, Initial: len(eligible), Dropped: len(eligible) - explained, Left: explained})
}

func (s *Service) step(log *zap.Logger, report *Report, step Step) {
	report.Steps = append(report.Steps, step)
	log.Info("matching step",
		zap.String("name", step.Name),
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)
}
