package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/logger"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/utils"
)

// Generator sends one system instruction plus one user message to a model and returns its text.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// ExplainRequest carries everything a model needs to explain one ranked candidate.
type ExplainRequest struct {
	ConversationID string
	Entities       []matching.Entity
	Context        *matching.ConversationContext
	Contact        matching.Contact
	Candidate      matching.Candidate
}

// Explanation is the prose produced for a candidate.
type Explanation struct {
	Text       string
	Confidence float64
	Raw        string
}

// Explainer turns a scored candidate into a short human explanation.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) (*Explanation, error)
}

// PromptOverrides lets operators steer the wording without touching the schema.
type PromptOverrides struct {
	Tone             string
	UserInstructions string
}

const defaultMaxLogLength = 200

// GeneratedExplainer implements Explainer on top of any Generator.
type GeneratedExplainer struct {
	generator Generator
	provider  string
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

// NewExplainer wraps generator. provider is only used to tag log entries.
func NewExplainer(generator Generator, provider string, log *zap.Logger, maxLogLength int) *GeneratedExplainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	model := ""
	if generator != nil {
		model = generator.Model()
	}

	return &GeneratedExplainer{
		generator: generator,
		provider:  provider,
		logger:    logger.WithProvider(log, provider, model),
		maxLogLen: maxLogLength,
	}
}

func (e *GeneratedExplainer) SetPromptOverrides(o PromptOverrides) {
	e.overrides = o
}

func (e *GeneratedExplainer) Explain(ctx context.Context, req ExplainRequest) (*Explanation, error) {
	if e == nil || e.generator == nil {
		return nil, errors.New("explainer is not initialized")
	}
	if req.Candidate.ContactID == "" {
		return nil, errors.New("candidate contact id is required")
	}

	message, err := buildPrompt(req, e.overrides)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(
		zap.String(logger.FieldConversationID, req.ConversationID),
		logger.ContactField(req.Candidate.ContactID),
	)

	log.Debug("explanation request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, message)
	if err != nil {
		return nil, fmt.Errorf("generate explanation for contact %s: %w", req.Candidate.ContactID, err)
	}

	log.Debug("explanation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	explanation, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	explanation.Raw = raw

	return explanation, nil
}

func parseResponse(raw string) (*Explanation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse explanation response: %w", err)
	}

	text := coerceString(data["explanation"])
	if text == "" {
		return nil, errors.New("explanation response has no explanation text")
	}

	confidence := coerceFloat(data["confidence"])
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return &Explanation{
		Text:       text,
		Confidence: math.Max(0, math.Min(1, confidence)),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
