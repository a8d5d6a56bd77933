package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
)

//go:embed prompt.md
var promptTemplate string

const systemInstruction = "You write short, factual introduction notes for a relationship manager. " +
	"You only use the facts given to you and you always answer with the requested JSON object."

const (
	defaultTone             = "Friendly"
	maxUserInstructionRunes = 500
	maxLineRunes            = 200
)

var whitespace = regexp.MustCompile(`\s+`)

type conversationPayload struct {
	ConversationID string                        `json:"conversationId,omitempty"`
	Entities       []entityPayload               `json:"entities"`
	Context        *matching.ConversationContext `json:"context,omitempty"`
}

type entityPayload struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type contactPayload struct {
	Name               string               `json:"name"`
	Title              string               `json:"title,omitempty"`
	Company            string               `json:"company,omitempty"`
	Location           string               `json:"location,omitempty"`
	Bio                string               `json:"bio,omitempty"`
	ContactType        []string             `json:"contactType,omitempty"`
	IsInvestor         bool                 `json:"isInvestor"`
	CheckSizeMin       *float64             `json:"checkSizeMin,omitempty"`
	CheckSizeMax       *float64             `json:"checkSizeMax,omitempty"`
	Education          []matching.Education `json:"education,omitempty"`
	PortfolioCompanies []string             `json:"portfolioCompanies,omitempty"`
	ExpertiseAreas     []string             `json:"expertiseAreas,omitempty"`
}

type matchPayload struct {
	StarScore      int                `json:"starScore"`
	RawScore       float64            `json:"rawScore"`
	Reasons        []string           `json:"reasons"`
	ScoreBreakdown matching.Breakdown `json:"scoreBreakdown"`
	NameMatch      bool               `json:"nameMatch"`
}

func buildPrompt(req ExplainRequest, o PromptOverrides) (string, error) {
	entities := make([]entityPayload, 0, len(req.Entities))
	for _, e := range req.Entities {
		entities = append(entities, entityPayload{Type: e.Type.String(), Value: e.Value, Confidence: e.Confidence})
	}

	conversationJSON, err := json.MarshalIndent(conversationPayload{
		ConversationID: req.ConversationID,
		Entities:       entities,
		Context:        req.Context,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal conversation payload: %w", err)
	}

	c := req.Contact
	contactJSON, err := json.MarshalIndent(contactPayload{
		Name:               c.Name,
		Title:              c.Title,
		Company:            c.Company,
		Location:           c.Location,
		Bio:                c.Bio,
		ContactType:        c.ContactType,
		IsInvestor:         c.IsInvestor,
		CheckSizeMin:       c.CheckSizeMin,
		CheckSizeMax:       c.CheckSizeMax,
		Education:          c.Education,
		PortfolioCompanies: c.PortfolioCompanies,
		ExpertiseAreas:     c.ExpertiseAreas,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal contact payload: %w", err)
	}

	m := req.Candidate
	matchJSON, err := json.MarshalIndent(matchPayload{
		StarScore:      m.StarScore,
		RawScore:       m.RawScore,
		Reasons:        m.Reasons,
		ScoreBreakdown: m.ScoreBreakdown,
		NameMatch:      m.NameMatch,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal match payload: %w", err)
	}

	tone := sanitizeLine(o.Tone)
	if tone == "" {
		tone = defaultTone
	}

	return strings.NewReplacer(
		"{{TONE}}", tone,
		"{{USER_INSTRUCTIONS}}", sanitizeInstructions(o.UserInstructions),
		"{{CONVERSATION_JSON}}", string(conversationJSON),
		"{{CONTACT_JSON}}", string(contactJSON),
		"{{MATCH_JSON}}", string(matchJSON),
	).Replace(promptTemplate), nil
}

// sanitizeLine collapses whitespace and neutralises square brackets so operator text cannot
// open a new prompt section.
func sanitizeLine(s string) string {
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return truncateRunes(s, maxLineRunes)
}

// sanitizeInstructions renders free-form instructions as an indented bullet list.
func sanitizeInstructions(s string) string {
	s = truncateRunes(strings.TrimSpace(s), maxUserInstructionRunes)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.NewReplacer("[", "(", "]", ")").Replace(line)
		if line = strings.TrimSpace(whitespace.ReplaceAllString(line, " ")); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
