package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
)

// StatusPending is the review state of a freshly generated suggestion.
const StatusPending = "pending"

const fallbackJustification = "Potential match based on conversation context"

// Record is one persisted suggestion row. (ConversationID, ContactID) is its identity.
type Record struct {
	ConversationID   string          `json:"conversationId"`
	ContactID        string          `json:"contactId"`
	ContactName      string          `json:"contactName"`
	Score            int             `json:"score"`
	RawScore         float64         `json:"rawScore"`
	Reasons          []string        `json:"reasons"`
	Justification    string          `json:"justification"`
	ScoreBreakdown   json.RawMessage `json:"scoreBreakdown"`
	ConfidenceScores json.RawMessage `json:"confidenceScores"`
	MatchVersion     string          `json:"matchVersion"`
	AIExplanation    *string         `json:"aiExplanation,omitempty"`
	Status           string          `json:"status"`
}

// Key identifies the record within a result set.
func (r Record) Key() string {
	return r.ConversationID + "/" + r.ContactID
}

// Justification renders the short summary stored next to the reasons.
func Justification(name string, reasons []string) string {
	if len(reasons) == 0 {
		return fmt.Sprintf("%s: %s", name, fallbackJustification)
	}
	return fmt.Sprintf("%s: %s", name, strings.Join(reasons, "; "))
}

// NewRecord converts a ranked candidate into a pending suggestion.
func NewRecord(conversationID string, c matching.Candidate) (Record, error) {
	breakdown, err := json.Marshal(c.ScoreBreakdown)
	if err != nil {
		return Record{}, fmt.Errorf("marshal score breakdown: %w", err)
	}

	confidence, err := json.Marshal(c.ConfidenceScores)
	if err != nil {
		return Record{}, fmt.Errorf("marshal confidence scores: %w", err)
	}

	reasons := c.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	return Record{
		ConversationID:   conversationID,
		ContactID:        c.ContactID,
		ContactName:      c.ContactName,
		Score:            c.StarScore,
		RawScore:         c.RawScore,
		Reasons:          reasons,
		Justification:    Justification(c.ContactName, c.Reasons),
		ScoreBreakdown:   breakdown,
		ConfidenceScores: confidence,
		MatchVersion:     matching.MatchVersion,
		Status:           StatusPending,
	}, nil
}
