package matching

import (
	"strings"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
)

// MatchVersion identifies the scoring formula persisted alongside every suggestion.
const MatchVersion = "multi-signal-v2"

// EntityType is the kind of signal extracted from a conversation.
type EntityType int

const (
	EntityUnknown EntityType = iota
	EntitySector
	EntityStage
	EntityGeo
	EntityCheckSize
	EntityPersonName
)

var entityTypeNames = map[EntityType]string{
	EntitySector:     "sector",
	EntityStage:      "stage",
	EntityGeo:        "geo",
	EntityCheckSize:  "check_size",
	EntityPersonName: "person_name",
}

// ParseEntityType maps a stored entity_type value to its EntityType.
func ParseEntityType(s string) EntityType {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range entityTypeNames {
		if name == s {
			return t
		}
	}
	return EntityUnknown
}

func (t EntityType) String() string {
	if name, ok := entityTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Entity is a typed, confidence-scored conversation signal.
type Entity struct {
	Type       EntityType
	Value      string
	Confidence float64
}

// RawEntity is an entity as it comes out of storage, before confidence coercion.
type RawEntity struct {
	Type       string `json:"entity_type" mapstructure:"entity_type"`
	Value      string `json:"value" mapstructure:"value"`
	Confidence any    `json:"confidence" mapstructure:"confidence"`
}

// Education is one schooling record.
type Education struct {
	School string `json:"school" mapstructure:"school"`
	Degree string `json:"degree,omitempty" mapstructure:"degree"`
	Field  string `json:"field,omitempty" mapstructure:"field"`
}

// TargetPerson describes the person the conversation was with.
type TargetPerson struct {
	Education         []Education `json:"education,omitempty" mapstructure:"education"`
	PersonalInterests []string    `json:"personalInterests,omitempty" mapstructure:"personalInterests"`
	Company           string      `json:"company,omitempty" mapstructure:"company"`
}

type Hiring struct {
	RolesNeeded []string `json:"rolesNeeded,omitempty" mapstructure:"rolesNeeded"`
}

type Fundraising struct {
	InvestorTypes []string `json:"investorTypes,omitempty" mapstructure:"investorTypes"`
}

type GoalsAndNeeds struct {
	Hiring      Hiring      `json:"hiring" mapstructure:"hiring"`
	Fundraising Fundraising `json:"fundraising" mapstructure:"fundraising"`
}

type DomainsAndTopics struct {
	ProductKeywords    []string `json:"productKeywords,omitempty" mapstructure:"productKeywords"`
	TechnologyKeywords []string `json:"technologyKeywords,omitempty" mapstructure:"technologyKeywords"`
	CompaniesMentioned []string `json:"companiesMentioned,omitempty" mapstructure:"companiesMentioned"`
}

// ConversationContext carries the optional rich signals extracted alongside entities.
type ConversationContext struct {
	TargetPerson     TargetPerson     `json:"targetPerson" mapstructure:"targetPerson"`
	MatchingIntent   string           `json:"matchingIntent,omitempty" mapstructure:"matchingIntent"`
	GoalsAndNeeds    GoalsAndNeeds    `json:"goalsAndNeeds" mapstructure:"goalsAndNeeds"`
	DomainsAndTopics DomainsAndTopics `json:"domainsAndTopics" mapstructure:"domainsAndTopics"`
}

// Thesis is a stored investment focus.
type Thesis struct {
	Sectors []string `json:"sectors,omitempty" mapstructure:"sectors"`
	Stages  []string `json:"stages,omitempty" mapstructure:"stages"`
	Geos    []string `json:"geos,omitempty" mapstructure:"geos"`
}

// DefaultRelationshipStrength is the "unknown" relationship value.
const DefaultRelationshipStrength = 50

// Contact is a read-only snapshot of a stored contact. Embeddings are already normalized.
type Contact struct {
	ID                   string
	Name                 string
	FirstName            string
	LastName             string
	Title                string
	Company              string
	Location             string
	Bio                  string
	ContactType          []string
	IsInvestor           bool
	CheckSizeMin         *float64
	CheckSizeMax         *float64
	RelationshipStrength *int
	BioEmbedding         embedding.Vector
	ThesisEmbedding      embedding.Vector
	InvestorNotes        string
	Education            []Education
	PersonalInterests    []string
	ExpertiseAreas       []string
	PortfolioCompanies   []string
	Theses               []Thesis
}

// Input is the immutable snapshot a scoring run works on.
type Input struct {
	Entities              []Entity
	Context               *ConversationContext
	ConversationEmbedding embedding.Vector
	Contacts              []Contact
}

// Candidate is a scored contact. It is never mutated after the run that produced it.
type Candidate struct {
	ContactID        string             `json:"contactId"`
	ContactName      string             `json:"contactName"`
	StarScore        int                `json:"starScore"`
	RawScore         float64            `json:"rawScore"`
	Reasons          []string           `json:"reasons"`
	ScoreBreakdown   Breakdown          `json:"scoreBreakdown"`
	ConfidenceScores map[string]float64 `json:"confidenceScores"`
	NameMatch        bool               `json:"nameMatch"`
	NameMatchScore   float64            `json:"nameMatchScore,omitempty"`
	NameMatchType    NameMatchType      `json:"nameMatchType,omitempty"`
}
