package matching

import (
	"testing"
)

func TestParseCheckSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect float64
		ok     bool
	}{
		{input: "$5M", expect: 5_000_000, ok: true},
		{input: "$500K", expect: 500_000, ok: true},
		{input: "2.5m", expect: 2_500_000, ok: true},
		{input: "10 thousand", expect: 10_000, ok: true},
		{input: "1.5 Million", expect: 1_500_000, ok: true},
		{input: "$250,000", expect: 250_000, ok: true},
		{input: "no numbers here", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCheckSize(tt.input)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect float64
	}{
		{name: "float", input: 0.9, expect: 0.9},
		{name: "numeric string", input: " 0.75 ", expect: 0.75},
		{name: "int", input: 1, expect: 1},
		{name: "garbage string", input: "high", expect: 0.5},
		{name: "nil", input: nil, expect: 0.5},
		{name: "above range", input: 4.2, expect: 1},
		{name: "below range", input: -1.0, expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseConfidence(tt.input); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestNormalizeEntitiesDropsUnknownAndEmpty(t *testing.T) {
	entities := NormalizeEntities([]RawEntity{
		{Type: "sector", Value: "FinTech", Confidence: "0.8"},
		{Type: "mood", Value: "happy", Confidence: 0.9},
		{Type: "geo", Value: "  ", Confidence: 0.9},
		{Type: "PERSON_NAME", Value: "Bob Smith", Confidence: "n/a"},
	})

	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Type != EntitySector || entities[0].Confidence != 0.8 {
		t.Fatalf("unexpected sector entity: %+v", entities[0])
	}
	if entities[1].Type != EntityPersonName || entities[1].Confidence != 0.5 {
		t.Fatalf("unexpected person entity: %+v", entities[1])
	}
}

func TestBuildSignals(t *testing.T) {
	entities := []Entity{
		{Type: EntitySector, Value: "FinTech", Confidence: 0.9},
		{Type: EntityStage, Value: "Seed", Confidence: 0.6},
		{Type: EntityGeo, Value: "Berlin", Confidence: 0.4},
		{Type: EntityPersonName, Value: "Bob Smith", Confidence: 0.8},
		{Type: EntityCheckSize, Value: "$2M", Confidence: 0.5},
		{Type: EntityCheckSize, Value: "$500K", Confidence: 0.5},
		{Type: EntityCheckSize, Value: "a lot", Confidence: 0.5},
	}
	ctx := &ConversationContext{DomainsAndTopics: DomainsAndTopics{
		ProductKeywords:    []string{"Payments"},
		TechnologyKeywords: []string{"payments", "LLM"},
	}}

	s := BuildSignals(entities, ctx)

	if len(s.Sectors) != 1 || len(s.Stages) != 1 || len(s.Geos) != 1 || len(s.PersonNames) != 1 {
		t.Fatalf("unexpected grouping: %+v", s)
	}
	if s.MinCheckSize == nil || *s.MinCheckSize != 500_000 {
		t.Fatalf("unexpected min check size: %v", s.MinCheckSize)
	}
	if s.MaxCheckSize == nil || *s.MaxCheckSize != 2_000_000 {
		t.Fatalf("unexpected max check size: %v", s.MaxCheckSize)
	}

	// three typed entities plus three context keywords
	if len(s.Weighted) != 6 {
		t.Fatalf("expected 6 weighted terms, got %d", len(s.Weighted))
	}
	if s.Weighted[0] != (WeightedTerm{Term: "fintech", Weight: 0.9}) {
		t.Fatalf("unexpected first weighted term: %+v", s.Weighted[0])
	}
	if s.Weighted[5] != (WeightedTerm{Term: "llm", Weight: 0.7}) {
		t.Fatalf("unexpected context weighted term: %+v", s.Weighted[5])
	}

	if len(s.ConversationTags) != 2 || s.ConversationTags[0] != "payments" || s.ConversationTags[1] != "llm" {
		t.Fatalf("unexpected conversation tags: %v", s.ConversationTags)
	}
}

func TestBuildSignalsWithoutCheckSizes(t *testing.T) {
	s := BuildSignals([]Entity{{Type: EntityCheckSize, Value: "undisclosed", Confidence: 0.5}}, nil)
	if s.MinCheckSize != nil || s.MaxCheckSize != nil {
		t.Fatalf("expected no check size bounds, got %v/%v", s.MinCheckSize, s.MaxCheckSize)
	}
}

func TestContactTags(t *testing.T) {
	c := Contact{
		ContactType:   []string{"Angel", "GP"},
		IsInvestor:    true,
		Bio:           "Former operator investing at Series A in B2B SaaS",
		InvestorNotes: "Likes climate",
		Theses:        []Thesis{{Sectors: []string{"FinTech"}, Stages: []string{"Seed"}, Geos: []string{"NYC"}}},
	}

	tags := ContactTags(c)
	want := []string{"angel", "b2b", "climate", "fintech", "gp", "investor", "nyc", "saas", "seed", "series a"}
	if len(tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tags)
		}
	}
}
