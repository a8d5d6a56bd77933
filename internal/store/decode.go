// Package store holds the row decoding shared by the storage backends. Rows arrive loosely typed
// (jsonb columns, JSON snapshot files) and are decoded into the matching types here.
package store

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
)

// ContactRow is the stored shape of a contact. Embeddings stay untyped until embedding.Parse
// normalizes them.
type ContactRow struct {
	ID                   string               `mapstructure:"id" json:"id"`
	Name                 string               `mapstructure:"name" json:"name"`
	FirstName            string               `mapstructure:"first_name" json:"first_name,omitempty"`
	LastName             string               `mapstructure:"last_name" json:"last_name,omitempty"`
	Title                string               `mapstructure:"title" json:"title,omitempty"`
	Company              string               `mapstructure:"company" json:"company,omitempty"`
	Location             string               `mapstructure:"location" json:"location,omitempty"`
	Bio                  string               `mapstructure:"bio" json:"bio,omitempty"`
	ContactType          []string             `mapstructure:"contact_type" json:"contact_type,omitempty"`
	IsInvestor           bool                 `mapstructure:"is_investor" json:"is_investor"`
	CheckSizeMin         *float64             `mapstructure:"check_size_min" json:"check_size_min,omitempty"`
	CheckSizeMax         *float64             `mapstructure:"check_size_max" json:"check_size_max,omitempty"`
	RelationshipStrength *int                 `mapstructure:"relationship_strength" json:"relationship_strength,omitempty"`
	BioEmbedding         any                  `mapstructure:"bio_embedding" json:"bio_embedding,omitempty"`
	ThesisEmbedding      any                  `mapstructure:"thesis_embedding" json:"thesis_embedding,omitempty"`
	InvestorNotes        string               `mapstructure:"investor_notes" json:"investor_notes,omitempty"`
	Education            []matching.Education `mapstructure:"education" json:"education,omitempty"`
	PersonalInterests    []string             `mapstructure:"personal_interests" json:"personal_interests,omitempty"`
	ExpertiseAreas       []string             `mapstructure:"expertise_areas" json:"expertise_areas,omitempty"`
	PortfolioCompanies   []string             `mapstructure:"portfolio_companies" json:"portfolio_companies,omitempty"`
	Theses               []matching.Thesis    `mapstructure:"theses" json:"theses,omitempty"`
}

// Contact converts the row, dropping embeddings that do not normalize.
func (r ContactRow) Contact() matching.Contact {
	bio, _ := embedding.Parse(r.BioEmbedding)
	thesis, _ := embedding.Parse(r.ThesisEmbedding)

	return matching.Contact{
		ID:                   r.ID,
		Name:                 r.Name,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Title:                r.Title,
		Company:              r.Company,
		Location:             r.Location,
		Bio:                  r.Bio,
		ContactType:          r.ContactType,
		IsInvestor:           r.IsInvestor,
		CheckSizeMin:         r.CheckSizeMin,
		CheckSizeMax:         r.CheckSizeMax,
		RelationshipStrength: r.RelationshipStrength,
		BioEmbedding:         bio,
		ThesisEmbedding:      thesis,
		InvestorNotes:        r.InvestorNotes,
		Education:            r.Education,
		PersonalInterests:    r.PersonalInterests,
		ExpertiseAreas:       r.ExpertiseAreas,
		PortfolioCompanies:   r.PortfolioCompanies,
		Theses:               r.Theses,
	}
}

// DecodeContact decodes one loosely typed contact object.
func DecodeContact(input any) (matching.Contact, error) {
	var row ContactRow
	if err := Decode(input, &row); err != nil {
		return matching.Contact{}, fmt.Errorf("decode contact: %w", err)
	}
	return row.Contact(), nil
}

// DecodeContext decodes the stored conversation context. A nil input yields a nil context.
func DecodeContext(input any) (*matching.ConversationContext, error) {
	if input == nil {
		return nil, nil
	}
	var ctx matching.ConversationContext
	if err := Decode(input, &ctx); err != nil {
		return nil, fmt.Errorf("decode conversation context: %w", err)
	}
	return &ctx, nil
}

// DecodeEntities decodes a list of stored entities.
func DecodeEntities(input any) ([]matching.RawEntity, error) {
	var entities []matching.RawEntity
	if err := Decode(input, &entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return entities, nil
}

// Decode runs mapstructure with weak typing so numeric strings, single values for lists and
// plain school names all land in the typed result.
func Decode(input, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       schoolNameHook,
		WeaklyTypedInput: true,
		Result:           result,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var educationType = reflect.TypeOf(matching.Education{})

func schoolNameHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == educationType && from.Kind() == reflect.String {
		return map[string]any{"school": data}, nil
	}
	return data, nil
}
