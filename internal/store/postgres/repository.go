package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/store"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

var ErrNotFound = errors.New("not found")

func conversationNotFound(id string) error {
	return fmt.Errorf("conversation %s: %w: %w", id, suggest.ErrNoConversation, ErrNotFound)
}

// Entities returns the stored entities of a conversation in extraction order.
func (db *DB) Entities(ctx context.Context, conversationID string) ([]matching.RawEntity, error) {
	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, conversationID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("look up conversation: %w", err)
	}
	if !exists {
		return nil, conversationNotFound(conversationID)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT entity_type, value, confidence
		FROM conversation_entities
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}

	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (matching.RawEntity, error) {
		var e matching.RawEntity
		var confidence *string
		if err := row.Scan(&e.Type, &e.Value, &confidence); err != nil {
			return e, err
		}
		if confidence != nil {
			e.Confidence = *confidence
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan entities: %w", err)
	}
	return entities, nil
}

// Context returns the rich conversation context, or nil when none was extracted.
func (db *DB) Context(ctx context.Context, conversationID string) (*matching.ConversationContext, error) {
	var raw any
	err := db.Pool.QueryRow(ctx, `SELECT context FROM conversations WHERE id = $1`, conversationID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conversationNotFound(conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	return store.DecodeContext(raw)
}

// ConversationEmbedding returns the conversation vector, or nil when it is missing or malformed.
func (db *DB) ConversationEmbedding(ctx context.Context, conversationID string) (embedding.Vector, error) {
	var raw *string
	err := db.Pool.QueryRow(ctx, `SELECT embedding FROM conversations WHERE id = $1`, conversationID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conversationNotFound(conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	v, _ := embedding.Parse(raw)
	return v, nil
}

// contactsQuery renders each contact of the conversation owner as one JSON object with its
// theses folded in, so rows decode through the same path as snapshot files.
const contactsQuery = `
	SELECT to_jsonb(c) || jsonb_build_object('theses', COALESCE((
		SELECT jsonb_agg(jsonb_build_object('sectors', t.sectors, 'stages', t.stages, 'geos', t.geos) ORDER BY t.id)
		FROM theses t
		WHERE t.contact_id = c.id
	), '[]'::jsonb))
	FROM contacts c
	WHERE c.owned_by_profile = (SELECT owned_by_profile FROM conversations WHERE id = $1)
	ORDER BY c.created_at, c.id
`

// Contacts returns every contact owned by the conversation's owner.
func (db *DB) Contacts(ctx context.Context, conversationID string) ([]matching.Contact, error) {
	rows, err := db.Pool.Query(ctx, contactsQuery, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	raws, err := pgx.CollectRows(rows, pgx.RowTo[map[string]any])
	if err != nil {
		return nil, fmt.Errorf("scan contacts: %w", err)
	}

	contacts := make([]matching.Contact, 0, len(raws))
	for _, raw := range raws {
		c, err := store.DecodeContact(raw)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

const upsertMatchQuery = `
	INSERT INTO match_suggestions (
		conversation_id, contact_id, score, raw_score, reasons, justification,
		score_breakdown, confidence_scores, match_version, ai_explanation, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (conversation_id, contact_id) DO UPDATE SET
		score = EXCLUDED.score,
		raw_score = EXCLUDED.raw_score,
		reasons = EXCLUDED.reasons,
		justification = EXCLUDED.justification,
		score_breakdown = EXCLUDED.score_breakdown,
		confidence_scores = EXCLUDED.confidence_scores,
		match_version = EXCLUDED.match_version,
		ai_explanation = EXCLUDED.ai_explanation,
		status = EXCLUDED.status,
		updated_at = now()
`

// UpsertMatch writes a suggestion, replacing any earlier one for the same pair.
func (db *DB) UpsertMatch(ctx context.Context, r suggest.Record) error {
	_, err := db.Pool.Exec(ctx, upsertMatchQuery,
		r.ConversationID,
		r.ContactID,
		r.Score,
		r.RawScore,
		r.Reasons,
		r.Justification,
		r.ScoreBreakdown,
		r.ConfidenceScores,
		r.MatchVersion,
		r.AIExplanation,
		r.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", r.Key(), err)
	}
	return nil
}

// Suggestions lists stored suggestions of a conversation, best first.
func (db *DB) Suggestions(ctx context.Context, conversationID string) ([]suggest.Record, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT ms.conversation_id::text, ms.contact_id::text, c.name, ms.score, ms.raw_score, ms.reasons,
			ms.justification, ms.score_breakdown, ms.confidence_scores, ms.match_version, ms.ai_explanation, ms.status
		FROM match_suggestions ms
		JOIN contacts c ON c.id = ms.contact_id
		WHERE ms.conversation_id = $1
		ORDER BY ms.score DESC, ms.raw_score DESC, ms.contact_id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (suggest.Record, error) {
		var r suggest.Record
		err := row.Scan(&r.ConversationID, &r.ContactID, &r.ContactName, &r.Score, &r.RawScore, &r.Reasons, &r.Justification,
			&r.ScoreBreakdown, &r.ConfidenceScores, &r.MatchVersion, &r.AIExplanation, &r.Status)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan suggestions: %w", err)
	}
	return records, nil
}
