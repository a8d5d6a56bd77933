package postgres

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	data, err := fs.ReadFile(Migrations(), "00001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(data)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "UNIQUE (conversation_id, contact_id)"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected migration to contain %q", want)
		}
	}
}

func TestConversationNotFoundMatchesBothSentinels(t *testing.T) {
	err := conversationNotFound("abc")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, suggest.ErrNoConversation) {
		t.Fatalf("expected both sentinels, got %v", err)
	}
}

// testDB connects to INTRO_MATCHER_TEST_DATABASE_URL and migrates it, skipping when unset.
func testDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("INTRO_MATCHER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("INTRO_MATCHER_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, url, 2)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	owner := uuid.NewString()
	conversationID := uuid.NewString()
	contactID := uuid.NewString()

	mustExec := func(sql string, args ...any) {
		t.Helper()
		if _, err := db.Pool.Exec(ctx, sql, args...); err != nil {
			t.Fatalf("exec %q: %v", sql, err)
		}
	}

	mustExec(`INSERT INTO conversations (id, owned_by_profile, context) VALUES ($1, $2, $3)`,
		conversationID, owner, map[string]any{"goalsAndNeeds": map[string]any{"fundraising": map[string]any{"investorTypes": []string{"angel"}}}})
	mustExec(`INSERT INTO conversation_entities (conversation_id, entity_type, value, confidence) VALUES ($1, 'sector', 'fintech', '0.9')`, conversationID)
	mustExec(`INSERT INTO contacts (id, owned_by_profile, name, contact_type, is_investor, check_size_min) VALUES ($1, $2, 'Jane Doe', '{Angel}', true, 250000)`,
		contactID, owner)
	mustExec(`INSERT INTO theses (contact_id, sectors) VALUES ($1, '{fintech}')`, contactID)

	entities, err := db.Entities(ctx, conversationID)
	if err != nil || len(entities) != 1 || entities[0].Confidence != "0.9" {
		t.Fatalf("unexpected entities: %+v, %v", entities, err)
	}

	convCtx, err := db.Context(ctx, conversationID)
	if err != nil || convCtx == nil || convCtx.GoalsAndNeeds.Fundraising.InvestorTypes[0] != "angel" {
		t.Fatalf("unexpected context: %+v, %v", convCtx, err)
	}

	vector, err := db.ConversationEmbedding(ctx, conversationID)
	if err != nil || vector != nil {
		t.Fatalf("expected no embedding, got %v, %v", vector, err)
	}

	contacts, err := db.Contacts(ctx, conversationID)
	if err != nil || len(contacts) != 1 {
		t.Fatalf("unexpected contacts: %+v, %v", contacts, err)
	}
	if c := contacts[0]; c.ID != contactID || c.CheckSizeMin == nil || *c.CheckSizeMin != 250_000 || c.Theses[0].Sectors[0] != "fintech" {
		t.Fatalf("unexpected contact: %+v", c)
	}

	if _, err := db.Entities(ctx, uuid.NewString()); !errors.Is(err, suggest.ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}

	rec, err := suggest.NewRecord(conversationID, matching.Candidate{ContactID: contactID, ContactName: "Jane Doe", StarScore: 1, RawScore: 0.1})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.Score, rec.RawScore = 3, 0.5
	if err := db.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err := db.Suggestions(ctx, conversationID)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(stored) != 1 || stored[0].Score != 3 || stored[0].ContactName != "Jane Doe" || stored[0].Status != suggest.StatusPending {
		t.Fatalf("expected the second write to win, got %+v", stored)
	}
}
