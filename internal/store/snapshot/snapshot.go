// Package snapshot reads matching inputs from a JSON file and writes suggestions to another, for
// offline runs without a database.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/embedding"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/matching"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/store"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

type file struct {
	Conversations []conversation `json:"conversations"`
	Contacts      []any          `json:"contacts"`
}

type conversation struct {
	ID        string `json:"id"`
	Entities  any    `json:"entities"`
	Context   any    `json:"context"`
	Embedding any    `json:"embedding"`
}

// Source serves conversations and contacts loaded from a snapshot file.
type Source struct {
	conversations map[string]conversation
	contacts      []matching.Contact
}

// Open loads and decodes the snapshot at path.
func Open(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot %q: %w", path, err)
	}

	src := &Source{conversations: make(map[string]conversation, len(f.Conversations))}
	for _, c := range f.Conversations {
		if c.ID == "" {
			return nil, errors.New("snapshot conversation without id")
		}
		src.conversations[c.ID] = c
	}

	for i, raw := range f.Contacts {
		contact, err := store.DecodeContact(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot contact %d: %w", i, err)
		}
		src.contacts = append(src.contacts, contact)
	}

	return src, nil
}

// ConversationIDs lists the conversations in the snapshot, sorted.
func (s *Source) ConversationIDs() []string {
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Source) conversation(id string) (conversation, error) {
	c, ok := s.conversations[id]
	if !ok {
		return conversation{}, fmt.Errorf("conversation %s: %w", id, suggest.ErrNoConversation)
	}
	return c, nil
}

func (s *Source) Entities(_ context.Context, conversationID string) ([]matching.RawEntity, error) {
	c, err := s.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	if c.Entities == nil {
		return nil, nil
	}
	return store.DecodeEntities(c.Entities)
}

func (s *Source) Context(_ context.Context, conversationID string) (*matching.ConversationContext, error) {
	c, err := s.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	return store.DecodeContext(c.Context)
}

// ConversationEmbedding returns nil without error when the stored vector is absent or malformed.
func (s *Source) ConversationEmbedding(_ context.Context, conversationID string) (embedding.Vector, error) {
	c, err := s.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	v, _ := embedding.Parse(c.Embedding)
	return v, nil
}

func (s *Source) Contacts(_ context.Context, conversationID string) ([]matching.Contact, error) {
	if _, err := s.conversation(conversationID); err != nil {
		return nil, err
	}
	return s.contacts, nil
}

// Results collects suggestions and writes them to a JSON file. Records already in the file are
// kept unless a new record with the same conversation and contact replaces them.
type Results struct {
	path string

	mu      sync.Mutex
	records map[string]suggest.Record
}

// OpenResults loads existing results from path, if any.
func OpenResults(path string) (*Results, error) {
	r := &Results{path: path, records: make(map[string]suggest.Record)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}

	var existing []suggest.Record
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse results %q: %w", path, err)
	}
	for _, rec := range existing {
		r.records[rec.Key()] = rec
	}
	return r, nil
}

func (r *Results) UpsertMatch(_ context.Context, rec suggest.Record) error {
	if rec.ConversationID == "" || rec.ContactID == "" {
		return errors.New("record needs conversation and contact ids")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key()] = rec
	return nil
}

// Records returns the collected records ordered by conversation, then stars and raw score.
func (r *Results) Records() []suggest.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]suggest.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConversationID != b.ConversationID {
			return a.ConversationID < b.ConversationID
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RawScore != b.RawScore {
			return a.RawScore > b.RawScore
		}
		return a.ContactID < b.ContactID
	})
	return out
}

// Flush writes all records to the results file.
func (r *Results) Flush() error {
	data, err := json.MarshalIndent(r.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
