// Package sqlite implements the reference PipelineStore, TemplateSource,
// RecipientDirectory, CredentialStore and SubscriptionStore backed by
// modernc.org/sqlite (pure Go, no cgo). Schema and query style mirror the
// teacher's internal/facts.Store pattern: database/sql directly, no ORM,
// hand-written migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pipelines (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	event_ids  TEXT NOT NULL, -- JSON array of uuids
	steps      TEXT NOT NULL  -- JSON array of StepDescriptor
);
CREATE TABLE IF NOT EXISTS recipients (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	contacts   TEXT NOT NULL -- JSON array of {type,value}
);
CREATE TABLE IF NOT EXISTS groups (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	name          TEXT NOT NULL,
	recipient_ids TEXT NOT NULL -- JSON array of uuids
);
CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	channel    TEXT NOT NULL,
	parts      TEXT NOT NULL, -- JSON map
	UNIQUE(project_id, name, channel)
);
CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	key        TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS credentials (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	transport  TEXT NOT NULL,
	value      TEXT NOT NULL,
	UNIQUE(project_id, transport)
);
CREATE TABLE IF NOT EXISTS subscriptions (
	recipient_id TEXT NOT NULL,
	event_name   TEXT NOT NULL,
	channel      TEXT NOT NULL,
	subscribed   INTEGER NOT NULL,
	PRIMARY KEY (recipient_id, event_name, channel)
);
`

// Store is the shared modernc.org/sqlite-backed handle every reference
// interface implementation is a thin method set on.
type Store struct {
	db *sql.DB
}

// Open creates/opens the sqlite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// PipelinesForEvent implements event.PipelineSource.
func (s *Store) PipelinesForEvent(ctx context.Context, projectID uuid.UUID, eventName string) ([]model.Pipeline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.project_id, p.name, p.event_ids, p.steps
		FROM pipelines p
		JOIN events e ON e.project_id = p.project_id AND e.name = ?
		WHERE p.project_id = ? AND p.event_ids LIKE '%' || e.id || '%'
	`, eventName, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: query pipelines: %w", err)
	}
	defer rows.Close()

	var out []model.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPipeline(rows *sql.Rows) (model.Pipeline, error) {
	var p model.Pipeline
	var id, projectID, eventIDsJSON, stepsJSON string
	if err := rows.Scan(&id, &projectID, &p.Name, &eventIDsJSON, &stepsJSON); err != nil {
		return p, fmt.Errorf("sqlite: scan pipeline: %w", err)
	}
	p.ID = uuid.MustParse(id)
	p.ProjectID = uuid.MustParse(projectID)
	if err := json.Unmarshal([]byte(eventIDsJSON), &p.EventIDs); err != nil {
		return p, fmt.Errorf("sqlite: decode event_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return p, fmt.Errorf("sqlite: decode steps: %w", err)
	}
	return p, nil
}

// GetTemplate implements engine.TemplateSource.
func (s *Store) GetTemplate(ctx context.Context, projectID uuid.UUID, name, channel string) (model.Template, error) {
	var t model.Template
	var partsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT id, name, channel, parts FROM templates WHERE project_id = ? AND name = ? AND channel = ?`,
		projectID.String(), name, channel)

	var id string
	if err := row.Scan(&id, &t.Name, &t.Channel, &partsJSON); err != nil {
		return t, fmt.Errorf("sqlite: template %s/%s not found: %w", name, channel, err)
	}
	t.ID = uuid.MustParse(id)
	t.ProjectID = projectID
	if err := json.Unmarshal([]byte(partsJSON), &t.Parts); err != nil {
		return t, fmt.Errorf("sqlite: decode template parts: %w", err)
	}
	return t, nil
}

// IsSubscribed implements engine.SubscriptionStore. Absence of a row means
// subscribed (default opt-in), per spec.md §3.
func (s *Store) IsSubscribed(ctx context.Context, recipientID uuid.UUID, eventName, channel string) (bool, error) {
	var subscribed bool
	row := s.db.QueryRowContext(ctx, `SELECT subscribed FROM subscriptions WHERE recipient_id = ? AND event_name = ? AND channel = ?`,
		recipientID.String(), eventName, channel)
	err := row.Scan(&subscribed)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: query subscription: %w", err)
	}
	return subscribed, nil
}

// SetSubscribed records an explicit subscription state, used by the
// sub.list_unsubscribe HTTP callback.
func (s *Store) SetSubscribed(ctx context.Context, recipientID uuid.UUID, eventName, channel string, subscribed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (recipient_id, event_name, channel, subscribed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (recipient_id, event_name, channel) DO UPDATE SET subscribed = excluded.subscribed
	`, recipientID.String(), eventName, channel, subscribed)
	if err != nil {
		return fmt.Errorf("sqlite: set subscription: %w", err)
	}
	return nil
}

// ResolveAPIKey looks up the project a bearer API key authorizes,
// backing apikey.Authorizer's Lookup function.
func (s *Store) ResolveAPIKey(ctx context.Context, key string) (uuid.UUID, error) {
	var projectID string
	row := s.db.QueryRowContext(ctx, `SELECT project_id FROM api_keys WHERE key = ?`, key)
	if err := row.Scan(&projectID); err != nil {
		return uuid.Nil, fmt.Errorf("sqlite: unknown api key: %w", err)
	}
	return uuid.MustParse(projectID), nil
}

// GetCredential implements engine.CredentialStore.
func (s *Store) GetCredential(ctx context.Context, projectID uuid.UUID, transport string) (model.Credential, error) {
	var c model.Credential
	var id string
	row := s.db.QueryRowContext(ctx, `SELECT id, transport, value FROM credentials WHERE project_id = ? AND transport = ?`,
		projectID.String(), transport)
	if err := row.Scan(&id, &c.Transport, &c.Value); err != nil {
		return c, fmt.Errorf("sqlite: credential for %s not found: %w", transport, err)
	}
	c.ID = id
	c.ProjectID = projectID
	return c, nil
}

// Resolve implements engine.RecipientDirectory, expanding group
// selectors (an ID whose UUID has no matching recipient row) to their
// member recipients.
func (s *Store) Resolve(ctx context.Context, projectID uuid.UUID, selectors []engine.RecipientSelector) ([]model.Recipient, error) {
	var out []model.Recipient
	for _, sel := range selectors {
		if sel.ID == nil {
			continue
		}
		if r, err := s.getRecipient(ctx, *sel.ID); err == nil {
			out = append(out, r)
			continue
		}
		members, err := s.getGroupMembers(ctx, *sel.ID)
		if err != nil {
			return nil, fmt.Errorf("sqlite: resolve selector %s: %w", sel.ID, err)
		}
		out = append(out, members...)
	}
	return out, nil
}

func (s *Store) getRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error) {
	var r model.Recipient
	var projectID, contactsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT project_id, contacts FROM recipients WHERE id = ?`, id.String())
	if err := row.Scan(&projectID, &contactsJSON); err != nil {
		return r, err
	}
	r.ID = id
	r.ProjectID = uuid.MustParse(projectID)
	if err := json.Unmarshal([]byte(contactsJSON), &r.Contacts); err != nil {
		return r, fmt.Errorf("sqlite: decode contacts: %w", err)
	}
	return r, nil
}

func (s *Store) getGroupMembers(ctx context.Context, groupID uuid.UUID) ([]model.Recipient, error) {
	var recipientIDsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT recipient_ids FROM groups WHERE id = ?`, groupID.String())
	if err := row.Scan(&recipientIDsJSON); err != nil {
		return nil, fmt.Errorf("sqlite: group %s not found: %w", groupID, err)
	}
	var recipientIDs []uuid.UUID
	if err := json.Unmarshal([]byte(recipientIDsJSON), &recipientIDs); err != nil {
		return nil, fmt.Errorf("sqlite: decode recipient_ids: %w", err)
	}

	out := make([]model.Recipient, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		r, err := s.getRecipient(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("sqlite: group member %s: %w", id, err)
		}
		out = append(out, r)
	}
	return out, nil
}
