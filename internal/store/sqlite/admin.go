// Admin-surface queries: list/get/create/delete for every resource exposed
// under /api/admin/v1, implementing the internal/httpapi/admin.Store
// interface. Kept in a separate file from the engine-facing reference-store
// queries in sqlite.go since the two serve different callers.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/httpapi/admin"
	"github.com/notifico/notifico/internal/model"
)

func orderBy(q admin.ListQuery, allowed map[string]string) string {
	col, ok := allowed[q.SortField]
	if !ok {
		col = allowed["id"]
	}
	if q.SortDesc {
		return col + " DESC"
	}
	return col + " ASC"
}

func limitOffset(q admin.ListQuery) (limit, offset int) {
	limit = q.End - q.Start + 1
	if limit <= 0 {
		limit = 25
	}
	return limit, q.Start
}

// ListProjects implements admin.Store.
func (s *Store) ListProjects(ctx context.Context, q admin.ListQuery) ([]model.Project, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count projects: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM projects ORDER BY %s LIMIT ? OFFSET ?`,
		orderBy(q, map[string]string{"id": "id", "name": "name"})), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list projects: %w", err)
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		var id string
		if err := rows.Scan(&id, &p.Name); err != nil {
			return nil, 0, err
		}
		p.ID = uuid.MustParse(id)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetProject implements admin.Store.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (model.Project, error) {
	var p model.Project
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM projects WHERE id = ?`, id.String())
	var idStr string
	if err := row.Scan(&idStr, &p.Name); err != nil {
		return p, fmt.Errorf("sqlite: project %s not found: %w", id, err)
	}
	p.ID = uuid.MustParse(idStr)
	return p, nil
}

// CreateProject implements admin.Store.
func (s *Store) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects (id, name) VALUES (?, ?)`, p.ID.String(), p.Name)
	if err != nil {
		return p, fmt.Errorf("sqlite: create project: %w", err)
	}
	return p, nil
}

// DeleteProject implements admin.Store.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete project: %w", err)
	}
	return nil
}

// ListEvents implements admin.Store.
func (s *Store) ListEvents(ctx context.Context, q admin.ListQuery) ([]model.Event, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count events: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, name FROM events%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id", "name": "name"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var id, projectID string
		if err := rows.Scan(&id, &projectID, &e.Name); err != nil {
			return nil, 0, err
		}
		e.ID = uuid.MustParse(id)
		e.ProjectID = uuid.MustParse(projectID)
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// GetEvent implements admin.Store.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (model.Event, error) {
	var e model.Event
	var idStr, projectID string
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name FROM events WHERE id = ?`, id.String())
	if err := row.Scan(&idStr, &projectID, &e.Name); err != nil {
		return e, fmt.Errorf("sqlite: event %s not found: %w", id, err)
	}
	e.ID = uuid.MustParse(idStr)
	e.ProjectID = uuid.MustParse(projectID)
	return e, nil
}

// CreateEvent implements admin.Store.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO events (id, project_id, name) VALUES (?, ?, ?)`,
		e.ID.String(), e.ProjectID.String(), e.Name)
	if err != nil {
		return e, fmt.Errorf("sqlite: create event: %w", err)
	}
	return e, nil
}

// DeleteEvent implements admin.Store.
func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete event: %w", err)
	}
	return nil
}

// ListPipelines implements admin.Store.
func (s *Store) ListPipelines(ctx context.Context, q admin.ListQuery) ([]model.Pipeline, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pipelines`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count pipelines: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, name, event_ids, steps FROM pipelines%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id", "name": "name"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list pipelines: %w", err)
	}
	defer rows.Close()

	var out []model.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetPipeline implements admin.Store.
func (s *Store) GetPipeline(ctx context.Context, id uuid.UUID) (model.Pipeline, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, event_ids, steps FROM pipelines WHERE id = ?`, id.String())
	var p model.Pipeline
	var idStr, projectID, eventIDsJSON, stepsJSON string
	if err := row.Scan(&idStr, &projectID, &p.Name, &eventIDsJSON, &stepsJSON); err != nil {
		return p, fmt.Errorf("sqlite: pipeline %s not found: %w", id, err)
	}
	p.ID = uuid.MustParse(idStr)
	p.ProjectID = uuid.MustParse(projectID)
	if err := json.Unmarshal([]byte(eventIDsJSON), &p.EventIDs); err != nil {
		return p, fmt.Errorf("sqlite: decode event_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &p.Steps); err != nil {
		return p, fmt.Errorf("sqlite: decode steps: %w", err)
	}
	return p, nil
}

// CreatePipeline implements admin.Store.
func (s *Store) CreatePipeline(ctx context.Context, p model.Pipeline) (model.Pipeline, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	eventIDsJSON, err := json.Marshal(p.EventIDs)
	if err != nil {
		return p, err
	}
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return p, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO pipelines (id, project_id, name, event_ids, steps) VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(), p.ProjectID.String(), p.Name, string(eventIDsJSON), string(stepsJSON))
	if err != nil {
		return p, fmt.Errorf("sqlite: create pipeline: %w", err)
	}
	return p, nil
}

// DeletePipeline implements admin.Store.
func (s *Store) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete pipeline: %w", err)
	}
	return nil
}

// ListRecipients implements admin.Store.
func (s *Store) ListRecipients(ctx context.Context, q admin.ListQuery) ([]model.Recipient, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count recipients: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, contacts FROM recipients%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list recipients: %w", err)
	}
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		var r model.Recipient
		var id, projectID, contactsJSON string
		if err := rows.Scan(&id, &projectID, &contactsJSON); err != nil {
			return nil, 0, err
		}
		r.ID = uuid.MustParse(id)
		r.ProjectID = uuid.MustParse(projectID)
		if err := json.Unmarshal([]byte(contactsJSON), &r.Contacts); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decode contacts: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// GetRecipient implements admin.Store.
func (s *Store) GetRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error) {
	return s.getRecipient(ctx, id)
}

// CreateRecipient implements admin.Store.
func (s *Store) CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	contactsJSON, err := json.Marshal(r.Contacts)
	if err != nil {
		return r, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO recipients (id, project_id, contacts) VALUES (?, ?, ?)`,
		r.ID.String(), r.ProjectID.String(), string(contactsJSON))
	if err != nil {
		return r, fmt.Errorf("sqlite: create recipient: %w", err)
	}
	return r, nil
}

// DeleteRecipient implements admin.Store.
func (s *Store) DeleteRecipient(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recipients WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete recipient: %w", err)
	}
	return nil
}

// ListGroups implements admin.Store.
func (s *Store) ListGroups(ctx context.Context, q admin.ListQuery) ([]model.Group, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM groups`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count groups: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, name, recipient_ids FROM groups%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id", "name": "name"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list groups: %w", err)
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		var id, projectID, recipientIDsJSON string
		if err := rows.Scan(&id, &projectID, &g.Name, &recipientIDsJSON); err != nil {
			return nil, 0, err
		}
		g.ID = uuid.MustParse(id)
		g.ProjectID = uuid.MustParse(projectID)
		if err := json.Unmarshal([]byte(recipientIDsJSON), &g.RecipientIDs); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decode recipient_ids: %w", err)
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

// GetGroup implements admin.Store.
func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (model.Group, error) {
	var g model.Group
	var idStr, projectID, recipientIDsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, recipient_ids FROM groups WHERE id = ?`, id.String())
	if err := row.Scan(&idStr, &projectID, &g.Name, &recipientIDsJSON); err != nil {
		return g, fmt.Errorf("sqlite: group %s not found: %w", id, err)
	}
	g.ID = uuid.MustParse(idStr)
	g.ProjectID = uuid.MustParse(projectID)
	if err := json.Unmarshal([]byte(recipientIDsJSON), &g.RecipientIDs); err != nil {
		return g, fmt.Errorf("sqlite: decode recipient_ids: %w", err)
	}
	return g, nil
}

// CreateGroup implements admin.Store.
func (s *Store) CreateGroup(ctx context.Context, g model.Group) (model.Group, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	recipientIDsJSON, err := json.Marshal(g.RecipientIDs)
	if err != nil {
		return g, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO groups (id, project_id, name, recipient_ids) VALUES (?, ?, ?, ?)`,
		g.ID.String(), g.ProjectID.String(), g.Name, string(recipientIDsJSON))
	if err != nil {
		return g, fmt.Errorf("sqlite: create group: %w", err)
	}
	return g, nil
}

// DeleteGroup implements admin.Store.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete group: %w", err)
	}
	return nil
}

// ListTemplates implements admin.Store.
func (s *Store) ListTemplates(ctx context.Context, q admin.ListQuery) ([]model.Template, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count templates: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, name, channel, parts FROM templates%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id", "name": "name"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list templates: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		var id, projectID, partsJSON string
		if err := rows.Scan(&id, &projectID, &t.Name, &t.Channel, &partsJSON); err != nil {
			return nil, 0, err
		}
		t.ID = uuid.MustParse(id)
		t.ProjectID = uuid.MustParse(projectID)
		if err := json.Unmarshal([]byte(partsJSON), &t.Parts); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decode template parts: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// GetTemplateByID implements admin.Store. Named distinctly from GetTemplate
// (engine.TemplateSource's name/channel lookup) since Go method sets can't
// overload on signature.
func (s *Store) GetTemplateByID(ctx context.Context, id uuid.UUID) (model.Template, error) {
	var t model.Template
	var idStr, projectID, partsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, name, channel, parts FROM templates WHERE id = ?`, id.String())
	if err := row.Scan(&idStr, &projectID, &t.Name, &t.Channel, &partsJSON); err != nil {
		return t, fmt.Errorf("sqlite: template %s not found: %w", id, err)
	}
	t.ID = uuid.MustParse(idStr)
	t.ProjectID = uuid.MustParse(projectID)
	if err := json.Unmarshal([]byte(partsJSON), &t.Parts); err != nil {
		return t, fmt.Errorf("sqlite: decode template parts: %w", err)
	}
	return t, nil
}

// CreateTemplate implements admin.Store.
func (s *Store) CreateTemplate(ctx context.Context, t model.Template) (model.Template, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	partsJSON, err := json.Marshal(t.Parts)
	if err != nil {
		return t, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO templates (id, project_id, name, channel, parts) VALUES (?, ?, ?, ?, ?)`,
		t.ID.String(), t.ProjectID.String(), t.Name, t.Channel, string(partsJSON))
	if err != nil {
		return t, fmt.Errorf("sqlite: create template: %w", err)
	}
	return t, nil
}

// DeleteTemplate implements admin.Store.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete template: %w", err)
	}
	return nil
}

// ListApiKeys implements admin.Store.
func (s *Store) ListApiKeys(ctx context.Context, q admin.ListQuery) ([]model.ApiKey, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count api keys: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, key, created_at FROM api_keys%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list api keys: %w", err)
	}
	defer rows.Close()

	var out []model.ApiKey
	for rows.Next() {
		var k model.ApiKey
		var id, projectID, createdAt string
		if err := rows.Scan(&id, &projectID, &k.Key, &createdAt); err != nil {
			return nil, 0, err
		}
		k.ID = uuid.MustParse(id)
		k.ProjectID = uuid.MustParse(projectID)
		if err := k.CreatedAt.UnmarshalText([]byte(createdAt)); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decode created_at: %w", err)
		}
		out = append(out, k)
	}
	return out, total, rows.Err()
}

// CreateApiKey implements admin.Store.
func (s *Store) CreateApiKey(ctx context.Context, k model.ApiKey) (model.ApiKey, error) {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	if k.Key == "" {
		k.Key = uuid.NewString()
	}
	createdAt, err := k.CreatedAt.MarshalText()
	if err != nil {
		return k, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO api_keys (id, project_id, key, created_at) VALUES (?, ?, ?, ?)`,
		k.ID.String(), k.ProjectID.String(), k.Key, string(createdAt))
	if err != nil {
		return k, fmt.Errorf("sqlite: create api key: %w", err)
	}
	return k, nil
}

// DeleteApiKey implements admin.Store.
func (s *Store) DeleteApiKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: delete api key: %w", err)
	}
	return nil
}

// ListCredentials implements admin.Store. Values are never returned in
// full; only enough to identify the row in the admin UI.
func (s *Store) ListCredentials(ctx context.Context, q admin.ListQuery) ([]model.Credential, int, error) {
	where, args := projectFilter(q, "project_id")
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count credentials: %w", err)
	}
	limit, offset := limitOffset(q)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, project_id, transport FROM credentials%s ORDER BY %s LIMIT ? OFFSET ?`,
		where, orderBy(q, map[string]string{"id": "id"})), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.Credential
	for rows.Next() {
		var c model.Credential
		var projectID string
		if err := rows.Scan(&c.ID, &projectID, &c.Transport); err != nil {
			return nil, 0, err
		}
		c.ProjectID = uuid.MustParse(projectID)
		c.Value = "••••••••"
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// CreateCredential implements admin.Store.
func (s *Store) CreateCredential(ctx context.Context, c model.Credential) (model.Credential, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO credentials (id, project_id, transport, value) VALUES (?, ?, ?, ?)`,
		c.ID, c.ProjectID.String(), c.Transport, c.Value)
	if err != nil {
		return c, fmt.Errorf("sqlite: create credential: %w", err)
	}
	c.Value = "••••••••"
	return c, nil
}

// DeleteCredential implements admin.Store.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete credential: %w", err)
	}
	return nil
}

func projectFilter(q admin.ListQuery, column string) (string, []any) {
	if q.ProjectID == nil {
		return "", nil
	}
	return fmt.Sprintf(" WHERE %s = ?", column), []any{q.ProjectID.String()}
}
