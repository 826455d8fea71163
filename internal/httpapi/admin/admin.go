// Package admin implements the tenant-management REST surface: CRUD over
// projects, events, pipelines, recipients, groups, templates, API keys and
// credentials, per spec.md §6.3. List endpoints follow the refine/simple-admin
// data-provider convention (sort/range/filter JSON query params,
// Content-Range response header), grounded on the comment in
// notifico-core/src/credentials/env.rs noting refine's ID requirement.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/model"
)

// Store is the persistence surface the admin API drives. One concrete
// implementation lives in internal/store/sqlite.
type Store interface {
	ListProjects(ctx context.Context, q ListQuery) ([]model.Project, int, error)
	GetProject(ctx context.Context, id uuid.UUID) (model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error

	ListEvents(ctx context.Context, q ListQuery) ([]model.Event, int, error)
	GetEvent(ctx context.Context, id uuid.UUID) (model.Event, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	ListPipelines(ctx context.Context, q ListQuery) ([]model.Pipeline, int, error)
	GetPipeline(ctx context.Context, id uuid.UUID) (model.Pipeline, error)
	CreatePipeline(ctx context.Context, p model.Pipeline) (model.Pipeline, error)
	DeletePipeline(ctx context.Context, id uuid.UUID) error

	ListRecipients(ctx context.Context, q ListQuery) ([]model.Recipient, int, error)
	GetRecipient(ctx context.Context, id uuid.UUID) (model.Recipient, error)
	CreateRecipient(ctx context.Context, r model.Recipient) (model.Recipient, error)
	DeleteRecipient(ctx context.Context, id uuid.UUID) error

	ListGroups(ctx context.Context, q ListQuery) ([]model.Group, int, error)
	GetGroup(ctx context.Context, id uuid.UUID) (model.Group, error)
	CreateGroup(ctx context.Context, g model.Group) (model.Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	ListTemplates(ctx context.Context, q ListQuery) ([]model.Template, int, error)
	GetTemplateByID(ctx context.Context, id uuid.UUID) (model.Template, error)
	CreateTemplate(ctx context.Context, t model.Template) (model.Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	ListApiKeys(ctx context.Context, q ListQuery) ([]model.ApiKey, int, error)
	CreateApiKey(ctx context.Context, k model.ApiKey) (model.ApiKey, error)
	DeleteApiKey(ctx context.Context, id uuid.UUID) error

	ListCredentials(ctx context.Context, q ListQuery) ([]model.Credential, int, error)
	CreateCredential(ctx context.Context, c model.Credential) (model.Credential, error)
	DeleteCredential(ctx context.Context, id string) error
}

// ListQuery is the decoded form of refine's sort/range/filter query params.
type ListQuery struct {
	SortField string
	SortDesc  bool
	Start     int
	End       int
	ProjectID *uuid.UUID
}

const defaultPageSize = 25

// parseListQuery reads the sort/range/filter JSON query parameters used by
// refine's simple-rest data provider.
func parseListQuery(r *http.Request) ListQuery {
	q := ListQuery{SortField: "id", Start: 0, End: defaultPageSize - 1}

	if raw := r.URL.Query().Get("sort"); raw != "" {
		var pair []string
		if err := json.Unmarshal([]byte(raw), &pair); err == nil && len(pair) == 2 {
			q.SortField = pair[0]
			q.SortDesc = strings.EqualFold(pair[1], "DESC")
		}
	}
	if raw := r.URL.Query().Get("range"); raw != "" {
		var bounds []int
		if err := json.Unmarshal([]byte(raw), &bounds); err == nil && len(bounds) == 2 {
			q.Start, q.End = bounds[0], bounds[1]
		}
	}
	if raw := r.URL.Query().Get("filter"); raw != "" {
		var filter map[string]any
		if err := json.Unmarshal([]byte(raw), &filter); err == nil {
			if pid, ok := filter["project_id"].(string); ok {
				if parsed, err := uuid.Parse(pid); err == nil {
					q.ProjectID = &parsed
				}
			}
		}
	}
	return q
}

func contentRange(w http.ResponseWriter, resource string, start, end, total int) {
	w.Header().Set("Content-Range", fmt.Sprintf("%s %d-%d/%d", resource, start, end, total))
	w.Header().Set("Access-Control-Expose-Headers", "Content-Range")
}

// Server implements the admin REST surface.
type Server struct {
	store Store
	log   *slog.Logger
}

// New builds an admin Server.
func New(store Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, log: log}
}

// RegisterRoutes mounts every admin resource route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	registerResource(mux, "projects", resourceHandlers[model.Project]{
		list:   s.store.ListProjects,
		get:    s.store.GetProject,
		create: s.store.CreateProject,
		delete: s.store.DeleteProject,
	})
	registerResource(mux, "events", resourceHandlers[model.Event]{
		list:   s.store.ListEvents,
		get:    s.store.GetEvent,
		create: s.store.CreateEvent,
		delete: s.store.DeleteEvent,
	})
	registerResource(mux, "pipelines", resourceHandlers[model.Pipeline]{
		list:   s.store.ListPipelines,
		get:    s.store.GetPipeline,
		create: s.store.CreatePipeline,
		delete: s.store.DeletePipeline,
	})
	registerResource(mux, "recipients", resourceHandlers[model.Recipient]{
		list:   s.store.ListRecipients,
		get:    s.store.GetRecipient,
		create: s.store.CreateRecipient,
		delete: s.store.DeleteRecipient,
	})
	registerResource(mux, "groups", resourceHandlers[model.Group]{
		list:   s.store.ListGroups,
		get:    s.store.GetGroup,
		create: s.store.CreateGroup,
		delete: s.store.DeleteGroup,
	})
	registerResource(mux, "templates", resourceHandlers[model.Template]{
		list:   s.store.ListTemplates,
		get:    s.store.GetTemplateByID,
		create: s.store.CreateTemplate,
		delete: s.store.DeleteTemplate,
	})

	// API keys and credentials have no single-resource GET in refine's
	// list-only "reference" usage, so only list/create/delete are mounted.
	mux.HandleFunc("GET /api/admin/v1/api-keys", s.handleListApiKeys)
	mux.HandleFunc("POST /api/admin/v1/api-keys", s.handleCreateApiKey)
	mux.HandleFunc("DELETE /api/admin/v1/api-keys/{id}", s.handleDeleteApiKey)

	mux.HandleFunc("GET /api/admin/v1/credentials", s.handleListCredentials)
	mux.HandleFunc("POST /api/admin/v1/credentials", s.handleCreateCredential)
	mux.HandleFunc("DELETE /api/admin/v1/credentials/{id}", s.handleDeleteCredential)
}

func (s *Server) handleListApiKeys(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	items, total, err := s.store.ListApiKeys(r.Context(), q)
	if err != nil {
		s.log.Error("list api-keys failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	contentRange(w, "api-keys", q.Start, q.End, total)
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateApiKey(w http.ResponseWriter, r *http.Request) {
	var in model.ApiKey
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	created, err := s.store.CreateApiKey(r.Context(), in)
	if err != nil {
		s.log.Error("create api-key failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteApiKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteApiKey(r.Context(), id); err != nil {
		s.log.Error("delete api-key failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)
	items, total, err := s.store.ListCredentials(r.Context(), q)
	if err != nil {
		s.log.Error("list credentials failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	contentRange(w, "credentials", q.Start, q.End, total)
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var in model.Credential
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	created, err := s.store.CreateCredential(r.Context(), in)
	if err != nil {
		s.log.Error("create credential failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCredential(r.Context(), r.PathValue("id")); err != nil {
		s.log.Error("delete credential failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resourceHandlers groups the four CRUD funcs a uuid-keyed resource needs.
// Go has no way to abstract over struct field names, so list/get/create are
// plain closures into the Store rather than a single reflective helper.
type resourceHandlers[T any] struct {
	list   func(ctx context.Context, q ListQuery) ([]T, int, error)
	get    func(ctx context.Context, id uuid.UUID) (T, error)
	create func(ctx context.Context, v T) (T, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func registerResource[T any](mux *http.ServeMux, name string, h resourceHandlers[T]) {
	base := "/api/admin/v1/" + name

	mux.HandleFunc("GET "+base, func(w http.ResponseWriter, r *http.Request) {
		q := parseListQuery(r)
		items, total, err := h.list(r.Context(), q)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		contentRange(w, name, q.Start, q.End, total)
		writeJSON(w, http.StatusOK, items)
	})

	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		item, err := h.get(r.Context(), id)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, item)
	})

	mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		created, err := h.create(r.Context(), in)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := h.delete(r.Context(), id); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
