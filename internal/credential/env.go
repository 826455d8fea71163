// Package credential provides credential storage backends satisfying
// engine.CredentialStore. EnvStore reads credentials from process
// environment variables, grounded on
// notifico-core/src/credentials/env.rs.
package credential

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/notifico/notifico/internal/engine"
	"github.com/notifico/notifico/internal/model"
)

// envVarPattern matches CRED_[<project-uuid>_]<NAME>=<transport>:<value>.
// The project segment is optional; entries without it apply to every
// project (e.g. a single global SMTP relay).
var envVarPattern = regexp.MustCompile(`^CRED_(?:([0-9a-fA-F-]{36})_)?(.+)$`)

// entry is one parsed CRED_* environment variable.
type entry struct {
	id        string
	projectID uuid.UUID // uuid.Nil means "applies to any project"
	cred      model.Credential
}

// EnvStore implements engine.CredentialStore by scanning os.Environ() once
// at construction time.
type EnvStore struct {
	entries []entry
}

// NewEnvStore parses all CRED_* variables currently set in the process
// environment.
func NewEnvStore() *EnvStore {
	s := &EnvStore{}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m := envVarPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}

		projectID := uuid.Nil
		if m[1] != "" {
			if parsed, err := uuid.Parse(m[1]); err == nil {
				projectID = parsed
			}
		}

		transport, credValue, ok := strings.Cut(value, ":")
		if !ok {
			continue
		}

		s.entries = append(s.entries, entry{
			id:        key,
			projectID: projectID,
			cred: model.Credential{
				ID:        key,
				ProjectID: projectID,
				Transport: transport,
				Value:     credValue,
			},
		})
	}
	return s
}

// GetCredential implements engine.CredentialStore, preferring a
// project-scoped entry over a global one for the same transport.
func (s *EnvStore) GetCredential(_ context.Context, projectID uuid.UUID, transport string) (model.Credential, error) {
	var fallback *model.Credential
	for i := range s.entries {
		e := &s.entries[i]
		if e.cred.Transport != transport {
			continue
		}
		if e.projectID == projectID {
			return e.cred, nil
		}
		if e.projectID == uuid.Nil {
			fallback = &e.cred
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return model.Credential{}, fmt.Errorf("%w: no %s credential for project %s", engine.ErrCredentialNotFound, transport, projectID)
}

// List returns every parsed credential, synthesizing a display ID per
// entry the way the original's env store does, since the
// environment-backed store has no natural row ID.
func (s *EnvStore) List() []model.Credential {
	out := make([]model.Credential, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.cred)
	}
	return out
}
