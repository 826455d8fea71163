// Package restyutil holds the error-classification helper shared by the
// resty-backed transports (whatsapp, pushover, gotify, ntfy).
package restyutil

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/notifico/notifico/internal/engine"
)

// Classify maps a resty response/error into the engine's transient/
// permanent error taxonomy: network errors and 5xx responses are
// transient (retryable); 4xx responses are permanent, since retrying a
// malformed or unauthorized request won't help.
func Classify(name string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, engine.MarkTransient(err))
	}
	if resp.IsSuccess() {
		return nil
	}
	status := resp.StatusCode()
	wrapped := fmt.Errorf("%s: unexpected status %d: %s", name, status, resp.String())
	if status >= 500 {
		return engine.MarkTransient(wrapped)
	}
	return wrapped
}
