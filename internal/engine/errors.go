package engine

import "errors"

// Sentinel errors mirroring spec.md §7's error taxonomy. A plugin or
// transport returns one of these (or an error wrapping one) so callers can
// classify failures with errors.Is instead of string matching.
var (
	ErrPluginNotFound          = errors.New("engine: plugin not found for step")
	ErrInvalidStepPayload      = errors.New("engine: invalid step payload")
	ErrCredentialNotFound      = errors.New("engine: credential not found")
	ErrInvalidCredentialFormat = errors.New("engine: invalid credential format")
	ErrContactNotFound         = errors.New("engine: contact not found")
	ErrInvalidContactFormat    = errors.New("engine: invalid contact format")
	ErrRecipientNotSet         = errors.New("engine: recipient not set")
	ErrTemplateNotSet          = errors.New("engine: template not set")
	ErrProjectNotFound         = errors.New("engine: project not found")
	ErrTemplateRendering       = errors.New("engine: template rendering failed")
	ErrInvalidConfiguration    = errors.New("engine: invalid configuration")
	ErrInternal                = errors.New("engine: internal error")
)

// Transient is implemented by errors that represent a transient failure
// (network blip, 5xx response) as opposed to a permanent one (bad
// credentials, malformed payload). The executor's poison-message policy
// consults this to decide whether a failed AMQP message is released for
// retry or accepted-and-dropped.
type Transient interface {
	error
	Transient() bool
}

// transientError wraps an error and marks it transient.
type transientError struct{ err error }

// MarkTransient wraps err so executor.Run treats it as retryable.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err}
}

func (t transientError) Error() string   { return t.err.Error() }
func (t transientError) Unwrap() error   { return t.err }
func (t transientError) Transient() bool { return true }

// IsTransient reports whether err identifies itself as transient via the
// Transient interface. Errors that don't implement it are treated as
// permanent, matching the conservative default in spec.md §7.
func IsTransient(err error) bool {
	var t Transient
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}
