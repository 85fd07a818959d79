package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore reads and writes when
// GHBULKREVIEW_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set GHBULKREVIEW_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter encrypts and decrypts; values cross this boundary as plaintext.
type CredentialStore interface {
	// Get returns the plaintext credential for service, or "" if none is
	// stored. Returns ErrEncryptionKeyNotSet without a key.
	Get(ctx context.Context, service string) (string, error)

	// Set stores or replaces the credential for service. Returns
	// ErrEncryptionKeyNotSet without a key.
	Set(ctx context.Context, service, plaintext string) error

	// Delete removes the credential for service. It works without a key.
	Delete(ctx context.Context, service string) error
}
