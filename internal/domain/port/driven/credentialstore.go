package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when the
// site has no RB_SECRET_KEY.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set RB_SECRET_KEY")

// CredentialStore persists hosting service credentials. Implementations
// encrypt values at rest; the interface deals in plaintext.
type CredentialStore interface {
	// Set stores or replaces the credential for service and key.
	Set(ctx context.Context, service, key, plaintext string) error

	// Get returns the credential for service and key, or "" when none is stored.
	Get(ctx context.Context, service, key string) (string, error)

	// List returns every stored credential, ordered by service then key.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the credential for service and key.
	Delete(ctx context.Context, service, key string) error
}
