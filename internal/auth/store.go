package auth

import "context"

// CredentialStore resolves accounts and checks their secrets. Implementations
// must honour ctx cancellation and must not partially apply state when it
// fires.
type CredentialStore interface {
	// FindByIdentifier returns ErrNotFound when no account matches id.
	FindByIdentifier(ctx context.Context, id string) (Identity, error)
	VerifySecret(ctx context.Context, identity Identity, plaintext string) (bool, error)
	ListRoleNames(ctx context.Context) ([]string, error)
}
