package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsys.org/internal/result"
)

type stubCredentialStore struct {
	findFn   func(context.Context, string) (Identity, error)
	verifyFn func(context.Context, Identity, string) (bool, error)
	roles    []string
	calls    int
}

func (s *stubCredentialStore) FindByIdentifier(ctx context.Context, id string) (Identity, error) {
	s.calls++
	if s.findFn != nil {
		return s.findFn(ctx, id)
	}
	return Identity{}, ErrNotFound
}

func (s *stubCredentialStore) VerifySecret(ctx context.Context, identity Identity, plaintext string) (bool, error) {
	s.calls++
	if s.verifyFn != nil {
		return s.verifyFn(ctx, identity, plaintext)
	}
	return false, nil
}

func (s *stubCredentialStore) ListRoleNames(context.Context) ([]string, error) {
	return s.roles, nil
}

func knownAccountStore(t *testing.T, password string, roles ...string) *stubCredentialStore {
	t.Helper()
	hash, err := BcryptHasher{Cost: 4}.Hash(password)
	require.NoError(t, err)
	identity := testIdentity(roles...)
	identity.PasswordHash = hash
	return &stubCredentialStore{
		findFn: func(_ context.Context, id string) (Identity, error) {
			if id != identity.Email {
				return Identity{}, ErrNotFound
			}
			return identity, nil
		},
		verifyFn: func(_ context.Context, identity Identity, plaintext string) (bool, error) {
			return VerifyPassword(identity.PasswordHash, plaintext)
		},
	}
}

func newTestVerifier(t *testing.T, store CredentialStore) *Verifier {
	t.Helper()
	issuer, err := NewIssuer(testConfig(), FixedClock(t0))
	require.NoError(t, err)
	v, err := NewVerifier(store, issuer)
	require.NoError(t, err)
	return v
}

func TestLoginUnknownAccountIsNotFound(t *testing.T) {
	v := newTestVerifier(t, knownAccountStore(t, "P@ssw0rd", "Role2"))

	out, err := v.Login(context.Background(), "nobody@example.com", "P@ssw0rd")
	require.NoError(t, err)
	assert.Equal(t, result.NotFound, out.Kind)
	assert.Equal(t, "account not found", out.Message)
	assert.Empty(t, out.Data.Token)
}

func TestLoginWrongSecretIsFailed(t *testing.T) {
	v := newTestVerifier(t, knownAccountStore(t, "P@ssw0rd", "Role2"))

	out, err := v.Login(context.Background(), "officer@example.com", "wrong")
	require.NoError(t, err)
	assert.Equal(t, result.Failed, out.Kind)
	assert.Equal(t, "login failed", out.Message)
	assert.Empty(t, out.Data.Token)
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	v := newTestVerifier(t, knownAccountStore(t, "P@ssw0rd", "Role2"))

	out, err := v.Login(context.Background(), "officer@example.com", "P@ssw0rd")
	require.NoError(t, err)
	require.Equal(t, result.Success, out.Kind)
	assert.NotEmpty(t, out.Data.Token)
	assert.Equal(t, "user-1", out.Data.UserID)
	assert.True(t, out.Data.ExpiresAt.After(t0))
	assert.Equal(t, t0.Add(time.Hour), out.Data.ExpiresAt)

	validator, err := NewValidator(testConfig(), WithValidatorClock(FixedClock(t0)))
	require.NoError(t, err)
	claims, err := validator.Validate(out.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, Roles{"Role2"}, claims.Roles)
}

func TestLoginCollaboratorFailureProducesNoOutcome(t *testing.T) {
	boom := errors.New("connection reset")
	store := &stubCredentialStore{
		findFn: func(context.Context, string) (Identity, error) { return Identity{}, boom },
	}
	v := newTestVerifier(t, store)

	out, err := v.Login(context.Background(), "officer@example.com", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, out.Kind.Valid())

	store = &stubCredentialStore{
		findFn:   func(context.Context, string) (Identity, error) { return testIdentity(), nil },
		verifyFn: func(context.Context, Identity, string) (bool, error) { return false, boom },
	}
	v = newTestVerifier(t, store)
	_, err = v.Login(context.Background(), "officer@example.com", "x")
	assert.ErrorIs(t, err, boom)
}

func TestLoginHonoursCancellation(t *testing.T) {
	store := knownAccountStore(t, "P@ssw0rd")
	v := newTestVerifier(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := v.Login(ctx, "officer@example.com", "P@ssw0rd")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Kind.Valid())
	assert.Zero(t, store.calls)
}

func TestLoginCancelledDuringVerification(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &stubCredentialStore{
		findFn: func(context.Context, string) (Identity, error) { return testIdentity(), nil },
		verifyFn: func(context.Context, Identity, string) (bool, error) {
			cancel()
			return true, nil
		},
	}
	v := newTestVerifier(t, store)

	out, err := v.Login(ctx, "officer@example.com", "P@ssw0rd")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Data.Token)
}

func TestNewVerifierRequiresCollaborators(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), nil)
	require.NoError(t, err)

	_, err = NewVerifier(nil, issuer)
	assert.Error(t, err)
	_, err = NewVerifier(&stubCredentialStore{}, nil)
	assert.Error(t, err)
}
