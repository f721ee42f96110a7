package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"medsys.org/internal/result"
)

// Verifier runs the login flow: account lookup, one secret check, token
// issuance. It keeps no state between calls.
type Verifier struct {
	store  CredentialStore
	issuer *Issuer
}

// NewVerifier constructs a Verifier.
func NewVerifier(store CredentialStore, issuer *Issuer) (*Verifier, error) {
	if store == nil {
		return nil, errors.New("auth: credential store is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Verifier{store: store, issuer: issuer}, nil
}

// Login authenticates identifier/secret. The returned error is non-nil only
// when ctx was cancelled or a collaborator failed; in that case no outcome is
// produced. Unknown accounts are reported as NotFound and wrong secrets as
// Failed, which reveals whether an identifier exists.
func (v *Verifier) Login(ctx context.Context, identifier, secret string) (result.Outcome[Session], error) {
	if err := ctx.Err(); err != nil {
		return result.Outcome[Session]{}, err
	}

	identity, err := v.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result.NotFoundf[Session]("account not found"), nil
		}
		return result.Outcome[Session]{}, oops.
			Code("AUTH_LOOKUP_FAILED").
			With("operation", "find account").
			Wrap(err)
	}

	ok, err := v.store.VerifySecret(ctx, identity, secret)
	if err != nil {
		return result.Outcome[Session]{}, oops.
			Code("AUTH_VERIFY_FAILED").
			With("operation", "verify secret").
			With("user_id", identity.ID).
			Wrap(err)
	}
	if !ok {
		return result.Failedf[Session]("login failed"), nil
	}

	if err := ctx.Err(); err != nil {
		return result.Outcome[Session]{}, err
	}
	issued, err := v.issuer.Issue(identity)
	if err != nil {
		return result.Outcome[Session]{}, oops.
			Code("AUTH_ISSUE_FAILED").
			With("user_id", identity.ID).
			Wrap(err)
	}
	return result.Succeeded(Session{
		Token:     issued.Token,
		UserID:    identity.ID,
		ExpiresAt: issued.ExpiresAt,
	}), nil
}
