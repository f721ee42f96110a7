// Package accounts manages the role catalogue and the account operations
// exposed over the API. Every operation reports a result.Outcome.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"medsys.org/internal/auth"
	"medsys.org/internal/result"
)

type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the public view of an account.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	IsActive    bool      `json:"isActive"`
	DateCreated time.Time `json:"dateCreated"`
}

// ProfileOf builds the public view of identity.
func ProfileOf(identity auth.Identity) Profile {
	roles := identity.RoleSnapshot()
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:          identity.ID,
		Name:        identity.Name,
		Email:       identity.Email,
		Roles:       roles,
		IsActive:    identity.Active,
		DateCreated: identity.CreatedAt,
	}
}

// NewAccount is the input for provisioning an account.
type NewAccount struct {
	Email    string
	Name     string
	Password string
	Roles    []string
	// PhoneNumber is only kept for patients and medical officers.
	PhoneNumber string
}

// Store is the persistence boundary used by Service.
type Store interface {
	auth.CredentialStore
	FindByID(ctx context.Context, id string) (auth.Identity, error)
	CreateIdentity(ctx context.Context, identity auth.Identity) (auth.Identity, error)
	ReplaceRoles(ctx context.Context, userID string, roles []string) error
	CreateRole(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateMember(ctx context.Context, member Member) (Member, error)
	FindMember(ctx context.Context, kind MemberKind, userID string) (Member, error)
}

type Service struct {
	store  Store
	hasher auth.PasswordHasher
	now    func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithHasher sets the hasher used for new passwords.
func WithHasher(h auth.PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides the time source used for creation timestamps.
func WithClock(c auth.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.now = c.Now
		}
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("accounts: store is required")
	}
	s := &Service{store: store, hasher: auth.BcryptHasher{}, now: auth.SystemClock.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Profile returns the account identified by userID.
func (s *Service) Profile(ctx context.Context, userID string) (result.Outcome[Profile], error) {
	identity, err := s.store.FindByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return result.NotFoundf[Profile]("User Not Found"), nil
		}
		return result.Outcome[Profile]{}, err
	}
	return result.Succeeded(ProfileOf(identity)), nil
}

// UpdateRoles replaces the roles held by userID. Every role must exist in the
// catalogue and at least one is required.
func (s *Service) UpdateRoles(ctx context.Context, userID string, roles []string) (result.Outcome[string], error) {
	if _, err := s.store.FindByID(ctx, strings.TrimSpace(userID)); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return result.NotFoundf[string]("User not found"), nil
		}
		return result.Outcome[string]{}, err
	}
	if len(roles) < 1 {
		return result.BadRequestf[string]("You must add at least one role"), nil
	}
	if missing, err := s.firstUnknownRole(ctx, roles); err != nil {
		return result.Outcome[string]{}, err
	} else if missing != "" {
		return result.BadRequestf[string]("Role %s does not exist", missing), nil
	}

	if err := s.store.ReplaceRoles(ctx, userID, roles); err != nil {
		if isCancellation(err) {
			return result.Outcome[string]{}, err
		}
		return result.Failedf[string]("Error while changing role"), nil
	}
	return result.Succeeded("Roles Updated Successfully"), nil
}

// CreateRole adds name to the role catalogue.
func (s *Service) CreateRole(ctx context.Context, name string) (result.Outcome[string], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return result.BadRequestf[string]("Role name cannot be empty"), nil
	}
	_, err := s.store.CreateRole(ctx, name)
	switch {
	case err == nil:
		return result.Succeeded("Role created successfully"), nil
	case errors.Is(err, auth.ErrAlreadyExists):
		return result.BadRequestf[string]("Role already exists"), nil
	case isCancellation(err):
		return result.Outcome[string]{}, err
	default:
		return result.BadRequestf[string]("An error occurred"), nil
	}
}

// ListRoles returns the whole role catalogue.
func (s *Service) ListRoles(ctx context.Context) (result.Outcome[[]Role], error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return result.Outcome[[]Role]{}, err
	}
	if roles == nil {
		roles = []Role{}
	}
	return result.Succeeded(roles), nil
}

// CreateAccount provisions an account with the given roles.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (result.Outcome[Profile], error) {
	identity, rejected, err := s.newIdentity(ctx, in)
	if err != nil {
		return result.Outcome[Profile]{}, err
	}
	if rejected != nil {
		return *rejected, nil
	}
	created, err := s.store.CreateIdentity(ctx, identity)
	if err != nil {
		return createFailed[Profile](err)
	}
	return result.Succeeded(ProfileOf(created)), nil
}

// newIdentity validates in and hashes its password. A non-nil outcome is the
// reason the account cannot be created.
func (s *Service) newIdentity(ctx context.Context, in NewAccount) (auth.Identity, *result.Outcome[Profile], error) {
	reject := func(o result.Outcome[Profile]) (auth.Identity, *result.Outcome[Profile], error) {
		return auth.Identity{}, &o, nil
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return reject(result.BadRequestf[Profile]("valid email is required"))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return reject(result.BadRequestf[Profile]("name is required"))
	}
	if in.Password == "" {
		return reject(result.BadRequestf[Profile]("password is required"))
	}

	if _, err := s.store.FindByIdentifier(ctx, email); err == nil {
		return reject(result.BadRequestf[Profile]("User with email already exists"))
	} else if !errors.Is(err, auth.ErrNotFound) {
		return auth.Identity{}, nil, err
	}
	if missing, err := s.firstUnknownRole(ctx, in.Roles); err != nil {
		return auth.Identity{}, nil, err
	} else if missing != "" {
		return reject(result.BadRequestf[Profile]("Role %s not found", missing))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return reject(result.Failedf[Profile]("Unable to create user: %v", err))
	}
	return auth.Identity{
		Email:        email,
		Name:         name,
		Roles:        append([]string(nil), in.Roles...),
		Active:       true,
		CreatedAt:    s.now(),
		PasswordHash: hash,
	}, nil, nil
}

// createFailed maps a store error from an account insert.
func createFailed[T any](err error) (result.Outcome[T], error) {
	switch {
	case isCancellation(err):
		return result.Outcome[T]{}, err
	case errors.Is(err, auth.ErrAlreadyExists):
		return result.BadRequestf[T]("User with email already exists"), nil
	default:
		return result.Failedf[T]("Unable to create user"), nil
	}
}

func (s *Service) firstUnknownRole(ctx context.Context, roles []string) (string, error) {
	known, err := s.store.ListRoleNames(ctx)
	if err != nil {
		return "", err
	}
	set := auth.NewRoleSet(known...)
	for _, role := range roles {
		if !set.Has(role) {
			return role, nil
		}
	}
	return "", nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
