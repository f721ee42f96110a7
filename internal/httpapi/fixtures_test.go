package httpapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"medsys.org/internal/accounts"
	"medsys.org/internal/auth"
	"medsys.org/internal/records"
)

var testNow = time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)

// memStore backs accounts, records and login in handler tests.
type memStore struct {
	mu      sync.Mutex
	users   map[string]auth.Identity
	roles   []accounts.Role
	members map[string]accounts.Member
	records map[string]records.Record
	failGet error
}

func newMemStore() *memStore {
	s := &memStore{users: map[string]auth.Identity{}, members: map[string]accounts.Member{}, records: map[string]records.Record{}}
	for i, name := range auth.BuiltinRoles {
		s.roles = append(s.roles, accounts.Role{ID: strconv.Itoa(i + 1), Name: name, CreatedAt: testNow})
	}
	return s
}

func (s *memStore) addUser(id, email, password string, roles ...string) {
	hash, err := auth.BcryptHasher{Cost: 4}.Hash(password)
	if err != nil {
		panic(err)
	}
	s.users[id] = auth.Identity{ID: id, Email: email, Name: "User " + id, Roles: roles, Active: true, CreatedAt: testNow, PasswordHash: hash}
}

func (s *memStore) FindByIdentifier(_ context.Context, id string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == id {
			return u, nil
		}
	}
	return auth.Identity{}, auth.ErrNotFound
}

func (s *memStore) VerifySecret(_ context.Context, identity auth.Identity, plaintext string) (bool, error) {
	return auth.VerifyPassword(identity.PasswordHash, plaintext)
}

func (s *memStore) ListRoleNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.Name)
	}
	return out, nil
}

func (s *memStore) FindByID(_ context.Context, id string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return u, nil
}

func (s *memStore) CreateIdentity(_ context.Context, identity auth.Identity) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity.ID = "u" + strconv.Itoa(len(s.users)+1)
	s.users[identity.ID] = identity
	return identity, nil
}

func (s *memStore) ReplaceRoles(_ context.Context, userID string, roles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.Roles = append([]string(nil), roles...)
	s.users[userID] = u
	return nil
}

func (s *memStore) CreateRole(_ context.Context, name string) (accounts.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == name {
			return accounts.Role{}, auth.ErrAlreadyExists
		}
	}
	r := accounts.Role{ID: strconv.Itoa(len(s.roles) + 1), Name: name, CreatedAt: testNow}
	s.roles = append(s.roles, r)
	return r, nil
}

func (s *memStore) ListRoles(context.Context) ([]accounts.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]accounts.Role(nil), s.roles...), nil
}

func (s *memStore) CreateMember(ctx context.Context, m accounts.Member) (accounts.Member, error) {
	identity, err := s.CreateIdentity(ctx, m.Identity)
	if err != nil {
		return accounts.Member{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Identity = identity
	s.members[identity.ID] = m
	return m, nil
}

func (s *memStore) FindMember(_ context.Context, kind accounts.MemberKind, userID string) (accounts.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[userID]
	if !ok || m.Kind != kind {
		return accounts.Member{}, auth.ErrNotFound
	}
	m.Identity = s.users[userID]
	return m, nil
}

func (s *memStore) GetRecord(_ context.Context, id string) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return records.Record{}, s.failGet
	}
	rec, ok := s.records[id]
	if !ok {
		return records.Record{}, records.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) CreateRecord(_ context.Context, rec records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = "rec-" + strconv.Itoa(len(s.records)+1)
	s.records[rec.ID] = rec
	return rec, nil
}
