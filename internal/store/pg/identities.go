package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medsys.org/internal/accounts"
	"medsys.org/internal/auth"
	"medsys.org/internal/ids"
)

var _ accounts.Store = (*Store)(nil)

const selectIdentity = `
	select id, email, name, password_hash, is_active, created_at
	from users
`

// FindByIdentifier looks an account up by email, case-insensitively.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	return s.findIdentity(ctx, selectIdentity+`where lower(email) = lower($1)`, strings.TrimSpace(identifier))
}

func (s *Store) FindByID(ctx context.Context, id string) (auth.Identity, error) {
	return s.findIdentity(ctx, selectIdentity+`where id = $1`, id)
}

func (s *Store) findIdentity(ctx context.Context, query string, arg string) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errNoDB
	}
	var identity auth.Identity
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Email, &identity.Name, &identity.PasswordHash, &identity.Active, &identity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, wrap(err, "PG_IDENTITY_LOOKUP", "load identity")
	}
	roles, err := s.identityRoles(ctx, identity.ID)
	if err != nil {
		return auth.Identity{}, err
	}
	identity.Roles = roles
	return identity, nil
}

// identityRoles returns role names in assignment order.
func (s *Store) identityRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.name
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = $1
		order by ur.position
	`, userID)
	if err != nil {
		return nil, wrap(err, "PG_ROLE_LOOKUP", "load identity roles")
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap(err, "PG_ROLE_LOOKUP", "scan identity role")
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "PG_ROLE_LOOKUP", "iterate identity roles")
	}
	return roles, nil
}

// VerifySecret compares plaintext with the stored hash. No database access.
func (s *Store) VerifySecret(ctx context.Context, identity auth.Identity, plaintext string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if identity.PasswordHash == "" {
		return false, nil
	}
	return auth.VerifyPassword(identity.PasswordHash, plaintext)
}

func (s *Store) ListRoleNames(ctx context.Context) ([]string, error) {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]accounts.Role, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select id, name, created_at from roles order by name`)
	if err != nil {
		return nil, wrap(err, "PG_ROLE_LIST", "list roles")
	}
	defer rows.Close()

	var roles []accounts.Role
	for rows.Next() {
		var r accounts.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, wrap(err, "PG_ROLE_LIST", "scan role")
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "PG_ROLE_LIST", "iterate roles")
	}
	return roles, nil
}

func (s *Store) CreateRole(ctx context.Context, name string) (accounts.Role, error) {
	if s.db == nil {
		return accounts.Role{}, errNoDB
	}
	var r accounts.Role
	err := s.db.QueryRowContext(ctx, `
		insert into roles (id, name)
		values ($1, $2)
		returning id, name, created_at
	`, ids.New(), name).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return accounts.Role{}, auth.ErrAlreadyExists
		}
		return accounts.Role{}, wrap(err, "PG_ROLE_CREATE", "create role")
	}
	return r, nil
}

// ReplaceRoles swaps the user's role assignments in one transaction. Roles
// are stored in the given order.
func (s *Store) ReplaceRoles(ctx context.Context, userID string, roles []string) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "PG_ROLE_REPLACE", "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, userID); err != nil {
		return wrap(err, "PG_ROLE_REPLACE", "clear roles")
	}
	if err := insertRoles(ctx, tx, userID, roles); err != nil {
		return err
	}
	return wrap(tx.Commit(), "PG_ROLE_REPLACE", "commit")
}

// CreateIdentity inserts the account and its role assignments.
func (s *Store) CreateIdentity(ctx context.Context, identity auth.Identity) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Identity{}, wrap(err, "PG_IDENTITY_CREATE", "begin")
	}
	defer func() { _ = tx.Rollback() }()

	identity, err = insertIdentity(ctx, tx, identity)
	if err != nil {
		return auth.Identity{}, err
	}
	if err := tx.Commit(); err != nil {
		return auth.Identity{}, wrap(err, "PG_IDENTITY_CREATE", "commit")
	}
	return identity, nil
}

// CreateMember inserts the account, its roles and its member row in one
// transaction.
func (s *Store) CreateMember(ctx context.Context, m accounts.Member) (accounts.Member, error) {
	if s.db == nil {
		return accounts.Member{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return accounts.Member{}, wrap(err, "PG_MEMBER_CREATE", "begin")
	}
	defer func() { _ = tx.Rollback() }()

	identity, err := insertIdentity(ctx, tx, m.Identity)
	if err != nil {
		return accounts.Member{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into members (user_id, kind, phone_number, created_at)
		values ($1, $2, $3, $4)
	`, identity.ID, string(m.Kind), m.PhoneNumber, identity.CreatedAt); err != nil {
		return accounts.Member{}, wrap(err, "PG_MEMBER_CREATE", "insert member")
	}
	if err := tx.Commit(); err != nil {
		return accounts.Member{}, wrap(err, "PG_MEMBER_CREATE", "commit")
	}
	m.Identity = identity
	return m, nil
}

// FindMember loads an account registered under kind.
func (s *Store) FindMember(ctx context.Context, kind accounts.MemberKind, userID string) (accounts.Member, error) {
	if s.db == nil {
		return accounts.Member{}, errNoDB
	}
	m := accounts.Member{Kind: kind}
	err := s.db.QueryRowContext(ctx, `
		select u.id, u.email, u.name, u.password_hash, u.is_active, u.created_at, m.phone_number
		from users u
		join members m on m.user_id = u.id
		where u.id = $1 and m.kind = $2
	`, userID, string(kind)).Scan(
		&m.Identity.ID, &m.Identity.Email, &m.Identity.Name, &m.Identity.PasswordHash,
		&m.Identity.Active, &m.Identity.CreatedAt, &m.PhoneNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Member{}, auth.ErrNotFound
	}
	if err != nil {
		return accounts.Member{}, wrap(err, "PG_MEMBER_LOOKUP", "load member")
	}
	roles, err := s.identityRoles(ctx, m.Identity.ID)
	if err != nil {
		return accounts.Member{}, err
	}
	m.Identity.Roles = roles
	return m, nil
}

func insertIdentity(ctx context.Context, tx *sql.Tx, identity auth.Identity) (auth.Identity, error) {
	identity.ID = ids.NewAt(identity.CreatedAt)
	err := tx.QueryRowContext(ctx, `
		insert into users (id, email, name, password_hash, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, identity.ID, identity.Email, identity.Name, identity.PasswordHash, identity.Active, identity.CreatedAt).Scan(&identity.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Identity{}, auth.ErrAlreadyExists
		}
		return auth.Identity{}, wrap(err, "PG_IDENTITY_CREATE", "insert user")
	}
	if err := insertRoles(ctx, tx, identity.ID, identity.Roles); err != nil {
		return auth.Identity{}, err
	}
	identity.Roles = identity.RoleSnapshot()
	return identity, nil
}

func insertRoles(ctx context.Context, tx *sql.Tx, userID string, roles []string) error {
	for i, name := range roles {
		res, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_id, position)
			select $1, id, $3 from roles where name = $2
		`, userID, name, i)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return auth.ErrNotFound
			}
			return wrap(err, "PG_ROLE_ASSIGN", "assign role")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return auth.ErrNotFound
		}
	}
	return nil
}
