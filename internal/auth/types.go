package auth

import "time"

// Identity is the authenticated subject as seen by token issuance and
// authorization. Roles is a snapshot taken when the identity was loaded; it
// is never shared with the persistence layer.
type Identity struct {
	ID           string
	Email        string
	Name         string
	Roles        []string
	Active       bool
	CreatedAt    time.Time
	PasswordHash string
}

// RoleSnapshot returns a copy of the identity's roles in stored order.
func (i Identity) RoleSnapshot() []string {
	if len(i.Roles) == 0 {
		return nil
	}
	out := make([]string, len(i.Roles))
	copy(out, i.Roles)
	return out
}

// Session is what a successful login hands back to the caller.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
