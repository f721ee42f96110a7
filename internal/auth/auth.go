package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig is the JWT section of the service configuration. Validity
// values stay strings: an unparsable value counts as zero.
type TokenConfig struct {
	SigningKey                 string `koanf:"signing_key"`
	Issuer                     string `koanf:"issuer"`
	Audience                   string `koanf:"audience"`
	TokenValidityInMinutes     string `koanf:"token_validity_in_minutes"`
	RefreshTokenValidityInDays string `koanf:"refresh_token_validity_in_days"` // accepted, never consumed
}

// Validity returns the configured token lifetime, zero when unparsable.
func (c TokenConfig) Validity() time.Duration {
	minutes, err := strconv.Atoi(strings.TrimSpace(c.TokenValidityInMinutes))
	if err != nil {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

// Roles is the role claim. It is always written as an array but also accepts
// the single-string form other issuers emit for one role.
type Roles []string

func (r *Roles) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*r = Roles{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("role claim: %w", err)
	}
	*r = many
	return nil
}

// Claims represents the JWT claims issued at login.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Roles Roles  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token together with its validity window.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs session tokens with HS256. It holds only read-only
// configuration and is safe for concurrent use.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	validity time.Duration
	clock    Clock
}

// NewIssuer builds an Issuer from cfg. The signing key is required.
func NewIssuer(cfg TokenConfig, clock Clock) (*Issuer, error) {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, ErrMissingSecret
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Issuer{
		key:      []byte(cfg.SigningKey),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		validity: cfg.Validity(),
		clock:    clock,
	}, nil
}

// Issue signs a token for identity. The clock is read exactly once.
func (i *Issuer) Issue(identity Identity) (IssuedToken, error) {
	issuedAt := i.clock.Now()
	expiresAt := issuedAt.Add(i.validity)

	claims := Claims{
		Email: identity.Email,
		Name:  identity.Name,
		Roles: identity.RoleSnapshot(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}
