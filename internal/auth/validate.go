package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Validator checks signature and validity window of tokens produced by
// Issuer. Issuer and audience checks are off unless requested.
type Validator struct {
	key           []byte
	issuer        string
	audience      string
	checkIssuer   bool
	checkAudience bool
	clock         Clock
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithIssuerCheck rejects tokens whose iss differs from the configured issuer.
func WithIssuerCheck() ValidatorOption {
	return func(v *Validator) { v.checkIssuer = true }
}

// WithAudienceCheck rejects tokens that do not carry the configured audience.
func WithAudienceCheck() ValidatorOption {
	return func(v *Validator) { v.checkAudience = true }
}

// WithValidatorClock overrides the time source used for the validity window.
func WithValidatorClock(c Clock) ValidatorOption {
	return func(v *Validator) {
		if c != nil {
			v.clock = c
		}
	}
}

// NewValidator builds a Validator sharing the issuer's signing key.
func NewValidator(cfg TokenConfig, opts ...ValidatorOption) (*Validator, error) {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, ErrMissingSecret
	}
	v := &Validator{
		key:      []byte(cfg.SigningKey),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		clock:    SystemClock,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate verifies token and returns its claims. Any failure is reported as
// ErrInvalidToken. A token is valid on [iat, exp).
func (v *Validator) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.checkIssuer {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.checkAudience {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
