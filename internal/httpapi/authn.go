package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"medsys.org/internal/auth"
	"medsys.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth validates the bearer token and stores the caller in the request
// context. Requests without a valid token stop here with a 401 envelope.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.validator == nil {
			unauthorized(w, "authentication is not configured")
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		claims, err := a.validator.Validate(token)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithCaller(r.Context(), auth.CallerFromClaims(claims))))
	})
}

// CapabilityQuery answers which roles the current caller holds.
type CapabilityQuery func(ctx context.Context) (auth.RoleSet, bool)

// Authorize admits a request only when the caller holds every role the
// policy names. A nil query reads the caller stored by withAuth. Denials end
// the request with a 401 envelope.
func Authorize(policy auth.Policy, query CapabilityQuery) func(http.Handler) http.Handler {
	if query == nil {
		query = auth.RolesFromContext
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := query(r.Context())
			if !ok {
				obs.ObserveDecision(false)
				unauthorized(w, "authentication required")
				return
			}
			decision := policy.Evaluate(roles)
			obs.ObserveDecision(decision.Granted)
			if !decision.Granted {
				unauthorized(w, unauthorizedMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func callerID(ctx context.Context) string {
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return ""
	}
	return caller.UserID
}
