package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"medsys.org/internal/obs"
	"medsys.org/internal/result"
)

const (
	unauthorizedKey     = "Unauthorized"
	unauthorizedMessage = "You cannot perform this action"
)

// respond renders o as its status code and envelope. It is the only place
// an Outcome becomes an HTTP response.
func respond[T any](w http.ResponseWriter, r *http.Request, o result.Outcome[T]) {
	obs.ObserveOutcome(operationOf(r), o.Kind.String())
	writeEnvelope(w, result.StatusFor(o.Kind), result.EnvelopeFor(o))
}

// respondOwned is respond with an ownership overlay: a Success whose payload
// the caller does not own becomes a 401 envelope. o itself is not altered.
func respondOwned[T any](w http.ResponseWriter, r *http.Request, o result.Outcome[T], owns func(T) bool) {
	if o.OK() && (owns == nil || !owns(o.Data)) {
		obs.ObserveOutcome(operationOf(r), unauthorizedKey)
		unauthorized(w, unauthorizedMessage)
		return
	}
	respond(w, r, o)
}

// respondError renders a collaborator failure or cancellation as a Failed
// envelope after logging it.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := "An unexpected error occurred"
	if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		msg = "The request was cancelled"
	} else {
		obs.LogError(r.Context(), a.logger.With(slog.String("request_id", RequestIDFromContext(r.Context()))), "request failed", err)
	}
	respond(w, r, result.Failedf[any]("%s", msg))
}

// unavailable answers Failed when the API was built without a collaborator.
func unavailable(w http.ResponseWriter, r *http.Request, what string) {
	respond(w, r, result.Failedf[any]("%s service is not available", what))
}

// badRequest renders b as a BadRequest envelope.
func badRequest(w http.ResponseWriter, b *result.Builder) {
	writeEnvelope(w, result.StatusFor(result.BadRequest), result.FailureEnvelope(b))
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusUnauthorized, result.FailureEnvelope(result.NewBuilder().Add(unauthorizedKey, msg)))
}

func writeEnvelope(w http.ResponseWriter, code int, env result.Envelope) {
	writeJSON(w, code, env)
}

func operationOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + obs.CanonicalPath(r.URL.Path)
}
