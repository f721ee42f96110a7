// Package httpapi is the HTTP boundary of medsysd. Every handler ends in
// respond or respondOwned, which turn an Outcome into a status code and a
// result envelope.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"medsys.org/internal/accounts"
	"medsys.org/internal/auth"
	"medsys.org/internal/obs"
	"medsys.org/internal/records"
	"medsys.org/internal/result"
)

// Authenticator runs the login flow.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (result.Outcome[auth.Session], error)
}

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

type AccountService interface {
	Profile(ctx context.Context, userID string) (result.Outcome[accounts.Profile], error)
	UpdateRoles(ctx context.Context, userID string, roles []string) (result.Outcome[string], error)
	CreateRole(ctx context.Context, name string) (result.Outcome[string], error)
	ListRoles(ctx context.Context) (result.Outcome[[]accounts.Role], error)
	CreateMember(ctx context.Context, kind accounts.MemberKind, in accounts.NewAccount) (result.Outcome[accounts.MemberProfile], error)
	Member(ctx context.Context, kind accounts.MemberKind, userID string) (result.Outcome[accounts.MemberProfile], error)
}

type RecordService interface {
	Get(ctx context.Context, id string) (result.Outcome[records.Record], error)
	Create(ctx context.Context, officerID string, in records.NewRecord) (result.Outcome[records.Record], error)
}

// Pinger reports whether dependencies can serve traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	version   string
	login     Authenticator
	validator TokenValidator
	accounts  AccountService
	records   RecordService
	ready     Pinger

	rateBurst   int
	ratePerSec  float64
	maxBody     int64
	corsOrigins []string
	proxies     []netip.Prefix
	limiter     *ipLimiter
}

// Option configures API.
type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithVersion(v string) Option { return func(a *API) { a.version = v } }

func WithAuthenticator(l Authenticator) Option { return func(a *API) { a.login = l } }

func WithTokenValidator(v TokenValidator) Option { return func(a *API) { a.validator = v } }

func WithAccounts(s AccountService) Option { return func(a *API) { a.accounts = s } }

func WithRecords(s RecordService) Option { return func(a *API) { a.records = s } }

func WithReadiness(p Pinger) Option { return func(a *API) { a.ready = p } }

// WithLoginRate sets the per-client token bucket for the login route.
func WithLoginRate(perSecond float64, burst int) Option {
	return func(a *API) {
		if perSecond > 0 && burst > 0 {
			a.ratePerSec = perSecond
			a.rateBurst = burst
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithCORSOrigins allows browser calls from the given origins in addition to
// localhost.
func WithCORSOrigins(origins ...string) Option {
	return func(a *API) { a.corsOrigins = append(a.corsOrigins, origins...) }
}

// WithTrustedProxies lets the login rate limit key on X-Forwarded-For when
// the request arrives from one of prefixes.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(a *API) { a.proxies = append(a.proxies[:0], prefixes...) }
}

func New(opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		logger:     slog.Default(),
		version:    "dev",
		rateBurst:  10,
		ratePerSec: 5,
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.limiter = newIPLimiter(a.ratePerSec, a.rateBurst, a.proxies...)
	a.routes()
	return a
}

func (a *API) routes() {
	admin := auth.ParsePolicy(auth.RoleAdmin)
	officer := auth.ParsePolicy(auth.RoleMedicalOfficer)
	patientProvisioner := auth.ParsePolicy("Admin,Role1,Role2")
	officerProvisioner := auth.ParsePolicy("Admin,Role1")

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.Handle("POST /api/authentication/login", RateLimit(a.limiter, http.HandlerFunc(a.handleLogin)))
	a.mux.Handle("GET /api/users/get-logged-in-user", a.withAuth(http.HandlerFunc(a.handleLoggedInUser)))
	a.mux.Handle("PATCH /api/users/{userId}/update-roles", a.withAuth(Authorize(admin, nil)(http.HandlerFunc(a.handleUpdateRoles))))
	a.mux.Handle("POST /api/roles/create", a.withAuth(Authorize(admin, nil)(http.HandlerFunc(a.handleCreateRole))))
	a.mux.HandleFunc("GET /api/roles/list-all", a.handleListRoles)
	a.mux.Handle("POST /api/records/create", a.withAuth(Authorize(officer, nil)(http.HandlerFunc(a.handleCreateRecord))))
	a.mux.Handle("GET /api/records/get-by-id", a.withAuth(http.HandlerFunc(a.handleGetRecord)))

	a.mux.Handle("POST /api/patients/create", a.withAuth(Authorize(patientProvisioner, nil)(a.handleCreateMember(accounts.KindPatient))))
	a.mux.Handle("GET /api/patients/get-by-id", a.withAuth(a.handleGetMember(accounts.KindPatient)))
	a.mux.Handle("POST /api/medicalofficers/create", a.withAuth(Authorize(officerProvisioner, nil)(a.handleCreateMember(accounts.KindMedicalOfficer))))
	a.mux.Handle("GET /api/medicalofficers/get-by-id", a.withAuth(a.handleGetMember(accounts.KindMedicalOfficer)))
}

// Handler returns the root handler with the middleware chain applied.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, a.maxBody)
	h = obs.Instrument(h)
	h = CORS(h, a.corsOrigins...)
	h = LoggingJSON(a.logger)(h)
	h = Recover(a.logger)(h)
	h = RequestID(h)
	return h
}

// Close stops background work owned by the API.
func (a *API) Close() {
	a.limiter.Stop()
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "medsysd",
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
