// Package grpcapi exposes medsysd over gRPC: the standard health service,
// channelz and reflection for operators, and the bearer-token authorizer
// applied to unary and streaming calls alike.
package grpcapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"medsys.org/internal/auth"
	"medsys.org/internal/obs"
)

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authorizer authenticates calls from the "authorization" metadata and
// applies the policy registered for the method. Keys are either a full
// method ("/pkg.Service/Method") or a whole service ("/pkg.Service/"); the
// full method wins. Public methods skip both steps; methods without a policy
// only need a valid token.
type Authorizer struct {
	validator TokenValidator
	policies  map[string]auth.Policy
	public    map[string]bool
}

func NewAuthorizer(validator TokenValidator, policies map[string]auth.Policy, public ...string) *Authorizer {
	a := &Authorizer{
		validator: validator,
		policies:  make(map[string]auth.Policy, len(policies)),
		public:    make(map[string]bool, len(public)),
	}
	for method, p := range policies {
		a.policies[method] = p
	}
	for _, m := range public {
		a.public[m] = true
	}
	return a
}

// serviceKey turns "/pkg.Service/Method" into "/pkg.Service/".
func serviceKey(fullMethod string) string {
	i := strings.LastIndexByte(fullMethod, '/')
	if i <= 0 {
		return fullMethod
	}
	return fullMethod[:i+1]
}

func (a *Authorizer) isPublic(fullMethod string) bool {
	return a.public[fullMethod] || a.public[serviceKey(fullMethod)]
}

func (a *Authorizer) policyFor(fullMethod string) (auth.Policy, bool) {
	if p, ok := a.policies[fullMethod]; ok {
		return p, true
	}
	p, ok := a.policies[serviceKey(fullMethod)]
	return p, ok
}

// authorize returns ctx carrying the caller, or an Unauthenticated status.
func (a *Authorizer) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	if a.isPublic(fullMethod) {
		return ctx, nil
	}
	if a.validator == nil {
		return nil, status.Error(codes.Unauthenticated, "authentication is not configured")
	}
	token, ok := bearerFromMetadata(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	claims, err := a.validator.Validate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	caller := auth.CallerFromClaims(claims)
	if policy, ok := a.policyFor(fullMethod); ok {
		decision := policy.Evaluate(caller.RoleSet())
		obs.ObserveDecision(decision.Granted)
		if !decision.Granted {
			return nil, status.Error(codes.Unauthenticated, "You cannot perform this action")
		}
	}
	return auth.ContextWithCaller(ctx, caller), nil
}

func (a *Authorizer) Unary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := a.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (a *Authorizer) Stream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := a.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &callerStream{ServerStream: ss, ctx: ctx})
}

// callerStream swaps in the context carrying the authorized caller.
type callerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *callerStream) Context() context.Context { return s.ctx }

// OutgoingBearer attaches token to ctx for a client call.
func OutgoingBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func bearerFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			if token := strings.TrimSpace(v[7:]); token != "" {
				return token, true
			}
		}
	}
	return "", false
}

// LoggingInterceptor logs one rpc_complete entry per unary call.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logRPC(ctx, logger, info.FullMethod, start, err)
		return resp, err
	}
}

// StreamLoggingInterceptor logs one rpc_complete entry when a stream ends.
func StreamLoggingInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logRPC(ss.Context(), logger, info.FullMethod, start, err)
		return err
	}
}

func logRPC(ctx context.Context, logger *slog.Logger, method string, start time.Time, err error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "rpc_complete",
		slog.String("method", method),
		slog.String("code", status.Code(err).String()),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
	)
}
