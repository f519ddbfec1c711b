package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/logging"
)

// tokenCacheTTL bounds how long a verified token is trusted without
// re-checking its signature and expiry
const tokenCacheTTL = 5 * time.Minute

// Principal is the authenticated caller
type Principal struct {
	ID    string
	Name  string
	Roles []string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Auth verifies bearer JWTs issued by the external auth service
type Auth struct {
	authenticator auth.Authenticator
	secret        []byte
}

// NewAuth sets up go-guardian with a cached bearer strategy that validates
// HS256 tokens signed with secret. An empty secret disables authentication.
func NewAuth(ctx context.Context, secret string) *Auth {
	a := &Auth{secret: []byte(secret)}
	if secret == "" {
		zap.S().Warn("JWT_SECRET is not set, API authentication is disabled")
		return a
	}
	cache := store.NewFIFO(ctx, tokenCacheTTL)
	a.authenticator = auth.New()
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, bearer.New(a.validateToken, cache))
	return a
}

// Middleware rejects requests without a valid bearer token with 401
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.authenticator == nil {
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Name: "anonymous"})))
			return
		}
		info, err := a.authenticator.Authenticate(r)
		if err != nil {
			logging.FromContext(r.Context()).Warnw("unauthorized", "url", r.URL.String(), "error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("invalid or missing token"))
			return
		}
		p := Principal{ID: info.ID(), Name: info.UserName(), Roles: info.Groups()}
		ctx := WithPrincipal(r.Context(), p)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("userId", p.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// QueryTokenMiddleware copies a ?token= query parameter into the
// Authorization header. Browsers cannot set headers on websocket upgrades.
func QueryTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) validateToken(_ context.Context, _ *http.Request, tokenString string) (auth.Info, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no subject")
	}
	name, _ := claims["email"].(string)
	if name == "" {
		name, _ = claims["name"].(string)
	}
	var roles []string
	if role, ok := claims["role"].(string); ok && role != "" {
		roles = append(roles, role)
	}
	return auth.NewDefaultUser(name, sub, roles, nil), nil
}
