// Package auth verifies HS256 bearer tokens and exposes the caller to the
// application layer through ports.AuthContext.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/response"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type ctxKey struct{}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

func NewAuthenticator(secret, issuer string, ttl time.Duration, log *logger.Logger) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// IssueToken signs a token for subject with the given role.
func (a *Authenticator) IssueToken(subject, role string) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenString string) (*user.Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domainErrors.ErrUnauthorized
	}
	return &user.Caller{ID: claims.Subject, Role: claims.Role}, nil
}

// Middleware attaches the bearer token's caller to the request context.
// Requests without an Authorization header pass through anonymously; a
// malformed or invalid token is rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
			response.WriteDomainError(w, domainErrors.ErrUnauthorized, a.log)
			return
		}

		caller, err := a.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			a.log.Warn("Rejected bearer token", "error", err, "path", r.URL.Path)
			response.WriteDomainError(w, domainErrors.ErrUnauthorized, a.log)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func WithCaller(ctx context.Context, caller *user.Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

// ContextAuth reads the caller placed in the context by Middleware.
type ContextAuth struct{}

func (ContextAuth) Caller(ctx context.Context) (*user.Caller, error) {
	caller, ok := ctx.Value(ctxKey{}).(*user.Caller)
	if !ok || caller == nil {
		return nil, domainErrors.ErrUnauthorized
	}
	return caller, nil
}
