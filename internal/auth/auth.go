// Package auth resolves the acting user from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/repository"
)

// ErrUnauthenticated indicates a missing, malformed, expired or unknown token.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserLookup finds users by login.
type UserLookup interface {
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

// Resolver verifies HS256 tokens whose subject is a user login.
type Resolver struct {
	secret []byte
	users  UserLookup
	now    func() time.Time
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(secret string, users UserLookup, opts ...Option) *Resolver {
	r := &Resolver{secret: []byte(secret), users: users, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromHeader resolves the value of an Authorization header.
func (r *Resolver) FromHeader(ctx context.Context, header string) (*domain.User, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("%w: bearer token required", ErrUnauthenticated)
	}
	return r.Resolve(ctx, strings.TrimSpace(token))
}

// Resolve verifies token and loads the user named by its subject.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if len(r.secret) == 0 {
		return nil, fmt.Errorf("%w: token verification is not configured", ErrUnauthenticated)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrUnauthenticated)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, describeJWTError(err))
	}

	login := strings.TrimSpace(claims.Subject)
	if login == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	user, err := r.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %q", ErrUnauthenticated, login)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// Issue signs a token for login, valid for ttl from now.
func Issue(secret, login string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   login,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func describeJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token is expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "token is not valid yet"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "token signature is invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token algorithm is not accepted"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token is malformed"
	}
	return "token is invalid"
}
