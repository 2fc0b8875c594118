// Package auth verifies the bearer tokens presented to the API.
//
// Tokens are HS256 JWTs minted by the scheduling app's identity provider.
// The subject claim is the caller's user id; role and organization are
// always re-read from the users table, never trusted from the token.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"myomesh/internal/config"
	"myomesh/internal/types"
)

// clockSkew is the leeway applied to exp, nbf and iat checks.
const clockSkew = 30 * time.Second

// TokenVerifier validates signed bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	clock  types.Clock
}

// NewTokenVerifier creates a verifier from the auth configuration. The
// signing secret is required.
func NewTokenVerifier(cfg config.AuthConfig, clock types.Clock) (*TokenVerifier, error) {
	if cfg.JWTSecret.Empty() {
		return nil, errors.New("auth: JWT signing secret is not configured")
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &TokenVerifier{
		secret: []byte(cfg.JWTSecret.Unmask()),
		issuer: cfg.Issuer,
		clock:  clock,
	}, nil
}

// ResolveToken parses and validates token and returns the calling Actor.
// Expired tokens yield auth_token_expired; every other failure yields
// auth_token_invalid.
func (v *TokenVerifier) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "Authentication token has expired", err)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid authentication token", err)
	}
	if claims.Subject == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid authentication token", nil)
	}

	return &types.Actor{UserID: claims.Subject, Subject: claims.Subject}, nil
}
