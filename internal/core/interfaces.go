package core

import (
	"context"

	"myomesh/internal/types"
)

// Authenticator resolves a bearer token to the calling Actor.
//
// Implementations return an AppError with auth_token_expired for expired
// tokens and auth_token_invalid for every other rejection.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
