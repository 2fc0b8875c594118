package core

import (
	"context"
	"sync"

	"myomesh/internal/types"
)

// MockAuthenticator implements Authenticator for tests in this and the
// handler packages.
//
//	mock := &MockAuthenticator{Actor: &types.Actor{UserID: "user-1"}}
//	mock := &MockAuthenticator{Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid token", nil)}
type MockAuthenticator struct {
	// Actor is returned on success. If nil and Err is nil, ResolveToken returns (nil, nil).
	Actor *types.Actor
	// Err takes precedence over Actor.
	Err error

	mu sync.Mutex
	// Calls records every token passed to ResolveToken.
	Calls []string
}

// ResolveToken records the token and returns Err or Actor.
func (m *MockAuthenticator) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}
