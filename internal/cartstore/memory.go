// Package cartstore provides cart.Store backends: an in-process map for
// single-instance deployments and Redis for shared state.
package cartstore

import (
	"context"
	"sync"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

// Memory is an in-process cart store. Carts are cloned on the way in and out
// so callers never share state through the map.
type Memory struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{carts: make(map[string]*cart.Cart)}
}

func (m *Memory) Get(_ context.Context, userID string) (*cart.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) Save(_ context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[c.UserID] = c.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[userID]; !ok {
		return cart.ErrNotFound
	}
	delete(m.carts, userID)
	return nil
}
