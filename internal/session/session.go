// Package session tracks per-login state: the cashier's cart and their
// selected analytics range. Sessions live in memory, a restart logs everyone
// out.
package session

import (
	"fmt"
	"sync"
	"time"

	"coffeeshop/backend/internal/cart"
	"coffeeshop/backend/internal/store"
	"coffeeshop/backend/internal/xid"
)

type Session struct {
	ID        string
	Username  string
	Role      string
	Cart      *cart.Cart
	CreatedAt time.Time

	mu         sync.Mutex
	trendRange int
}

// TrendRange returns the session's selected trend window, 7 or 30 days.
func (s *Session) TrendRange() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trendRange
}

func (s *Session) SetTrendRange(days int) error {
	if days != 7 && days != 30 {
		return fmt.Errorf("trend range must be 7 or 30 days")
	}
	s.mu.Lock()
	s.trendRange = days
	s.mu.Unlock()
	return nil
}

type Manager struct {
	catalog store.Catalog

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(catalog store.Catalog) *Manager {
	return &Manager{
		catalog:  catalog,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create(username string, role string) *Session {
	sess := &Session{
		ID:         xid.New("session"),
		Username:   username,
		Role:       role,
		Cart:       cart.New(m.catalog),
		CreatedAt:  time.Now().UTC(),
		trendRange: 7,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// End removes the session, discarding any in-progress cart.
func (m *Manager) End(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		sess.Cart.Clear()
	}
}
