// Package economy provides the player credit/resource ledger. A ledger is
// shared across all of a player's planets, so check-and-deduct must be a
// single atomic step to prevent overspend from racing upgrade requests.
package economy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when any cost component exceeds the
// player's holdings. Nothing is deducted.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Cost is a bundle of credits and resources to deduct or hold.
type Cost struct {
	Credits   int64 `json:"credits"`
	Fuel      int64 `json:"fuel"`
	Organics  int64 `json:"organics"`
	Equipment int64 `json:"equipment"`
}

// IsZero reports whether the cost has no components.
func (c Cost) IsZero() bool {
	return c == Cost{}
}

// Covers reports whether holdings h can pay cost c in full.
func (h Cost) Covers(c Cost) bool {
	return h.Credits >= c.Credits && h.Fuel >= c.Fuel &&
		h.Organics >= c.Organics && h.Equipment >= c.Equipment
}

// Sub returns h minus c.
func (h Cost) Sub(c Cost) Cost {
	return Cost{
		Credits:   h.Credits - c.Credits,
		Fuel:      h.Fuel - c.Fuel,
		Organics:  h.Organics - c.Organics,
		Equipment: h.Equipment - c.Equipment,
	}
}

// Add returns h plus c.
func (h Cost) Add(c Cost) Cost {
	return Cost{
		Credits:   h.Credits + c.Credits,
		Fuel:      h.Fuel + c.Fuel,
		Organics:  h.Organics + c.Organics,
		Equipment: h.Equipment + c.Equipment,
	}
}

// Ledger is the external economy collaborator. TryDeduct is all-or-nothing:
// either the full cost comes out of the player's holdings or nothing does.
type Ledger interface {
	TryDeduct(ctx context.Context, playerID string, cost Cost) error
	Credit(ctx context.Context, playerID string, amount Cost) error
	Balance(ctx context.Context, playerID string) (Cost, error)
}

// MemoryLedger is an in-process ledger for tests and single-node runs.
type MemoryLedger struct {
	mu       sync.Mutex
	holdings map[string]Cost
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{holdings: make(map[string]Cost)}
}

// TryDeduct atomically checks and removes the full cost.
func (l *MemoryLedger) TryDeduct(_ context.Context, playerID string, cost Cost) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.holdings[playerID]
	if !h.Covers(cost) {
		return fmt.Errorf("player %s: %w", playerID, ErrInsufficientFunds)
	}
	l.holdings[playerID] = h.Sub(cost)
	return nil
}

// Credit adds to the player's holdings.
func (l *MemoryLedger) Credit(_ context.Context, playerID string, amount Cost) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holdings[playerID] = l.holdings[playerID].Add(amount)
	return nil
}

// Balance returns the player's current holdings.
func (l *MemoryLedger) Balance(_ context.Context, playerID string) (Cost, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdings[playerID], nil
}
