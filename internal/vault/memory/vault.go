// Package memvault implements domain.AssetVault with in-process balances.
// It backs dev mode and the test suites. Units move between per-account
// balances and a per-asset custody bucket, so escrow solvency is observable
// without any chain connectivity.
package memvault

import (
	"context"
	"fmt"
	"sync"

	"github.com/coinarena/arenad/internal/domain"
)

// Vault tracks per-asset, per-account balances plus engine custody.
type Vault struct {
	mu       sync.Mutex
	balances map[string]map[string]int64
	custody  map[string]int64
}

// New creates an empty Vault.
func New() *Vault {
	return &Vault{
		balances: make(map[string]map[string]int64),
		custody:  make(map[string]int64),
	}
}

// Credit seeds an account balance. Used by dev mode and tests.
func (v *Vault) Credit(asset, account string, quantity int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[asset] == nil {
		v.balances[asset] = make(map[string]int64)
	}
	v.balances[asset][account] += quantity
}

// Balance returns an account's balance for an asset.
func (v *Vault) Balance(asset, account string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[asset][account]
}

// CustodyBalance returns the engine custody balance for an asset.
func (v *Vault) CustodyBalance(asset string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.custody[asset]
}

// TransferIn moves quantity units from the account into custody. An
// insufficient balance reports ErrTransferFailed and moves nothing.
func (v *Vault) TransferIn(ctx context.Context, asset, from string, quantity int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[asset][from] < quantity {
		return fmt.Errorf("memvault: transfer in %d %s from %s: insufficient balance: %w", quantity, asset, from, domain.ErrTransferFailed)
	}
	v.balances[asset][from] -= quantity
	v.custody[asset] += quantity
	return nil
}

// TransferOut moves quantity units from custody to the account. Custody is
// an omnibus pool: a single asset balance may go negative as long as the pool
// as a whole covers the movement, since winning-side payouts draw on both
// sides' escrow. An underfunded pool reports ErrTransferFailed and moves
// nothing.
func (v *Vault) TransferOut(ctx context.Context, asset, to string, quantity int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var pool int64
	for _, q := range v.custody {
		pool += q
	}
	if pool < quantity {
		return fmt.Errorf("memvault: transfer out %d %s to %s: insufficient custody: %w", quantity, asset, to, domain.ErrTransferFailed)
	}
	v.custody[asset] -= quantity
	if v.balances[asset] == nil {
		v.balances[asset] = make(map[string]int64)
	}
	v.balances[asset][to] += quantity
	return nil
}

// Compile-time interface check.
var _ domain.AssetVault = (*Vault)(nil)
