package engine

import (
	"context"
	"fmt"

	"github.com/coinarena/arenad/internal/domain"
)

// Issuer allocates collectible issuance ids. Ids are monotonic from 1 and
// never reused: an id allocated for a claim that later rolls back stays
// consumed. The collectible row itself is inserted by the claim transaction.
type Issuer struct {
	collectibles domain.CollectibleStore
}

// NewIssuer creates an Issuer over the given collectible store.
func NewIssuer(collectibles domain.CollectibleStore) *Issuer {
	return &Issuer{collectibles: collectibles}
}

// Allocate consumes and returns the next issuance id.
func (i *Issuer) Allocate(ctx context.Context) (int64, error) {
	id, err := i.collectibles.NextIssuanceID(ctx)
	if err != nil {
		return 0, fmt.Errorf("issuer: allocate: %w", err)
	}
	return id, nil
}
