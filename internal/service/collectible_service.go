package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinarena/arenad/internal/domain"
)

// CollectibleView is a collectible projected for external consumption: the
// stored row plus its derived rarity and, when resolvable, a metadata URI.
type CollectibleView struct {
	domain.Collectible
	Rarity      domain.RarityTier `json:"rarity"`
	MetadataURI string            `json:"metadata_uri,omitempty"`
}

// CollectibleService reads minted collectibles and resolves their artwork
// metadata lazily.
type CollectibleService struct {
	collectibles domain.CollectibleStore
	resolver     domain.MetadataResolver // optional
	logger       *slog.Logger
}

// NewCollectibleService creates a CollectibleService. resolver may be nil.
func NewCollectibleService(
	collectibles domain.CollectibleStore,
	resolver domain.MetadataResolver,
	logger *slog.Logger,
) *CollectibleService {
	return &CollectibleService{
		collectibles: collectibles,
		resolver:     resolver,
		logger:       logger,
	}
}

// GetCollectible retrieves a collectible by issuance id.
func (s *CollectibleService) GetCollectible(ctx context.Context, id int64) (CollectibleView, error) {
	c, err := s.collectibles.Get(ctx, id)
	if err != nil {
		return CollectibleView{}, fmt.Errorf("collectible_service: get %d: %w", id, err)
	}
	return s.view(ctx, c), nil
}

// ListByOwner returns the collectibles held by one owner, newest first.
func (s *CollectibleService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]CollectibleView, error) {
	owned, err := s.collectibles.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("collectible_service: list by owner %s: %w", owner, err)
	}

	views := make([]CollectibleView, len(owned))
	for i, c := range owned {
		views[i] = s.view(ctx, c)
	}
	return views, nil
}

// Count returns the number of minted collectibles.
func (s *CollectibleService) Count(ctx context.Context) (int64, error) {
	count, err := s.collectibles.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("collectible_service: count: %w", err)
	}
	return count, nil
}

func (s *CollectibleService) view(ctx context.Context, c domain.Collectible) CollectibleView {
	v := CollectibleView{Collectible: c, Rarity: c.Rarity()}
	if s.resolver == nil {
		return v
	}

	uri, err := s.resolver.Resolve(ctx, c.ID, v.Rarity)
	if err != nil {
		// A missing artwork object is expected for fresh mints; anything
		// else is worth a warning.
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "collectible_service: metadata resolve failed",
				slog.Int64("collectible_id", c.ID),
				slog.String("error", err.Error()),
			)
		}
		return v
	}
	v.MetadataURI = uri
	return v
}
