package domain

import "context"

// AssetVault is the opaque asset-movement capability. TransferIn moves units
// from a participant into engine custody; TransferOut pays units back out.
// Implementations report movement failures by wrapping ErrTransferFailed so
// callers can distinguish them from infrastructure errors.
type AssetVault interface {
	TransferIn(ctx context.Context, asset, from string, quantity int64) error
	TransferOut(ctx context.Context, asset, to string, quantity int64) error
}

// MetadataResolver maps a minted collectible to its artwork/metadata URI.
// Resolution is pure and may happen lazily on read; it is not required at
// mint time.
type MetadataResolver interface {
	Resolve(ctx context.Context, collectibleID int64, tier RarityTier) (string, error)
}
