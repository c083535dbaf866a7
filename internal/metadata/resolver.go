// Package metadata resolves collectible artwork URIs. Resolution is pure and
// lazy: nothing is rendered or fetched at mint time, the URI is derived from
// the issuance id and rarity tier when a client asks for it.
package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/coinarena/arenad/internal/domain"
)

// DefaultTemplate is used when no template is configured. Placeholders:
// {id} is the issuance id, {tier} the rarity tier name.
const DefaultTemplate = "collectibles/{tier}/{id}.json"

// Resolver implements domain.MetadataResolver from a URI template, optionally
// checking object existence through a BlobReader.
type Resolver struct {
	baseURL  string
	template string
	reader   domain.BlobReader // optional
}

// NewResolver creates a Resolver. baseURL is prepended to the expanded
// template; reader may be nil, in which case existence is not verified.
func NewResolver(baseURL, template string, reader domain.BlobReader) *Resolver {
	if template == "" {
		template = DefaultTemplate
	}
	return &Resolver{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		template: template,
		reader:   reader,
	}
}

// Resolve returns the metadata URI for a collectible. When a reader is
// configured and the object is missing, it returns ErrNotFound so callers
// can fall back to a tier-level default.
func (r *Resolver) Resolve(ctx context.Context, collectibleID int64, tier domain.RarityTier) (string, error) {
	path := strings.NewReplacer(
		"{id}", strconv.FormatInt(collectibleID, 10),
		"{tier}", string(tier),
	).Replace(r.template)

	if r.reader != nil {
		ok, err := r.reader.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("metadata: resolve %d: %w", collectibleID, err)
		}
		if !ok {
			return "", fmt.Errorf("metadata: resolve %d: %w", collectibleID, domain.ErrNotFound)
		}
	}

	if r.baseURL == "" {
		return path, nil
	}
	return r.baseURL + "/" + path, nil
}

// Compile-time interface check.
var _ domain.MetadataResolver = (*Resolver)(nil)
