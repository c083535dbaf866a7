package metadata_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/metadata"
)

// stubReader answers Exists from a fixed set of paths.
type stubReader struct {
	present map[string]bool
	err     error
}

func (s *stubReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (s *stubReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	return nil, nil
}

func (s *stubReader) Exists(ctx context.Context, path string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.present[path], nil
}

func TestResolveExpandsTemplate(t *testing.T) {
	t.Parallel()

	r := metadata.NewResolver("https://cdn.example/arena", "", nil)

	uri, err := r.Resolve(context.Background(), 1011, domain.RarityEpic)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/arena/collectibles/epic/1011.json", uri)
}

func TestResolveCustomTemplateAndNoBase(t *testing.T) {
	t.Parallel()

	r := metadata.NewResolver("", "art/{id}-{tier}.png", nil)

	uri, err := r.Resolve(context.Background(), 7, domain.RarityCommon)
	require.NoError(t, err)
	assert.Equal(t, "art/7-common.png", uri)
}

func TestResolveTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	r := metadata.NewResolver("https://cdn.example/", "", nil)

	uri, err := r.Resolve(context.Background(), 1, domain.RarityVictoryChampion)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/collectibles/victory_champion/1.json", uri)
}

func TestResolveVerifiesExistence(t *testing.T) {
	t.Parallel()

	reader := &stubReader{present: map[string]bool{
		"collectibles/rare/42.json": true,
	}}
	r := metadata.NewResolver("https://cdn.example", "", reader)

	uri, err := r.Resolve(context.Background(), 42, domain.RarityRare)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/collectibles/rare/42.json", uri)

	_, err = r.Resolve(context.Background(), 43, domain.RarityRare)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolvePropagatesReaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("s3 unreachable")
	r := metadata.NewResolver("", "", &stubReader{err: boom})

	_, err := r.Resolve(context.Background(), 1, domain.RarityCommon)
	assert.ErrorIs(t, err, boom)
}
