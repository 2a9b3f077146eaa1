package blobstore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradevault/pkg/platform/sentinel"
)

func TestLocalPlaceAndRetrieve(t *testing.T) {
	local := NewLocal(t.TempDir())
	ctx := context.Background()

	locator, err := local.Place(ctx, []byte("invoice bytes"), "invoice.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "local://"))
	assert.Contains(t, locator, "invoice.pdf")

	content, err := local.Retrieve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("invoice bytes"), content)
}

func TestLocalRetrieveMissing(t *testing.T) {
	local := NewLocal(t.TempDir())
	_, err := local.Retrieve(context.Background(), "local://does/not/exist.pdf")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestLocalRejectsForeignScheme(t *testing.T) {
	local := NewLocal(t.TempDir())
	_, err := local.Retrieve(context.Background(), "s3://bucket/key.pdf")
	assert.ErrorIs(t, err, sentinel.ErrUnsupportedScheme)
}

func TestLocalAcceptsBarePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("legacy"), 0o644))

	local := NewLocal(dir)
	content, err := local.Retrieve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy"), content)
}

type failingStore struct{}

func (failingStore) Place(context.Context, []byte, string) (string, error) {
	return "", errors.New("remote unavailable")
}

func (failingStore) Retrieve(context.Context, string) ([]byte, error) {
	return nil, sentinel.ErrUnsupportedScheme
}

func TestFallbackPlacement(t *testing.T) {
	local := NewLocal(t.TempDir())
	fb := NewFallback(failingStore{}, local, slog.Default())
	ctx := context.Background()

	locator, err := fb.Place(ctx, []byte("content"), "doc.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "local://"))

	// Retrieval dispatches past the primary that cannot resolve the scheme.
	content, err := fb.Retrieve(ctx, locator)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), content)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "s3", Scheme("s3://bucket/key"))
	assert.Equal(t, "local", Scheme("local://uploads/a.pdf"))
	assert.Equal(t, "", Scheme("uploads/a.pdf"))
}
