package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tradevault/pkg/platform/sentinel"
)

const localScheme = "local://"

// Local stores blobs on the filesystem under a root directory. It is both the
// development store and the fallback target when remote placement fails.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	if root == "" {
		root = "uploads"
	}
	return &Local{root: root}
}

func (l *Local) Place(_ context.Context, content []byte, suggestedName string) (string, error) {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s", uuid.New(), filepath.Base(suggestedName))
	path := filepath.Join(l.root, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return localScheme + path, nil
}

func (l *Local) Retrieve(_ context.Context, locator string) ([]byte, error) {
	path, ok := strings.CutPrefix(locator, localScheme)
	if !ok {
		// Bare relative paths are treated as local for compatibility with
		// records written before locators carried schemes.
		if Scheme(locator) != "" {
			return nil, sentinel.ErrUnsupportedScheme
		}
		path = locator
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return content, nil
}
