// Package blobstore is the byte-storage collaborator behind the document
// registry: place bytes, get back a locator; hand a locator back, get bytes.
// Locators are scheme-prefixed (s3://bucket/key, local://path) so the
// integrity engine can tell an unreachable blob from a scheme it cannot
// resolve in this deployment.
package blobstore

import (
	"context"
	"strings"
)

// Store places and retrieves raw document bytes.
type Store interface {
	// Place stores content and returns its locator. Implementations may fail
	// with any error; callers decide whether a fallback applies.
	Place(ctx context.Context, content []byte, suggestedName string) (string, error)
	// Retrieve loads the bytes behind a locator. It returns
	// sentinel.ErrUnsupportedScheme for locators this store cannot resolve
	// and sentinel.ErrNotFound when the blob is gone.
	Retrieve(ctx context.Context, locator string) ([]byte, error)
}

// Scheme extracts the locator scheme ("s3", "local"); empty when the locator
// carries no scheme prefix.
func Scheme(locator string) string {
	i := strings.Index(locator, "://")
	if i < 0 {
		return ""
	}
	return locator[:i]
}
