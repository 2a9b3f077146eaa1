package blobstore

import (
	"context"
	"errors"
	"log/slog"

	"tradevault/pkg/platform/sentinel"
)

// Fallback tries the primary store for placement and falls back to the
// secondary when the primary fails, so a storage outage never aborts an
// upload. Retrieval dispatches on the locator scheme: whichever member
// recognizes the locator serves it.
type Fallback struct {
	primary   Store
	secondary Store
	log       *slog.Logger
}

func NewFallback(primary, secondary Store, log *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

func (f *Fallback) Place(ctx context.Context, content []byte, suggestedName string) (string, error) {
	locator, err := f.primary.Place(ctx, content, suggestedName)
	if err == nil {
		return locator, nil
	}
	f.log.Warn("primary blob placement failed, falling back",
		"name", suggestedName, "error", err)
	return f.secondary.Place(ctx, content, suggestedName)
}

func (f *Fallback) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	content, err := f.primary.Retrieve(ctx, locator)
	if errors.Is(err, sentinel.ErrUnsupportedScheme) {
		return f.secondary.Retrieve(ctx, locator)
	}
	return content, err
}
