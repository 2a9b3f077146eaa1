package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tradevault/internal/document/models"
	id "tradevault/pkg/domain"
)

const digestKeyPrefix = "doc:digest:"

// CachedStore is a read-through cache over another document store. Digest
// lookups are the hot path for duplicate detection and hash-based access, so
// they are served from Redis when possible. Writes invalidate both the old
// and new digest keys before hitting the inner store's result.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
}

func NewCached(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, client: client, ttl: ttl}
}

func (c *CachedStore) FindByDigest(ctx context.Context, digest id.Digest) (*models.Document, error) {
	key := digestKeyPrefix + string(digest)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var doc models.Document
		if unmarshalErr := json.Unmarshal(payload, &doc); unmarshalErr == nil {
			return &doc, nil
		}
		// Corrupt cache entry: fall through to the inner store and rewrite.
	} else if !errors.Is(err, redis.Nil) {
		// Cache unavailability must not break lookups.
		return c.Store.FindByDigest(ctx, digest)
	}

	doc, err := c.Store.FindByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	if payload, marshalErr := json.Marshal(doc); marshalErr == nil {
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	return doc, nil
}

func (c *CachedStore) Update(ctx context.Context, doc *models.Document) error {
	if prev, err := c.Store.FindByID(ctx, doc.ID); err == nil {
		_ = c.client.Del(ctx, digestKeyPrefix+string(prev.Digest)).Err()
	}
	_ = c.client.Del(ctx, digestKeyPrefix+string(doc.Digest)).Err()
	return c.Store.Update(ctx, doc)
}
