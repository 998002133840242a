package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisLinkRepository stores each link as a JSON document under <prefix>:link:<code>,
// reserves ids under <prefix>:id:<id> and keeps insertion order in the list <prefix>:links.
// Several service instances may share one database.
type RedisLinkRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisLinkRepository wraps an existing client. An empty prefix defaults to "shortlinks".
func NewRedisLinkRepository(client *redis.Client, prefix string) *RedisLinkRepository {
	if prefix == "" {
		prefix = "shortlinks"
	}
	return &RedisLinkRepository{client: client, prefix: prefix}
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisLinkRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, customerrors.StoreFailure("connect redis", err)
	}
	return NewRedisLinkRepository(client, prefix), nil
}

func (r *RedisLinkRepository) linkKey(code string) string {
	return r.prefix + ":link:" + code
}

func (r *RedisLinkRepository) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func (r *RedisLinkRepository) indexKey() string {
	return r.prefix + ":links"
}

// Insert relies on SETNX so two instances can never both claim a code or an id.
// Parameters:
//   - link: the record to persist
//
// Returns:
//   - error: customerrors.ErrDuplicateCode, customerrors.ErrDuplicateID or a store failure
func (r *RedisLinkRepository) Insert(ctx context.Context, link *models.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode link %q: %w", link.Code, err)
	}

	ok, err := r.client.SetNX(ctx, r.linkKey(link.Code), data, 0).Result()
	if err != nil {
		return customerrors.StoreFailure("insert link", err)
	}
	if !ok {
		return fmt.Errorf("insert %q: %w", link.Code, customerrors.ErrDuplicateCode)
	}

	ok, err = r.client.SetNX(ctx, r.idKey(link.ID), link.Code, 0).Result()
	if err != nil || !ok {
		// release the code reservation
		_ = r.client.Del(ctx, r.linkKey(link.Code)).Err()
		if err != nil {
			return customerrors.StoreFailure("reserve link id", err)
		}
		return fmt.Errorf("insert %q (id %s): %w", link.Code, link.ID, customerrors.ErrDuplicateID)
	}

	if err := r.client.RPush(ctx, r.indexKey(), link.Code).Err(); err != nil {
		_ = r.client.Del(ctx, r.linkKey(link.Code), r.idKey(link.ID)).Err()
		return customerrors.StoreFailure("index link", err)
	}
	return nil
}

// FindByCode decodes the document stored for code.
func (r *RedisLinkRepository) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	data, err := r.client.Get(ctx, r.linkKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, customerrors.StoreFailure("find link", err)
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("decode link %q: %w", code, err)
	}
	return &link, nil
}

// updateRetries bounds optimistic retries when other writers keep touching the key.
const updateRetries = 100

// Update runs apply on the document read inside a WATCH/MULTI transaction. When another
// writer commits first, EXEC fails and apply is re-run on the fresh document, so no
// concurrent increment is lost. Code and destination are never rewritten.
func (r *RedisLinkRepository) Update(ctx context.Context, code string, apply func(*models.Link)) error {
	key := r.linkKey(code)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return customerrors.ErrShortCodeNotFound
			}
			return customerrors.StoreFailure("update link", err)
		}

		var link models.Link
		if err := json.Unmarshal(data, &link); err != nil {
			return fmt.Errorf("decode link %q: %w", code, err)
		}
		mutateAnalytics(&link, apply)

		next, err := json.Marshal(&link)
		if err != nil {
			return fmt.Errorf("encode link %q: %w", code, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, customerrors.ErrShortCodeNotFound) && !errors.Is(err, customerrors.ErrStoreUnavailable) {
			return customerrors.StoreFailure("update link", err)
		}
		return err
	}
	return customerrors.StoreFailure("update link", fmt.Errorf("key %s kept changing after %d attempts", key, updateRetries))
}

// ListAll returns every record in insertion order. Index entries whose document is
// missing are skipped.
func (r *RedisLinkRepository) ListAll(ctx context.Context) ([]models.Link, error) {
	codes, err := r.client.LRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, customerrors.StoreFailure("list links", err)
	}
	if len(codes) == 0 {
		return []models.Link{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = r.linkKey(code)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, customerrors.StoreFailure("list links", err)
	}

	links := make([]models.Link, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var link models.Link
		if err := json.Unmarshal([]byte(raw), &link); err != nil {
			return nil, fmt.Errorf("decode link %q: %w", codes[i], err)
		}
		links = append(links, link)
	}
	return links, nil
}

// Close closes the underlying client.
func (r *RedisLinkRepository) Close() error {
	return r.client.Close()
}

var _ LinkRepository = (*RedisLinkRepository)(nil)
