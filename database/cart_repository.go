package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// ErrVersionConflict is returned when a save loses the optimistic
// concurrency check: the stored cart version no longer matches the version
// the mutation was computed against.
var ErrVersionConflict = errors.New("cart version conflict")

// CartRepository owns persistence of carts. Get returns (nil, nil) when no
// cart exists; callers treat that as an empty cart.
type CartRepository interface {
	Get(ctx context.Context, cartKey string) (*models.Cart, error)
	// Save persists the cart if and only if the stored version still equals
	// expectedVersion (0 for a cart that does not exist yet). The cart passed
	// in already carries its new, incremented version.
	Save(ctx context.Context, cart *models.Cart, expectedVersion int64) error
	Delete(ctx context.Context, cartKey string) error
}

// RedisCartRepository stores each cart as a JSON blob under a per-customer
// key, using WATCH for the compare-and-swap on the version field.
type RedisCartRepository struct {
	client       *redis.Client
	ttl          time.Duration
	convertedTTL time.Duration
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{
		client:       client,
		ttl:          ttl,
		convertedTTL: time.Hour, // converted carts linger briefly as tombstones
	}
}

func (r *RedisCartRepository) getKey(cartKey string) string {
	return fmt.Sprintf("cart:%s", cartKey)
}

func (r *RedisCartRepository) Get(ctx context.Context, cartKey string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.getKey(cartKey)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	key := r.getKey(cart.CartKey)
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	ttl := r.ttl
	if cart.Status == models.CartStatusConverted {
		ttl = r.convertedTTL
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Result()
		switch {
		case err == redis.Nil:
			if expectedVersion != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var current models.Cart
			if err := json.Unmarshal([]byte(stored), &current); err != nil {
				return err
			}
			if current.Version != expectedVersion {
				return ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	if err == redis.TxFailedErr {
		// Another writer touched the key between WATCH and EXEC.
		return ErrVersionConflict
	}
	return err
}

func (r *RedisCartRepository) Delete(ctx context.Context, cartKey string) error {
	return r.client.Del(ctx, r.getKey(cartKey)).Err()
}
