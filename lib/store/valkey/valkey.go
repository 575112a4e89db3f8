package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TecharoHQ/maat/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

// Store keeps answers in a valkey (or redis) server so several maat processes
// can share them. Expiry is delegated to the server.
type Store struct {
	rdb    *valkey.Client
	prefix string
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.rdb.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("can't delete %q from valkey: %w", key, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, valkey.Nil) {
			return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		return nil, fmt.Errorf("can't fetch %q from valkey: %w", key, err)
	}

	return result, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, expiry).Err(); err != nil {
		return fmt.Errorf("can't set %q in valkey: %w", key, err)
	}

	return nil
}
