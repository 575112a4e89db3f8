package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TecharoHQ/maat/lib/store"
	"go.etcd.io/bbolt"
)

// cleanupInterval is how often expired records are swept from the database.
const cleanupInterval = 5 * time.Minute

// record is what is written for every key.
type record struct {
	Expiry time.Time `json:"expiry"`
	Data   []byte    `json:"data"`
}

func (r record) expired(now time.Time) bool {
	return now.After(r.Expiry)
}

// Store implements store.Interface backed by bbolt[1].
//
// Every key lives in a single bucket. Values are JSON records holding the
// expiry time and the raw data, so the cleanup sweep only decodes small
// documents. An expired record is treated as missing and removed by the next
// sweep or Delete.
//
// bbolt takes an exclusive file lock: only one maat process can use a given
// database at a time. Use the valkey backend to share answers.
//
// [1]: https://github.com/etcd-io/bbolt
type Store struct {
	bdb    *bbolt.DB
	bucket []byte
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil || bkt.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		return bkt.Delete([]byte(key))
	})
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var result []byte

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		raw := bkt.Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}

		// raw is only valid for the life of the transaction; Unmarshal copies.
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: %q: %w", store.ErrCantDecode, key, err)
		}

		if rec.expired(time.Now()) {
			return fmt.Errorf("%w: %q (expired)", store.ErrNotFound, key)
		}

		result = rec.Data
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	data, err := json.Marshal(record{
		Expiry: time.Now().Add(expiry),
		Data:   value,
	})
	if err != nil {
		return fmt.Errorf("%w: %q: %w", store.ErrCantEncode, key, err)
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("%w: %w: %q (create bucket)", store.ErrCantEncode, err, s.bucket)
		}

		if err := bkt.Put([]byte(key), data); err != nil {
			return fmt.Errorf("%w: %q: %w", store.ErrCantEncode, key, err)
		}

		return nil
	})
}

// cleanup deletes every expired record and returns how many it removed.
func (s *Store) cleanup() (int, error) {
	now := time.Now()
	var removed int

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return nil
		}

		var expired [][]byte
		if err := bkt.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				slog.Warn("bbolt cleanup found an undecodable record, removing it", "key", string(k), "err", err)
			} else if !rec.expired(now) {
				return nil
			}

			expired = append(expired, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}

		for _, k := range expired {
			if err := bkt.Delete(k); err != nil {
				return fmt.Errorf("can't delete %q: %w", string(k), err)
			}
			removed++
		}

		return nil
	})

	return removed, err
}

func (s *Store) cleanupThread(ctx context.Context) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.bdb.Close(); err != nil {
				slog.Error("can't close bbolt database", "err", err)
			}
			return
		case <-t.C:
			n, err := s.cleanup()
			if err != nil {
				slog.Error("error during bbolt cleanup", "err", err)
				continue
			}
			slog.Debug("bbolt cleanup finished", "removed", n)
		}
	}
}
