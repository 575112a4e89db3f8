package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TecharoHQ/maat/lib/store"
	"go.etcd.io/bbolt"
)

// DefaultBucket holds answers when Config.Bucket is empty.
const DefaultBucket = "answers"

var (
	ErrMissingPath     = errors.New("bbolt: path is missing from config")
	ErrCantWriteToPath = errors.New("bbolt: can't write to path")
)

func init() {
	store.Register("bbolt", Factory{})
}

// Factory builds bbolt backed stores from JSON parameters.
type Factory struct{}

// Build opens the database named in the Config. The database is closed when
// ctx is done.
func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parse(data)
	if err != nil {
		return nil, err
	}

	bdb, err := bbolt.Open(config.Path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt database %s: %w", config.Path, err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	result := &Store{
		bdb:    bdb,
		bucket: []byte(bucket),
	}

	go result.cleanupThread(ctx)

	return result, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parse(data)
	return err
}

func parse(data json.RawMessage) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return config, nil
}

// Config is the bbolt backend configuration.
type Config struct {
	// Path is the database file. Its folder must be writable.
	Path string `json:"path"`

	// Bucket is the bucket answers are kept in.
	Bucket string `json:"bucket,omitempty"`
}

func (c Config) Valid() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, ErrMissingPath)
	} else {
		probe := filepath.Join(filepath.Dir(c.Path), ".maat-write-test")
		if err := os.WriteFile(probe, nil, 0600); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrCantWriteToPath, err))
		}
		os.Remove(probe)
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}
