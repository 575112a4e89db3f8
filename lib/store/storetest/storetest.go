// Package storetest runs the same behaviour checks against every store
// backend.
package storetest

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/TecharoHQ/maat/lib/store"
)

// Common validates config with f, builds a backend from it and checks that
// the backend honours the store.Interface contract.
func Common(t *testing.T, f store.Factory, config json.RawMessage) {
	t.Helper()

	if err := f.Valid(config); err != nil {
		t.Fatal(err)
	}

	s, err := f.Build(t.Context(), config)
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name string
		doer func(t *testing.T, s store.Interface) error
		err  error
	}{
		{
			name: "basic get set delete",
			doer: func(t *testing.T, s store.Interface) error {
				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to not exist in store but it exists anyways", t.Name())
				}

				if err := s.Set(t.Context(), t.Name(), []byte(`{"answer":"`+t.Name()+`"}`), 5*time.Minute); err != nil {
					return err
				}

				val, err := s.Get(t.Context(), t.Name())
				if err != nil {
					t.Errorf("wanted %s to exist in store but it does not: %v", t.Name(), err)
				}

				if want := []byte(`{"answer":"` + t.Name() + `"}`); !bytes.Equal(val, want) {
					t.Logf("want: %q", want)
					t.Logf("got:  %q", val)
					t.Error("wrong value returned")
				}

				if err := s.Delete(t.Context(), t.Name()); err != nil {
					return err
				}

				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Error("wanted key to be gone after delete")
				}

				if err := s.Delete(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("deleting missing key %q: wanted ErrNotFound, got: %v", t.Name(), err)
				}

				return nil
			},
		},
		{
			name: "overwrite",
			doer: func(t *testing.T, s store.Interface) error {
				if err := s.Set(t.Context(), t.Name(), []byte("first"), 5*time.Minute); err != nil {
					return err
				}

				if err := s.Set(t.Context(), t.Name(), []byte("second"), 5*time.Minute); err != nil {
					return err
				}

				val, err := s.Get(t.Context(), t.Name())
				if err != nil {
					return err
				}

				if string(val) != "second" {
					t.Errorf("wanted the latest value, got %q", val)
				}

				return s.Delete(t.Context(), t.Name())
			},
		},
		{
			name: "expires",
			doer: func(t *testing.T, s store.Interface) error {
				if err := s.Set(t.Context(), t.Name(), []byte(t.Name()), 150*time.Millisecond); err != nil {
					return err
				}

				time.Sleep(250 * time.Millisecond)

				if _, err := s.Get(t.Context(), t.Name()); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("wanted %s to not exist in store but it exists anyways", t.Name())
				}

				return nil
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.doer(t, s); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}
