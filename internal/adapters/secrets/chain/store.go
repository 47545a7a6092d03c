package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

// Store reads from the first backend holding a key and writes to the first
// backend that accepts the value. Context cancellation stops the walk.
type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret chain needs at least one backend")

func New(backends ...ports.SecretStore) (*Store, error) {
	kept := make([]ports.SecretStore, 0, len(backends))
	for _, backend := range backends {
		if backend != nil {
			kept = append(kept, backend)
		}
	}
	if len(kept) == 0 {
		return nil, errNoBackends
	}

	return &Store{backends: kept}, nil
}

// NewPassFirst prefers the password-store and keeps a file copy reachable
// for hosts without pass.
func NewPassFirst(passPrefix string, fileRoot string) (*Store, error) {
	return New(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for i, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if interrupted(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("backend %d get: %w", i, err))
	}

	return "", errors.Join(errs...)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if interrupted(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d put: %w", i, err))
	}

	return errors.Join(errs...)
}

// Delete clears the key everywhere so a stale copy cannot resurface.
func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for i, backend := range s.backends {
		err := backend.Delete(ctx, key)
		if err == nil || errors.Is(err, ports.ErrSecretNotFound) {
			continue
		}
		if interrupted(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d delete: %w", i, err))
	}

	return errors.Join(errs...)
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
