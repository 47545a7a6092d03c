package ports

import (
	"context"
	"errors"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretStore holds key material outside the account database.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
