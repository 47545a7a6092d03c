package xchacha

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize = chacha20poly1305.KeySize

	// DefaultKeyName is the secret store entry holding the base64 key.
	DefaultKeyName = "encryption.key"

	// blobVersion is authenticated as AAD so a rewritten version byte fails to open.
	blobVersion byte = 0x01

	blobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

// Cipher encrypts token material as base64([version][nonce][ciphertext+tag]).
type Cipher struct {
	key []byte
}

var _ ports.Cipher = (*Cipher)(nil)

func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key is %d bytes, want %d", len(key), KeySize)
	}

	owned := make([]byte, KeySize)
	copy(owned, key)

	return &Cipher{key: owned}, nil
}

// LoadOrCreate reads the key from store, generating and persisting a fresh
// one on first use.
func LoadOrCreate(ctx context.Context, store ports.SecretStore, keyName string) (*Cipher, error) {
	if keyName == "" {
		keyName = DefaultKeyName
	}

	encoded, err := store.Get(ctx, keyName)
	switch {
	case err == nil:
		key, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode encryption key: %w", decodeErr)
		}
		return New(key)
	case errors.Is(err, ports.ErrSecretNotFound):
	default:
		return nil, fmt.Errorf("load encryption key: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	if err := store.Put(ctx, keyName, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("store encryption key: %w", err)
	}

	return New(key)
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating random nonce: %w", err)
	}

	output := make([]byte, 1+chacha20poly1305.NonceSizeX, blobOverhead+len(plaintext))
	output[0] = blobVersion
	copy(output[1:], nonce[:])
	output = aead.Seal(output, nonce[:], []byte(plaintext), []byte{blobVersion})

	return base64.StdEncoding.EncodeToString(output), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrDecryption, err)
	}
	if len(blob) < blobOverhead {
		return "", fmt.Errorf("%w: blob is %d bytes, minimum is %d", domain.ErrDecryption, len(blob), blobOverhead)
	}

	version := blob[0]
	if version != blobVersion {
		return "", fmt.Errorf("%w: unsupported blob version %d", domain.ErrDecryption, version)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], []byte{version})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}
