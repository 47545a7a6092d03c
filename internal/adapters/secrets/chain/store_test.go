package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/modal-accounts-cli/internal/adapters/cipher/xchacha"
	filestore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/file"
	"github.com/bnema/modal-accounts-cli/internal/ports"
	portmocks "github.com/bnema/modal-accounts-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const keyName = "encryption-key"

func TestNewRejectsEmptyChain(t *testing.T) {
	t.Parallel()

	_, err := New()
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)
}

func TestGetReturnsFirstHit(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, keyName).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), keyName)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestGetFallsThroughFailures(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, keyName).Return("", errors.New("pass command unavailable")).Once()
	fallback.EXPECT().Get(mock.Anything, keyName).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), keyName)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestGetJoinsErrorsAndKeepsNotFound(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, keyName).Return("", ports.ErrSecretNotFound).Once()
	fallback.EXPECT().Get(mock.Anything, keyName).Return("", errors.New("disk gone")).Once()

	_, err = store.Get(context.Background(), keyName)
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
	assert.ErrorContains(t, err, "backend 0 get")
	assert.ErrorContains(t, err, "backend 1 get")
	assert.ErrorContains(t, err, "disk gone")
}

func TestCancellationStopsTheWalk(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mock.Anything, keyName).Return("", context.Canceled).Once()
	primary.EXPECT().Put(mock.Anything, keyName, "v").Return(context.DeadlineExceeded).Once()

	_, err = store.Get(context.Background(), keyName)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Put(context.Background(), keyName, "v"), context.DeadlineExceeded)
}

func TestPutStopsAtFirstAcceptingBackend(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Put(mock.Anything, keyName, "v").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, keyName, "v").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), keyName, "v"))
}

func TestDeleteClearsEveryBackend(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store, err := New(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Delete(mock.Anything, keyName).Return(ports.ErrSecretNotFound).Once()
	fallback.EXPECT().Delete(mock.Anything, keyName).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), keyName))
}

func TestKeyCreatedOnceAcrossChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	unavailable := portmocks.NewMockSecretStore(t)
	unavailable.EXPECT().Get(mock.Anything, mock.Anything).Return("", errors.New("pass command unavailable"))
	unavailable.EXPECT().Put(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("pass command unavailable"))

	store, err := New(unavailable, filestore.NewStore(root))
	require.NoError(t, err)

	first, err := xchacha.LoadOrCreate(ctx, store, keyName)
	require.NoError(t, err)
	sealed, err := first.Encrypt("as-1234567890")
	require.NoError(t, err)

	second, err := xchacha.LoadOrCreate(ctx, store, keyName)
	require.NoError(t, err)
	opened, err := second.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "as-1234567890", opened)
}
