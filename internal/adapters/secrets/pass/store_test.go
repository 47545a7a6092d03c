package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/modal-accounts-cli/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	stdin string
	args  []string
}

func recordingStore(stdout, stderr string, err error) (*Store, *[]call) {
	calls := &[]call{}
	store := NewStore("")
	store.run = func(_ context.Context, stdin string, args ...string) (string, string, error) {
		*calls = append(*calls, call{stdin: stdin, args: args})
		return stdout, stderr, err
	}

	return store, calls
}

func TestPutInsertsUnderPrefixOverStdin(t *testing.T) {
	t.Parallel()

	store, calls := recordingStore("", "", nil)

	require.NoError(t, store.Put(context.Background(), "encryption-key", "c2VjcmV0"))
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"insert", "--multiline", "--force", "modal-accounts/encryption-key"}, (*calls)[0].args)
	assert.Equal(t, "c2VjcmV0\n", (*calls)[0].stdin)
}

func TestGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store, calls := recordingStore("c2VjcmV0\ncreated: 2026-01-02\n", "", nil)

	value, err := store.Get(context.Background(), "encryption-key")
	require.NoError(t, err)
	assert.Equal(t, "c2VjcmV0", value)
	assert.Equal(t, []string{"show", "modal-accounts/encryption-key"}, (*calls)[0].args)
	assert.Empty(t, (*calls)[0].stdin)
}

func TestGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store, _ := recordingStore("", "Error: modal-accounts/encryption-key is not in the password store.", errors.New("exit status 1"))

	_, err := store.Get(context.Background(), "encryption-key")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestGetKeepsOtherFailuresDistinct(t *testing.T) {
	t.Parallel()

	store, _ := recordingStore("", "gpg: decryption failed: No secret key", errors.New("exit status 2"))

	_, err := store.Get(context.Background(), "encryption-key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass show")
	assert.ErrorContains(t, err, "No secret key")
}

func TestDeleteToleratesMissingEntry(t *testing.T) {
	t.Parallel()

	store, calls := recordingStore("", "Error: modal-accounts/x is not in the password store.", errors.New("exit status 1"))

	require.NoError(t, store.Delete(context.Background(), "x-key"))
	assert.Equal(t, []string{"rm", "--force", "modal-accounts/x-key"}, (*calls)[0].args)
}

func TestUnavailableBinaryPropagates(t *testing.T) {
	t.Parallel()

	store, _ := recordingStore("", "", ErrUnavailable)

	err := store.Put(context.Background(), "encryption-key", "v")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRejectsTraversalKeys(t *testing.T) {
	t.Parallel()

	store, calls := recordingStore("", "", nil)

	for _, key := range []string{"", "/", "../other"} {
		_, err := store.Get(context.Background(), key)
		require.Error(t, err, key)
	}
	assert.Empty(t, *calls)
}

func TestCanceledContextSkipsCommand(t *testing.T) {
	t.Parallel()

	store, calls := recordingStore("", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, "encryption-key", "v"), context.Canceled)
	assert.Empty(t, *calls)
}
