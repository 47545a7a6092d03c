package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := New(context.Background(), db, &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	return repo
}

func insertAccount(t *testing.T, repo *Repository, username string, balance float64) domain.Account {
	t.Helper()

	account, err := repo.Insert(context.Background(), domain.Account{
		Username: username,
		Secrets:  domain.EncryptedSecrets{TokenID: "enc-id-" + username, TokenSecret: "enc-secret-" + username},
		Balance:  balance,
	}, 6)
	require.NoError(t, err)

	return account
}

func TestInsertAssignsDefaultsAndLogsAddition(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	account := insertAccount(t, repo, "alice", 80)

	assert.NotZero(t, account.ID)
	assert.Equal(t, domain.StatusReady, account.Status)
	assert.False(t, account.IsActive)
	assert.Equal(t, 80.0, account.Balance)
	assert.Equal(t, "enc-id-alice", account.Secrets.TokenID)

	history, err := repo.History(ctx, account.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionAccountAdded, history[0].Action)
}

func TestInsertRejectsDuplicateUsername(t *testing.T) {
	repo := newTestRepository(t)
	insertAccount(t, repo, "alice", 80)

	_, err := repo.Insert(context.Background(), domain.Account{Username: "alice"}, 6)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertEnforcesCapacity(t *testing.T) {
	repo := newTestRepository(t)
	for i := 0; i < 6; i++ {
		insertAccount(t, repo, fmt.Sprintf("user%d", i), 80)
	}

	_, err := repo.Insert(context.Background(), domain.Account{Username: "seventh"}, 6)
	require.ErrorIs(t, err, domain.ErrCapacity)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestSetActiveKeepsExactlyOneActiveAccount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "alice", 80)
	insertAccount(t, repo, "bob", 80)

	require.NoError(t, repo.SetActive(ctx, "alice"))
	require.NoError(t, repo.SetActive(ctx, "bob"))
	require.NoError(t, repo.SetActive(ctx, "bob"))

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", active.Username)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, account := range accounts {
		if account.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	history, err := repo.History(ctx, active.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ActionAccountActivated, history[0].Action)
	assert.Equal(t, domain.ActionAccountActivated, history[1].Action)
	assert.Equal(t, domain.ActionAccountAdded, history[2].Action)
}

func TestSetActiveUnknownUsername(t *testing.T) {
	repo := newTestRepository(t)
	insertAccount(t, repo, "alice", 80)
	require.NoError(t, repo.SetActive(context.Background(), "alice"))

	err := repo.SetActive(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)

	active, err := repo.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", active.Username)
}

func TestDeleteRefusesActiveAccount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "alice", 80)
	require.NoError(t, repo.SetActive(ctx, "alice"))

	err := repo.Delete(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrActiveAccount)

	_, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
}

func TestDeleteKeepsUsageLogEntries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	account := insertAccount(t, repo, "alice", 80)

	require.NoError(t, repo.Delete(ctx, "alice"))

	_, err := repo.GetByUsername(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)

	history, err := repo.History(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionAccountRemoved, history[0].Action)

	require.ErrorIs(t, repo.Delete(ctx, "alice"), domain.ErrNotFound)
}

func TestNextAvailablePicksHighestBalanceAmongEligible(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "acct-a", 10)
	insertAccount(t, repo, "acct-b", 50)
	insertAccount(t, repo, "acct-c", 1)
	insertAccount(t, repo, "acct-d", 90)
	require.NoError(t, repo.SetActive(ctx, "acct-a"))
	require.NoError(t, repo.UpdateStatus(ctx, "acct-d", domain.StatusDead))

	next, err := repo.NextAvailable(ctx, 2.0)
	require.NoError(t, err)
	assert.Equal(t, "acct-b", next.Username)
}

func TestNextAvailableTieBreaksOnLowestID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "first", 40)
	insertAccount(t, repo, "second", 40)

	next, err := repo.NextAvailable(ctx, 2.0)
	require.NoError(t, err)
	assert.Equal(t, "first", next.Username)
}

func TestNextAvailableNoneEligible(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "alice", 1.5)

	_, err := repo.NextAvailable(ctx, 2.0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatesPersistAndRejectUnknownAccounts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	created := insertAccount(t, repo, "alice", 80)

	require.NoError(t, repo.UpdateBalance(ctx, "alice", 12.5))
	require.NoError(t, repo.UpdateStatus(ctx, "alice", domain.StatusBuilding))
	require.NoError(t, repo.UpdateSelectedGPU(ctx, "alice", "A100-80GB"))

	account, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, account.Balance)
	assert.Equal(t, domain.StatusBuilding, account.Status)
	assert.Equal(t, "A100-80GB", account.SelectedGPU)
	assert.True(t, account.UpdatedAt.After(created.UpdatedAt))

	require.ErrorIs(t, repo.UpdateBalance(ctx, "ghost", 1), domain.ErrNotFound)
	require.ErrorIs(t, repo.UpdateStatus(ctx, "alice", domain.Status("paused")), domain.ErrValidation)
}

func TestAggregates(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	insertAccount(t, repo, "alice", 80)
	insertAccount(t, repo, "bob", 20.5)
	require.NoError(t, repo.UpdateStatus(ctx, "bob", domain.StatusDead))

	total, err := repo.TotalBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100.5, total, 1e-9)

	dead, err := repo.ListByStatus(ctx, domain.StatusDead)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "bob", dead[0].Username)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)

	_, err = repo.Active(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendLogAllowsDanglingAccountID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendLog(ctx, domain.UsageLogEntry{AccountID: 999, Action: domain.ActionBalanceChecked, Details: "Balance: $3.00"}))

	history, err := repo.History(ctx, 999, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Balance: $3.00", history[0].Details)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "accounts.db")

	repo, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	insertAccount(t, repo, "alice", 80)
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
