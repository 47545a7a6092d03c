package ports

import (
	"context"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

// AccountRepository persists accounts and the usage log. Implementations
// enforce the single-active invariant and capacity atomically.
type AccountRepository interface {
	Insert(ctx context.Context, account domain.Account, maxAccounts int) (domain.Account, error)
	Delete(ctx context.Context, username string) error
	SetActive(ctx context.Context, username string) error
	UpdateBalance(ctx context.Context, username string, balance float64) error
	UpdateStatus(ctx context.Context, username string, status domain.Status) error
	UpdateSelectedGPU(ctx context.Context, username string, gpu string) error

	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Active(ctx context.Context) (domain.Account, error)
	Count(ctx context.Context) (int, error)
	TotalBalance(ctx context.Context) (float64, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Account, error)
	NextAvailable(ctx context.Context, minBalance float64) (domain.Account, error)

	AppendLog(ctx context.Context, entry domain.UsageLogEntry) error
	History(ctx context.Context, accountID domain.AccountID, limit int) ([]domain.UsageLogEntry, error)
}
