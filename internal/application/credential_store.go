package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultMaxAccounts    = 6
	DefaultInitialBalance = 80.0
)

type CredentialStoreOptions struct {
	MaxAccounts    int
	InitialBalance float64
	Logger         *slog.Logger
}

// CredentialStore is the only place that encrypts or decrypts token material.
type CredentialStore struct {
	repo   ports.AccountRepository
	cipher ports.Cipher
	clock  ports.Clock
	opts   CredentialStoreOptions
}

func NewCredentialStore(repo ports.AccountRepository, cipher ports.Cipher, clock ports.Clock, opts CredentialStoreOptions) *CredentialStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.MaxAccounts <= 0 {
		opts.MaxAccounts = DefaultMaxAccounts
	}

	return &CredentialStore{repo: repo, cipher: cipher, clock: clock, opts: opts}
}

func (s *CredentialStore) loggerSafe() *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}

	return slog.Default()
}

func (s *CredentialStore) MaxAccounts() int {
	return s.opts.MaxAccounts
}

func (s *CredentialStore) Add(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	if err := domain.ValidateUsername(cmd.Username); err != nil {
		return domain.Account{}, err
	}
	if err := domain.ValidateTokens(cmd.TokenID, cmd.TokenSecret); err != nil {
		return domain.Account{}, err
	}

	encryptedID, err := s.cipher.Encrypt(cmd.TokenID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("encrypt token id: %w", err)
	}
	encryptedSecret, err := s.cipher.Encrypt(cmd.TokenSecret)
	if err != nil {
		return domain.Account{}, fmt.Errorf("encrypt token secret: %w", err)
	}

	account, err := s.repo.Insert(ctx, domain.Account{
		Username: cmd.Username,
		Secrets:  domain.EncryptedSecrets{TokenID: encryptedID, TokenSecret: encryptedSecret},
		Balance:  s.opts.InitialBalance,
		Status:   domain.StatusReady,
	}, s.opts.MaxAccounts)
	if err != nil {
		s.loggerSafe().Error("add account failed", "account", cmd.Username, "error", err)
		return domain.Account{}, fmt.Errorf("add account %s: %w", cmd.Username, err)
	}

	s.loggerSafe().Info("account added", "account", account.Username, "id", account.ID)
	return account, nil
}

func (s *CredentialStore) Remove(ctx context.Context, username string) error {
	account, err := s.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	if account.IsActive {
		return fmt.Errorf("%w: %s is the active account; switch away first", domain.ErrActiveAccount, username)
	}

	if err := s.repo.Delete(ctx, username); err != nil {
		return fmt.Errorf("remove account %s: %w", username, err)
	}

	s.loggerSafe().Info("account removed", "account", username)
	return nil
}

func (s *CredentialStore) SetActive(ctx context.Context, username string) error {
	if err := s.repo.SetActive(ctx, username); err != nil {
		return fmt.Errorf("set active account %s: %w", username, err)
	}

	return nil
}

func (s *CredentialStore) UpdateBalance(ctx context.Context, username string, balance float64) error {
	if err := s.repo.UpdateBalance(ctx, username, balance); err != nil {
		return fmt.Errorf("update balance for %s: %w", username, err)
	}

	return nil
}

func (s *CredentialStore) UpdateStatus(ctx context.Context, username string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}
	if err := s.repo.UpdateStatus(ctx, username, status); err != nil {
		return fmt.Errorf("update status for %s: %w", username, err)
	}

	return nil
}

func (s *CredentialStore) UpdateSelectedGPU(ctx context.Context, username string, gpu string) error {
	code, err := domain.NormalizeGPU(gpu)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSelectedGPU(ctx, username, code); err != nil {
		return fmt.Errorf("update gpu for %s: %w", username, err)
	}

	return nil
}

// NextAvailable returns ErrNoAvailableAccount when nothing qualifies.
func (s *CredentialStore) NextAvailable(ctx context.Context, minBalance float64) (domain.Account, error) {
	account, err := s.repo.NextAvailable(ctx, minBalance)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrNoAvailableAccount
		}
		return domain.Account{}, fmt.Errorf("find next available account: %w", err)
	}

	return account, nil
}

func (s *CredentialStore) HasAvailable(ctx context.Context, minBalance float64) (bool, error) {
	_, err := s.NextAvailable(ctx, minBalance)
	if errors.Is(err, domain.ErrNoAvailableAccount) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// DecryptCredentials returns plaintext for the caller to use immediately.
// Nothing here caches it.
func (s *CredentialStore) DecryptCredentials(ctx context.Context, username string) (domain.Credentials, error) {
	account, err := s.ByUsername(ctx, username)
	if err != nil {
		return domain.Credentials{}, err
	}

	tokenID, err := s.cipher.Decrypt(account.Secrets.TokenID)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt token id for %s: %w", username, err)
	}
	tokenSecret, err := s.cipher.Decrypt(account.Secrets.TokenSecret)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypt token secret for %s: %w", username, err)
	}

	return domain.Credentials{TokenID: tokenID, TokenSecret: tokenSecret}, nil
}

func (s *CredentialStore) ByUsername(ctx context.Context, username string) (domain.Account, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: %w", username, err)
	}

	return account, nil
}

func (s *CredentialStore) ByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account id %d: %w", id, err)
	}

	return account, nil
}

func (s *CredentialStore) All(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

// Active returns ok=false when no account is active.
func (s *CredentialStore) Active(ctx context.Context) (domain.Account, bool, error) {
	account, err := s.repo.Active(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, fmt.Errorf("get active account: %w", err)
	}

	return account, true, nil
}

func (s *CredentialStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *CredentialStore) TotalBalance(ctx context.Context) (float64, error) {
	return s.repo.TotalBalance(ctx)
}

func (s *CredentialStore) ByStatus(ctx context.Context, status domain.Status) ([]domain.Account, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}

	return s.repo.ListByStatus(ctx, status)
}

func (s *CredentialStore) History(ctx context.Context, username string, limit int) ([]domain.UsageLogEntry, error) {
	account, err := s.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.History(ctx, account.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", username, err)
	}

	return entries, nil
}

// Record appends a usage-log entry. Failures are logged, not returned.
func (s *CredentialStore) Record(ctx context.Context, account domain.Account, action domain.UsageAction, details string) {
	err := s.repo.AppendLog(ctx, domain.UsageLogEntry{
		AccountID: account.ID,
		Action:    action,
		Timestamp: s.clock.Now(),
		Details:   details,
	})
	if err != nil {
		s.loggerSafe().Warn("usage log append failed", "account", account.Username, "action", string(action), "error", err)
	}
}
