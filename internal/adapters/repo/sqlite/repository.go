package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const defaultHistoryLimit = 50

// Fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository struct {
	db    *sql.DB
	clock ports.Clock
}

// Open creates the database file and its parent directory if needed.
func Open(ctx context.Context, path string, clock ports.Clock) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	repo, err := New(ctx, db, clock)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return repo, nil
}

func New(ctx context.Context, db *sql.DB, clock ports.Clock) (*Repository, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{db: db, clock: clock}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Insert(ctx context.Context, account domain.Account, maxAccounts int) (domain.Account, error) {
	var inserted domain.Account

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		if maxAccounts > 0 && count >= maxAccounts {
			return fmt.Errorf("%w: limit is %d", domain.ErrCapacity, maxAccounts)
		}

		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE username = ?`, account.Username).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, account.Username)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check username: %w", err)
		}

		status := account.Status
		if status == "" {
			status = domain.StatusReady
		}
		now := formatTime(r.clock.Now())

		result, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (username, token_id, token_secret, balance, status, is_active, selected_gpu, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
		`, account.Username, account.Secrets.TokenID, account.Secrets.TokenSecret, account.Balance, string(status), account.SelectedGPU, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicate, account.Username)
			}
			return fmt.Errorf("insert account: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted id: %w", err)
		}

		if err := appendLogTx(ctx, tx, domain.AccountID(id), domain.ActionAccountAdded, "Account added", now); err != nil {
			return err
		}

		inserted, err = scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	return inserted, nil
}

// Delete refuses the active account even if the caller already checked.
func (r *Repository) Delete(ctx context.Context, username string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		account, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
		if err != nil {
			return err
		}
		if account.IsActive {
			return fmt.Errorf("%w: cannot remove %s", domain.ErrActiveAccount, username)
		}

		now := formatTime(r.clock.Now())
		if err := appendLogTx(ctx, tx, account.ID, domain.ActionAccountRemoved, "Account removed", now); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND is_active = 0`, account.ID)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}

		return expectOneRow(result, fmt.Errorf("%w: cannot remove %s", domain.ErrActiveAccount, username))
	})
}

func (r *Repository) SetActive(ctx context.Context, username string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		account, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
		if err != nil {
			return err
		}

		now := formatTime(r.clock.Now())
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 0, updated_at = ? WHERE is_active = 1`, now); err != nil {
			return fmt.Errorf("clear active account: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 1, updated_at = ? WHERE id = ?`, now, account.ID); err != nil {
			return fmt.Errorf("set active account: %w", err)
		}

		return appendLogTx(ctx, tx, account.ID, domain.ActionAccountActivated, "Account activated", now)
	})
}

func (r *Repository) UpdateBalance(ctx context.Context, username string, balance float64) error {
	return r.updateColumn(ctx, username, "balance", balance)
}

func (r *Repository) UpdateStatus(ctx context.Context, username string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}

	return r.updateColumn(ctx, username, "status", string(status))
}

func (r *Repository) UpdateSelectedGPU(ctx context.Context, username string, gpu string) error {
	return r.updateColumn(ctx, username, "selected_gpu", gpu)
}

func (r *Repository) updateColumn(ctx context.Context, username, column string, value any) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET `+column+` = ?, updated_at = ? WHERE username = ?`,
		value, formatTime(r.clock.Now()), username,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}

	return expectOneRow(result, fmt.Errorf("%w: %s", domain.ErrNotFound, username))
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, int64(id)))
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
}

func (r *Repository) Active(ctx context.Context) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_active = 1`))
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

func (r *Repository) TotalBalance(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}

	return total, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE status = ? ORDER BY created_at, id`, string(status))
}

// NextAvailable returns the non-active, non-dead account with the highest
// balance at or above minBalance. Ties go to the oldest id.
func (r *Repository) NextAvailable(ctx context.Context, minBalance float64) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE is_active = 0 AND status != 'dead' AND balance >= ?
		ORDER BY balance DESC, id ASC
		LIMIT 1
	`, minBalance))
}

func (r *Repository) AppendLog(ctx context.Context, entry domain.UsageLogEntry) error {
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = r.clock.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_log (account_id, action, created_at, details) VALUES (?, ?, ?, ?)`,
		int64(entry.AccountID), string(entry.Action), formatTime(timestamp), entry.Details,
	)
	if err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}

	return nil
}

// History returns the newest entries first.
func (r *Repository) History(ctx context.Context, accountID domain.AccountID, limit int) ([]domain.UsageLogEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, action, created_at, details FROM usage_log
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, int64(accountID), limit)
	if err != nil {
		return nil, fmt.Errorf("query usage log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.UsageLogEntry, 0)
	for rows.Next() {
		var (
			entry     domain.UsageLogEntry
			accountID int64
			action    string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &accountID, &action, &createdAt, &entry.Details); err != nil {
			return nil, fmt.Errorf("scan usage log: %w", err)
		}
		entry.AccountID = domain.AccountID(accountID)
		entry.Action = domain.UsageAction(action)
		if entry.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage log: %w", err)
	}

	return entries, nil
}

func (r *Repository) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account   domain.Account
		id        int64
		status    string
		isActive  int
		createdAt string
		updatedAt string
	)

	err := row.Scan(&id, &account.Username, &account.Secrets.TokenID, &account.Secrets.TokenSecret,
		&account.Balance, &status, &isActive, &account.SelectedGPU, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}

	account.ID = domain.AccountID(id)
	account.Status = domain.Status(status)
	account.IsActive = isActive == 1
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	if account.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

func appendLogTx(ctx context.Context, tx *sql.Tx, accountID domain.AccountID, action domain.UsageAction, details, createdAt string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO usage_log (account_id, action, created_at, details) VALUES (?, ?, ?, ?)`,
		int64(accountID), string(action), createdAt, details,
	)
	if err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}

	return nil
}

func expectOneRow(result sql.Result, noRowsErr error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return noRowsErr
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}

	return t, nil
}
