package application

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

// SwitchTo makes username the active account. A running deployment owned by
// another account is stopped first.
func (c *Coordinator) SwitchTo(ctx context.Context, username string) (domain.Account, error) {
	if state, busy := c.sessionBusy(); busy {
		return domain.Account{}, fmt.Errorf("%w: session is %s", domain.ErrSessionBusy, state)
	}

	return c.switchTo(ctx, username)
}

// SwitchToNextAvailable picks the highest-balance eligible account that is
// not already active.
func (c *Coordinator) SwitchToNextAvailable(ctx context.Context) (domain.Account, error) {
	next, err := c.store.NextAvailable(ctx, c.opts.MinBalance)
	if err != nil {
		return domain.Account{}, err
	}

	return c.SwitchTo(ctx, next.Username)
}

func (c *Coordinator) switchTo(ctx context.Context, username string) (domain.Account, error) {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	logger := c.loggerSafe().With("account", username, "operation", "switch")

	target, err := c.store.ByUsername(ctx, username)
	if err != nil {
		return domain.Account{}, err
	}
	if target.BelowThreshold(c.opts.MinBalance) {
		return domain.Account{}, fmt.Errorf("%w: %s has $%.2f, minimum is $%.2f",
			domain.ErrInsufficientBalance, username, target.Balance, c.opts.MinBalance)
	}

	previous, hasPrevious, err := c.store.Active(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	if deployment := c.currentDeployment(); deployment != nil && deployment.Username != username {
		if err := c.stopLocked(ctx); err != nil && !errors.Is(err, domain.ErrNotRunning) {
			logger.Warn("stop running deployment before switch failed", "owner", deployment.Username, "error", err)
		}
	}

	credentials, err := c.store.DecryptCredentials(ctx, username)
	if err != nil {
		return domain.Account{}, err
	}
	if err := c.ensureProfile(ctx, username, credentials); err != nil {
		logger.Error("activate platform profile failed", "error", err)
		return domain.Account{}, err
	}

	if err := c.store.SetActive(ctx, username); err != nil {
		return domain.Account{}, err
	}

	previousName := ""
	if hasPrevious && previous.Username != username {
		previousName = previous.Username
		// dead and building are owned by the watchdog and the pipeline.
		if previous.Status == domain.StatusActive {
			if err := c.store.UpdateStatus(ctx, previous.Username, domain.StatusReady); err != nil {
				logger.Warn("reset previous account status failed", "previous", previous.Username, "error", err)
			}
		}
	}
	if err := c.store.UpdateStatus(ctx, username, domain.StatusActive); err != nil {
		return domain.Account{}, err
	}

	account, err := c.store.ByUsername(ctx, username)
	if err != nil {
		return domain.Account{}, err
	}

	logger.Info("account activated", "previous", previousName, "balance", account.Balance)
	c.notifyActivation(ctx, previousName, username)
	return account, nil
}

// ensureProfile selects the platform profile for username, creating it from
// the decrypted credentials when the platform does not know it yet.
func (c *Coordinator) ensureProfile(ctx context.Context, username string, credentials domain.Credentials) error {
	profiles, err := c.platform.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list platform profiles: %w", err)
	}

	if slices.Contains(profiles, username) {
		if err := c.platform.ActivateProfile(ctx, username); err != nil {
			return fmt.Errorf("activate profile %s: %w", username, err)
		}
		return nil
	}

	if err := c.platform.CreateProfile(ctx, username, credentials); err != nil {
		return fmt.Errorf("create profile %s: %w", username, err)
	}

	return nil
}

// CheckBalance reads the live balance for username, caches it and derives
// the account status from it. The platform profile is left on username.
func (c *Coordinator) CheckBalance(ctx context.Context, username string) (float64, error) {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	return c.checkBalanceLocked(ctx, username)
}

func (c *Coordinator) checkBalanceLocked(ctx context.Context, username string) (float64, error) {
	logger := c.loggerSafe().With("account", username, "operation", "balance.check")

	account, err := c.store.ByUsername(ctx, username)
	if err != nil {
		return 0, err
	}

	if err := c.selectProfile(ctx, username); err != nil {
		return 0, err
	}

	balance, err := c.balances.ReadBalance(ctx)
	if err != nil {
		logger.Warn("balance read failed", "error", err)
		return 0, fmt.Errorf("read balance for %s: %w", username, err)
	}

	if err := c.store.UpdateBalance(ctx, username, balance); err != nil {
		return 0, err
	}

	status := domain.StatusReady
	switch {
	case balance < c.opts.MinBalance:
		status = domain.StatusDead
	case account.IsActive:
		status = domain.StatusActive
	}
	if err := c.store.UpdateStatus(ctx, username, status); err != nil {
		return 0, err
	}

	c.store.Record(ctx, account, domain.ActionBalanceChecked, fmt.Sprintf("Balance: $%.2f", balance))
	logger.Info("balance checked", "balance", balance, "status", string(status))
	return balance, nil
}

func (c *Coordinator) selectProfile(ctx context.Context, username string) error {
	current, err := c.platform.CurrentProfile(ctx)
	if err == nil && current == username {
		return nil
	}

	credentials, err := c.store.DecryptCredentials(ctx, username)
	if err != nil {
		return err
	}

	return c.ensureProfile(ctx, username, credentials)
}

// CheckAllBalances checks every account, continuing past failures, and puts
// the active account's profile back afterwards.
func (c *Coordinator) CheckAllBalances(ctx context.Context) (map[string]float64, error) {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	accounts, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64, len(accounts))
	var errs []error
	for _, account := range accounts {
		balance, err := c.checkBalanceLocked(ctx, account.Username)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		balances[account.Username] = balance
	}

	active, ok, err := c.store.Active(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if ok {
		if err := c.selectProfile(ctx, active.Username); err != nil {
			errs = append(errs, fmt.Errorf("restore active profile: %w", err))
		}
	}

	return balances, errors.Join(errs...)
}
