package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultWatchdogInterval = time.Hour
	DefaultGracePeriod      = 20 * time.Minute
)

type WatchdogOptions struct {
	Interval    time.Duration
	GracePeriod time.Duration
	AutoSwitch  bool
	Logger      *slog.Logger
}

type PendingSwitch struct {
	Username string
	Deadline time.Time
}

type graceTimer struct {
	cancel   context.CancelFunc
	deadline time.Time
}

// Watchdog warns once per activation when the active account runs low and,
// after a grace period, rotates to the next funded account.
type Watchdog struct {
	coordinator *Coordinator
	store       *CredentialStore
	notifier    ports.Notifier
	clock       ports.Clock
	opts        WatchdogOptions

	mu     sync.Mutex
	base   context.Context
	warned map[string]bool
	timers map[string]*graceTimer
	// epoch counts activations; a check started under an older epoch
	// must not warn or arm.
	epoch uint64

	wg sync.WaitGroup
}

func NewWatchdog(coordinator *Coordinator, notifier ports.Notifier, clock ports.Clock, opts WatchdogOptions) *Watchdog {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchdogInterval
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	w := &Watchdog{
		coordinator: coordinator,
		store:       coordinator.Store(),
		notifier:    notifier,
		clock:       clock,
		opts:        opts,
		base:        context.Background(),
		warned:      map[string]bool{},
		timers:      map[string]*graceTimer{},
	}
	coordinator.OnActivate(w.handleActivation)

	return w
}

func (w *Watchdog) loggerSafe() *slog.Logger {
	if w.opts.Logger != nil {
		return w.opts.Logger
	}

	return slog.Default()
}

// Run ticks until ctx is done. Pending grace timers are cancelled with it.
func (w *Watchdog) Run(ctx context.Context) error {
	w.mu.Lock()
	w.base = ctx
	w.mu.Unlock()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.loggerSafe().Info("watchdog started", "interval", w.opts.Interval, "grace", w.opts.GracePeriod, "auto_switch", w.opts.AutoSwitch)
	for {
		select {
		case <-ctx.Done():
			w.cancelAll()
			w.wg.Wait()
			return nil
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.loggerSafe().Warn("watchdog tick failed", "error", err)
			}
		}
	}
}

// Tick runs one balance check of the active account.
func (w *Watchdog) Tick(ctx context.Context) error {
	w.mu.Lock()
	epoch := w.epoch
	w.mu.Unlock()

	active, ok, err := w.store.Active(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	balance, err := w.coordinator.CheckBalance(ctx, active.Username)
	if err != nil {
		return fmt.Errorf("watchdog balance check: %w", err)
	}

	minBalance := w.coordinator.MinBalance()
	if balance >= minBalance {
		return nil
	}

	w.mu.Lock()
	if w.epoch != epoch || w.warned[active.Username] {
		w.mu.Unlock()
		return nil
	}
	w.warned[active.Username] = true
	w.mu.Unlock()

	message := fmt.Sprintf("Account %s has $%.2f left, below the $%.2f minimum.", active.Username, balance, minBalance)
	if w.opts.AutoSwitch {
		message += fmt.Sprintf(" Switching to the next account in %s.", w.opts.GracePeriod)
	} else {
		message += " Auto-switch is disabled."
	}
	w.notify(ctx, domain.Notification{
		Kind:     domain.NotifyLowBalance,
		Title:    "Low balance",
		Message:  message,
		Username: active.Username,
	})

	if w.opts.AutoSwitch {
		w.arm(active.Username, epoch)
	}

	return nil
}

// arm starts the grace timer unless an activation happened since the check
// that warned about username.
func (w *Watchdog) arm(username string, epoch uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.epoch != epoch || !w.warned[username] {
		w.loggerSafe().Info("account switched during low balance notice, no countdown", "account", username)
		return
	}

	if existing := w.timers[username]; existing != nil {
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(w.base)
	timer := &graceTimer{cancel: cancel, deadline: w.clock.Now().Add(w.opts.GracePeriod)}
	w.timers[username] = timer

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()

		wait := time.NewTimer(w.opts.GracePeriod)
		defer wait.Stop()

		select {
		case <-ctx.Done():
			return
		case <-wait.C:
		}

		w.mu.Lock()
		if w.timers[username] != timer {
			w.mu.Unlock()
			return
		}
		delete(w.timers, username)
		w.mu.Unlock()

		w.expire(ctx, username)
	}()
}

func (w *Watchdog) expire(ctx context.Context, username string) {
	logger := w.loggerSafe().With("account", username, "operation", "watchdog.expire")

	active, ok, err := w.store.Active(ctx)
	if err != nil {
		logger.Warn("read active account failed, rotation skipped", "error", err)
		return
	}
	if !ok || active.Username != username {
		logger.Info("account is no longer active, rotation skipped")
		return
	}
	logger.Info("grace period elapsed, rotating account")

	if deployment := w.coordinator.currentDeployment(); deployment != nil && deployment.Username != username {
		logger.Warn("running session belongs to another account, leaving it up", "owner", deployment.Username)
	} else if err := w.coordinator.Stop(ctx); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		logger.Warn("stop session failed", "error", err)
	}
	if err := w.store.UpdateStatus(ctx, username, domain.StatusDead); err != nil {
		logger.Warn("mark account dead failed", "error", err)
	}

	next, err := w.coordinator.SwitchToNextAvailable(ctx)
	if err != nil {
		kind := domain.NotifyAutoSwitchFailed
		title := "Auto-switch failed"
		if errors.Is(err, domain.ErrNoAvailableAccount) {
			kind = domain.NotifyNoAccounts
			title = "No accounts available"
		}
		logger.Error("auto-switch failed", "error", err)
		w.notify(ctx, domain.Notification{
			Kind:     kind,
			Title:    title,
			Message:  fmt.Sprintf("Could not rotate away from %s: %v. Add funds or a new account.", username, err),
			Username: username,
		})
		return
	}

	w.notify(ctx, domain.Notification{
		Kind:     domain.NotifyAccountSwitched,
		Title:    "Account switched",
		Message:  fmt.Sprintf("Switched from %s to %s ($%.2f). Running setup.", username, next.Username, next.Balance),
		Username: next.Username,
	})

	w.mu.Lock()
	base := w.base
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.setup(base, next.Username)
	}()
}

func (w *Watchdog) setup(ctx context.Context, username string) {
	w.notify(ctx, domain.Notification{
		Kind:     domain.NotifySetupStarted,
		Title:    "Setup started",
		Message:  fmt.Sprintf("Provisioning %s.", username),
		Username: username,
	})

	if err := w.coordinator.RunSetup(ctx, SetupCommand{Username: username}); err != nil {
		w.notify(ctx, domain.Notification{
			Kind:     domain.NotifySetupFailed,
			Title:    "Setup failed",
			Message:  fmt.Sprintf("Setup for %s failed: %s", username, domain.Truncate(err.Error(), setupErrorDetailLength)),
			Username: username,
		})
		return
	}

	w.notify(ctx, domain.Notification{
		Kind:     domain.NotifySetupComplete,
		Title:    "Setup complete",
		Message:  fmt.Sprintf("%s is provisioned.", username),
		Username: username,
	})
}

// handleActivation drops timers and warnings for both sides of a switch.
func (w *Watchdog) handleActivation(_ context.Context, previous, next string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.epoch++
	for _, username := range []string{previous, next} {
		if username == "" {
			continue
		}
		if timer := w.timers[username]; timer != nil {
			timer.cancel()
			delete(w.timers, username)
			w.loggerSafe().Info("pending auto-switch cancelled", "account", username)
		}
		delete(w.warned, username)
	}
}

func (w *Watchdog) cancelAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for username, timer := range w.timers {
		timer.cancel()
		delete(w.timers, username)
	}
}

func (w *Watchdog) notify(ctx context.Context, notification domain.Notification) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, notification); err != nil {
		w.loggerSafe().Warn("notification failed", "kind", string(notification.Kind), "error", err)
	}
}

// Pending lists armed grace timers ordered by username.
func (w *Watchdog) Pending() []PendingSwitch {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending := make([]PendingSwitch, 0, len(w.timers))
	for username, timer := range w.timers {
		pending = append(pending, PendingSwitch{Username: username, Deadline: timer.deadline})
	}
	slices.SortFunc(pending, func(a, b PendingSwitch) int {
		if a.Username < b.Username {
			return -1
		}
		if a.Username > b.Username {
			return 1
		}
		return 0
	})

	return pending
}

func (w *Watchdog) Warned(username string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.warned[username]
}

func (w *Watchdog) Options() WatchdogOptions {
	return w.opts
}

// Wait blocks until timers and setup runs started by the watchdog return.
func (w *Watchdog) Wait() {
	w.wg.Wait()
}
