package application

import (
	"context"
	"fmt"
	"slices"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

const setupErrorDetailLength = 200

// RunSetup provisions the shared volume for username in two phases. Phase
// one is skipped when the sentinel path already exists; phase two always
// runs. A failed phase leaves the account ready and stops the pipeline.
func (c *Coordinator) RunSetup(ctx context.Context, cmd SetupCommand) error {
	gpu := cmd.GPU
	if gpu == "" {
		gpu = c.opts.SetupGPU
	}
	gpu, err := domain.NormalizeGPU(gpu)
	if err != nil {
		return err
	}

	if !c.claimSetup(cmd.Username) {
		return fmt.Errorf("%w: setup already running for %s", domain.ErrSessionBusy, cmd.Username)
	}
	defer c.releaseSetup(cmd.Username)

	logger := c.loggerSafe().With("account", cmd.Username, "operation", "setup", "gpu", gpu)

	account, err := c.SwitchTo(ctx, cmd.Username)
	if err != nil {
		return fmt.Errorf("switch to %s for setup: %w", cmd.Username, err)
	}

	if err := c.store.UpdateStatus(ctx, cmd.Username, domain.StatusBuilding); err != nil {
		return err
	}
	c.store.Record(ctx, account, domain.ActionSetupStarted, "Setup started on "+gpu)

	exists, err := c.platform.PathExists(ctx, c.opts.SentinelPath)
	if err != nil {
		logger.Warn("sentinel check failed, running phase one", "path", c.opts.SentinelPath, "error", err)
		exists = false
	}

	if exists {
		logger.Info("sentinel present, skipping phase one", "path", c.opts.SentinelPath)
	} else {
		logger.Info("setup phase one started", "script", c.opts.SetupStep1Script)
		if err := c.platform.RunScript(ctx, c.opts.SetupStep1Script, gpu, c.opts.Step1Timeout); err != nil {
			return c.failSetup(ctx, account, 1, err)
		}
	}

	logger.Info("setup phase two started", "script", c.opts.SetupStep2Script)
	if err := c.platform.RunScript(ctx, c.opts.SetupStep2Script, gpu, c.opts.Step2Timeout); err != nil {
		return c.failSetup(ctx, account, 2, err)
	}

	if err := c.store.UpdateStatus(ctx, cmd.Username, domain.StatusReady); err != nil {
		return err
	}
	c.store.Record(ctx, account, domain.ActionSetupFinished, "Setup finished")

	logger.Info("setup finished")
	return nil
}

func (c *Coordinator) failSetup(ctx context.Context, account domain.Account, step int, cause error) error {
	c.loggerSafe().Error("setup step failed", "account", account.Username, "step", step, "error", cause)

	if err := c.store.UpdateStatus(ctx, account.Username, domain.StatusReady); err != nil {
		c.loggerSafe().Warn("reset status after setup failure failed", "account", account.Username, "error", err)
	}
	c.store.Record(ctx, account, domain.ActionSetupFailed,
		fmt.Sprintf("Step %d: %s", step, domain.Truncate(cause.Error(), setupErrorDetailLength)))

	return fmt.Errorf("setup step %d failed: %w", step, cause)
}

func (c *Coordinator) claimSetup(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, running := c.setups[username]; running {
		return false
	}
	c.setups[username] = struct{}{}
	return true
}

func (c *Coordinator) releaseSetup(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.setups, username)
}

// SetupsInFlight lists accounts with a running setup pipeline.
func (c *Coordinator) SetupsInFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.setups))
	for name := range c.setups {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
