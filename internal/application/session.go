package application

import (
	"context"
	"fmt"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Start claims the deployment slot, makes username the active account,
// launches the run script detached, then waits for readiness. A failed
// readiness wait is only a warning. Errors before launch release the slot.
func (c *Coordinator) Start(ctx context.Context, cmd StartSessionCommand) (domain.Deployment, error) {
	logger := c.loggerSafe().With("account", cmd.Username, "operation", "session.start")

	c.mu.Lock()
	if c.state != domain.SessionStopped {
		state := c.state
		c.mu.Unlock()
		return domain.Deployment{}, fmt.Errorf("%w: session is %s", domain.ErrAlreadyRunning, state)
	}
	c.state = domain.SessionStarting
	c.mu.Unlock()

	launched := false
	defer func() {
		if launched {
			return
		}
		c.mu.Lock()
		c.state = domain.SessionStopped
		c.mu.Unlock()
	}()

	account, err := c.store.ByUsername(ctx, cmd.Username)
	if err != nil {
		return domain.Deployment{}, err
	}

	gpu, err := resolveGPU(cmd.GPU, account.SelectedGPU, c.opts.DefaultGPU)
	if err != nil {
		return domain.Deployment{}, err
	}

	if _, err := c.switchTo(ctx, cmd.Username); err != nil {
		logger.Error("switch before start failed", "error", err)
		return domain.Deployment{}, fmt.Errorf("switch to %s: %w", cmd.Username, err)
	}

	if err := c.store.UpdateSelectedGPU(ctx, cmd.Username, gpu); err != nil {
		return domain.Deployment{}, err
	}

	runCtx := context.WithoutCancel(ctx)
	c.goBackground(func() {
		err := c.platform.RunScript(runCtx, c.opts.RunScript, gpu, c.opts.RunTimeout)
		if err != nil {
			logger.Warn("run command exited", "gpu", gpu, "error", err)
			return
		}
		logger.Info("run command finished", "gpu", gpu)
	})
	launched = true

	// The remote job is running from here on, so the slot is published even
	// if the caller goes away mid-wait.
	waitCtx := context.WithoutCancel(ctx)
	if err := c.sleep(waitCtx, c.opts.BootDelay); err != nil {
		logger.Warn("boot delay interrupted", "error", err)
	}
	ready := c.waitReady(waitCtx)
	if !ready {
		logger.Warn("readiness check failed, the session may still be booting", "url", c.opts.ComfyUIURL, "waited", c.opts.ReadyTimeout)
	}

	deployment := domain.Deployment{
		ID:         uuid.NewString(),
		Username:   cmd.Username,
		GPU:        gpu,
		ComfyUIURL: c.opts.ComfyUIURL,
		JupyterURL: c.opts.JupyterURL,
		StartedAt:  c.clock.Now(),
	}

	c.mu.Lock()
	c.deployment = &deployment
	c.state = domain.SessionRunning
	c.ready = ready
	c.mu.Unlock()

	if err := c.store.UpdateStatus(waitCtx, cmd.Username, domain.StatusActive); err != nil {
		logger.Warn("mark account active failed", "error", err)
	}
	c.store.Record(waitCtx, account, domain.ActionSessionStarted, fmt.Sprintf("Session %s started on %s", deployment.ID, gpu))

	logger.Info("session started", "deployment", deployment.ID, "gpu", gpu, "ready", ready)
	return deployment, nil
}

// Stop is best effort on the remote side: the slot is cleared and the owner
// reset to ready even when the stop command fails. The stop command runs
// under the deployment owner's profile.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	return c.stopLocked(ctx)
}

// stopLocked expects switchMu to be held.
func (c *Coordinator) stopLocked(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case domain.SessionStopped:
		c.mu.Unlock()
		return domain.ErrNotRunning
	case domain.SessionStarting, domain.SessionStopping:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: session is %s", domain.ErrSessionBusy, state)
	}
	deployment := c.deployment
	c.state = domain.SessionStopping
	c.mu.Unlock()

	logger := c.loggerSafe().With("account", deployment.Username, "operation", "session.stop", "deployment", deployment.ID)

	if err := c.selectProfile(ctx, deployment.Username); err != nil {
		logger.Warn("select deployment owner's profile failed, stopping under the current one", "error", err)
	}
	if err := c.platform.StopApp(ctx); err != nil {
		logger.Warn("remote stop failed, clearing local session anyway", "error", err)
	}

	c.mu.Lock()
	c.deployment = nil
	c.state = domain.SessionStopped
	c.ready = false
	c.mu.Unlock()

	if err := c.store.UpdateStatus(ctx, deployment.Username, domain.StatusReady); err != nil {
		logger.Warn("reset account status failed", "error", err)
	}
	if account, err := c.store.ByUsername(ctx, deployment.Username); err == nil {
		c.store.Record(ctx, account, domain.ActionSessionStopped, fmt.Sprintf("Session %s stopped", deployment.ID))
	}

	logger.Info("session stopped")
	return nil
}

func (c *Coordinator) IsReady(ctx context.Context, url string) bool {
	if c.probe == nil {
		return false
	}

	return c.probe.IsReady(ctx, url)
}

// Status probes readiness live when a deployment is running.
func (c *Coordinator) Status(ctx context.Context) domain.SessionStatus {
	c.mu.Lock()
	status := domain.SessionStatus{State: c.state, Ready: c.ready}
	if c.deployment != nil {
		deployment := *c.deployment
		status.Deployment = &deployment
	}
	c.mu.Unlock()

	if status.Deployment != nil && status.Deployment.ComfyUIURL != "" {
		status.Ready = c.IsReady(ctx, status.Deployment.ComfyUIURL)
	}

	return status
}

func (c *Coordinator) currentDeployment() *domain.Deployment {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deployment == nil {
		return nil
	}
	deployment := *c.deployment
	return &deployment
}

func (c *Coordinator) sessionBusy() (domain.SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state, c.state == domain.SessionStarting || c.state == domain.SessionStopping
}

func (c *Coordinator) waitReady(ctx context.Context) bool {
	if c.opts.ComfyUIURL == "" || c.probe == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ReadyTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.opts.ReadyInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}
		if c.probe.IsReady(ctx, c.opts.ComfyUIURL) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
}

func resolveGPU(requested, selected, fallback string) (string, error) {
	for _, candidate := range []string{requested, selected, fallback} {
		if candidate == "" {
			continue
		}
		return domain.NormalizeGPU(candidate)
	}

	return "", fmt.Errorf("%w: no GPU class given", domain.ErrValidation)
}
