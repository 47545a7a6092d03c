package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultMinBalance    = 2.0
	DefaultSessionGPU    = "H100"
	DefaultSetupGPU      = "T4"
	DefaultBootDelay     = 10 * time.Second
	DefaultReadyTimeout  = 2 * time.Minute
	DefaultReadyInterval = 5 * time.Second
	DefaultRunTimeout    = 24 * time.Hour
	DefaultStep1Timeout  = 4 * time.Hour
	DefaultStep2Timeout  = 40 * time.Minute
)

type CoordinatorOptions struct {
	MinBalance float64

	RunScript     string
	DefaultGPU    string
	BootDelay     time.Duration
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	RunTimeout    time.Duration
	ComfyUIURL    string
	JupyterURL    string

	SetupStep1Script string
	SetupStep2Script string
	SetupGPU         string
	Step1Timeout     time.Duration
	Step2Timeout     time.Duration
	SentinelPath     string

	Logger *slog.Logger
}

func (o *CoordinatorOptions) applyDefaults() {
	if o.DefaultGPU == "" {
		o.DefaultGPU = DefaultSessionGPU
	}
	if o.SetupGPU == "" {
		o.SetupGPU = DefaultSetupGPU
	}
	if o.BootDelay < 0 {
		o.BootDelay = 0
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.ReadyInterval <= 0 {
		o.ReadyInterval = DefaultReadyInterval
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = DefaultRunTimeout
	}
	if o.Step1Timeout <= 0 {
		o.Step1Timeout = DefaultStep1Timeout
	}
	if o.Step2Timeout <= 0 {
		o.Step2Timeout = DefaultStep2Timeout
	}
}

// ActivationListener is called after an account becomes the active one.
// previous is empty when nothing was active before.
type ActivationListener func(ctx context.Context, previous, next string)

// Coordinator owns the single deployment slot. Session, rotation and setup
// operations all go through it so the slot has one writer.
type Coordinator struct {
	store    *CredentialStore
	platform ports.ComputePlatform
	balances ports.BalanceReader
	probe    ports.ReadinessProbe
	clock    ports.Clock
	opts     CoordinatorOptions

	// mu guards state, deployment, ready and setups.
	mu         sync.Mutex
	state      domain.SessionState
	deployment *domain.Deployment
	ready      bool
	setups     map[string]struct{}

	// switchMu serializes changes to the platform's active profile.
	switchMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []ActivationListener

	background sync.WaitGroup
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewCoordinator(
	store *CredentialStore,
	platform ports.ComputePlatform,
	balances ports.BalanceReader,
	probe ports.ReadinessProbe,
	clock ports.Clock,
	opts CoordinatorOptions,
) *Coordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	opts.applyDefaults()

	return &Coordinator{
		store:    store,
		platform: platform,
		balances: balances,
		probe:    probe,
		clock:    clock,
		opts:     opts,
		state:    domain.SessionStopped,
		setups:   map[string]struct{}{},
		sleep:    sleepContext,
	}
}

func (c *Coordinator) loggerSafe() *slog.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}

	return slog.Default()
}

func (c *Coordinator) Store() *CredentialStore {
	return c.store
}

func (c *Coordinator) MinBalance() float64 {
	return c.opts.MinBalance
}

func (c *Coordinator) OnActivate(listener ActivationListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.listeners = append(c.listeners, listener)
}

func (c *Coordinator) notifyActivation(ctx context.Context, previous, next string) {
	c.listenersMu.RLock()
	listeners := append([]ActivationListener(nil), c.listeners...)
	c.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, previous, next)
	}
}

// Wait blocks until detached work started by the coordinator has returned.
func (c *Coordinator) Wait() {
	c.background.Wait()
}

func (c *Coordinator) goBackground(fn func()) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		fn()
	}()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
