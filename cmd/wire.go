package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/adapters/cipher/xchacha"
	"github.com/bnema/modal-accounts-cli/internal/adapters/exec/shell"
	"github.com/bnema/modal-accounts-cli/internal/adapters/health"
	"github.com/bnema/modal-accounts-cli/internal/adapters/httpapi"
	"github.com/bnema/modal-accounts-cli/internal/adapters/modal"
	"github.com/bnema/modal-accounts-cli/internal/adapters/notify"
	statusadapter "github.com/bnema/modal-accounts-cli/internal/adapters/render/status"
	sqliterepo "github.com/bnema/modal-accounts-cli/internal/adapters/repo/sqlite"
	chainstore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/modal-accounts-cli/internal/adapters/secrets/pass"
	"github.com/bnema/modal-accounts-cli/internal/application"
	"github.com/bnema/modal-accounts-cli/internal/config"
	"github.com/bnema/modal-accounts-cli/internal/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const probeTimeout = 10 * time.Second

type app struct {
	configFile string
	server     string

	cfg            config.Config
	logger         *slog.Logger
	client         *httpapi.Client
	statusRenderer func(application.Overview, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

// load runs before every subcommand. It reads config and points the API
// client at the daemon; nothing here touches the database.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(viper.New(), a.configFile)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	addr := a.server
	if addr == "" {
		addr = cfg.Server.Listen
	}

	a.cfg = cfg
	a.logger = logger
	a.client = httpapi.NewClient(addr, &http.Client{})
	a.statusRenderer = statusadapter.Render
	a.now = time.Now

	return nil
}

// daemon is everything `ma serve` owns for its lifetime.
type daemon struct {
	repo        *sqliterepo.Repository
	coordinator *application.Coordinator
	watchdog    *application.Watchdog
	api         *httpapi.Server
}

func buildDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (*daemon, error) {
	clock := ports.SystemClock{}

	repo, err := sqliterepo.Open(ctx, cfg.DatabasePath, clock)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	d, err := wireDaemon(ctx, cfg, logger, repo, clock)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return d, nil
}

func wireDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger, repo *sqliterepo.Repository, clock ports.Clock) (*daemon, error) {
	keyStore, err := newKeyStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire key store: %w", err)
	}

	cipher, err := xchacha.LoadOrCreate(ctx, keyStore, xchacha.DefaultKeyName)
	if err != nil {
		return nil, err
	}

	store := application.NewCredentialStore(repo, cipher, clock, application.CredentialStoreOptions{
		MaxAccounts:    cfg.Accounts.Max,
		InitialBalance: cfg.Accounts.InitialBalance,
		Logger:         logger.With("component", "store"),
	})

	executor := shell.NewExecutor(
		shell.WithDefaultTimeout(cfg.Command.Timeout),
		shell.WithLogger(logger.With("component", "exec")),
	)

	profiles, err := modal.NewProfileFile(cfg.Modal.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("wire modal profiles: %w", err)
	}

	platform := modal.NewPlatform(modal.Config{
		Binary:      cfg.Modal.Binary,
		ProfilePath: cfg.Modal.ProfilePath,
		AppName:     cfg.Modal.AppName,
		Volume:      cfg.Modal.Volume,
		BalancePath: cfg.Modal.BalancePath,
	}, executor, profiles, logger.With("component", "modal"))

	coordinator := application.NewCoordinator(
		store,
		platform,
		modal.NewBalanceReader(platform),
		health.NewProbe(cfg.Session.HealthPath, probeTimeout),
		clock,
		application.CoordinatorOptions{
			MinBalance:       cfg.Accounts.MinBalance,
			RunScript:        cfg.Modal.RunScript,
			DefaultGPU:       cfg.Session.DefaultGPU,
			BootDelay:        cfg.Session.BootDelay,
			ReadyTimeout:     cfg.Session.ReadyTimeout,
			ReadyInterval:    cfg.Session.ReadyInterval,
			RunTimeout:       cfg.Session.RunTimeout,
			ComfyUIURL:       cfg.Endpoints.ComfyUI,
			JupyterURL:       cfg.Endpoints.Jupyter,
			SetupStep1Script: cfg.Modal.SetupStep1,
			SetupStep2Script: cfg.Modal.SetupStep2,
			SetupGPU:         cfg.Setup.GPU,
			Step1Timeout:     cfg.Setup.Step1Timeout,
			Step2Timeout:     cfg.Setup.Step2Timeout,
			SentinelPath:     cfg.Setup.SentinelPath,
			Logger:           logger.With("component", "coordinator"),
		},
	)

	var watchdog *application.Watchdog
	if cfg.Watchdog.Enabled {
		notifier, err := newNotifier(cfg, logger, clock)
		if err != nil {
			return nil, err
		}

		watchdog = application.NewWatchdog(coordinator, notifier, clock, application.WatchdogOptions{
			Interval:    cfg.Watchdog.Interval,
			GracePeriod: cfg.Watchdog.GracePeriod,
			AutoSwitch:  cfg.Watchdog.AutoSwitch,
			Logger:      logger.With("component", "watchdog"),
		})
	}

	return &daemon{
		repo:        repo,
		coordinator: coordinator,
		watchdog:    watchdog,
		api:         httpapi.NewServer(ctx, coordinator, watchdog, logger.With("component", "api")),
	}, nil
}

func newKeyStore(cfg config.Config) (ports.SecretStore, error) {
	switch cfg.KeyStore {
	case "pass":
		return chainstore.NewPassFirst(passstore.DefaultPrefix, cfg.KeyDir)
	case "file", "":
		return filestore.NewStore(cfg.KeyDir), nil
	default:
		return nil, fmt.Errorf("unknown key store %q", cfg.KeyStore)
	}
}

func newNotifier(cfg config.Config, logger *slog.Logger, clock ports.Clock) (ports.Notifier, error) {
	notifiers := []ports.Notifier{notify.NewLogNotifier(logger.With("component", "notify"))}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, clock))
	}

	fanout, err := notify.NewFanout(notifiers...)
	if err != nil {
		return nil, fmt.Errorf("wire notifiers: %w", err)
	}

	return fanout, nil
}

// Close releases the database. Detached work (the session command, a
// setup pipeline) is not awaited; both can outlive any sane shutdown window.
func (d *daemon) Close() error {
	if err := d.repo.Close(); err != nil {
		return fmt.Errorf("close account repository: %w", err)
	}

	return nil
}
