package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/ma"
	envPrefix  = "MA"

	MaxAccountsCeiling = 10
)

type Config struct {
	DatabasePath string
	KeyDir       string
	KeyStore     string
	Accounts     AccountsConfig
	Modal        ModalConfig
	Setup        SetupConfig
	Session      SessionConfig
	Endpoints    EndpointsConfig
	Command      CommandConfig
	Watchdog     WatchdogConfig
	Notify       NotifyConfig
	Server       ServerConfig
	Log          LogConfig
}

type AccountsConfig struct {
	Max            int
	InitialBalance float64
	MinBalance     float64
}

type ModalConfig struct {
	Binary      string
	ProfilePath string
	AppName     string
	Volume      string
	BalancePath string
	SetupStep1  string
	SetupStep2  string
	RunScript   string
}

type SetupConfig struct {
	GPU          string
	Step1Timeout time.Duration
	Step2Timeout time.Duration
	SentinelPath string
}

type SessionConfig struct {
	DefaultGPU    string
	BootDelay     time.Duration
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	RunTimeout    time.Duration
	HealthPath    string
}

type EndpointsConfig struct {
	ComfyUI string
	Jupyter string
}

type CommandConfig struct {
	Timeout time.Duration
}

type WatchdogConfig struct {
	Enabled     bool
	AutoSwitch  bool
	Interval    time.Duration
	GracePeriod time.Duration
}

type NotifyConfig struct {
	WebhookURL string
}

type ServerConfig struct {
	Listen string
}

type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every key so env overrides resolve even without a
// config file.
func SetDefaults(v *viper.Viper, homeDir string) {
	base := filepath.Join(homeDir, configDir)

	v.SetDefault("database.path", filepath.Join(base, "accounts.db"))
	v.SetDefault("encryption.key_dir", filepath.Join(base, "keys"))
	v.SetDefault("encryption.key_store", "file")

	v.SetDefault("accounts.max", 6)
	v.SetDefault("accounts.initial_balance", 80.0)
	v.SetDefault("accounts.min_balance", 2.0)

	v.SetDefault("modal.binary", "modal")
	v.SetDefault("modal.profile_path", filepath.Join(homeDir, ".modal.toml"))
	v.SetDefault("modal.app_name", "comfyui-antique")
	v.SetDefault("modal.volume", "workspace")
	v.SetDefault("modal.balance_path", "/root/workspace/ComfyUI/custom_nodes/ModalCredits/balance.json")
	v.SetDefault("modal.scripts.setup_step1", "app1.py")
	v.SetDefault("modal.scripts.setup_step2", "app2.py")
	v.SetDefault("modal.scripts.run", "app.py")

	v.SetDefault("setup.gpu", "T4")
	v.SetDefault("setup.step1_timeout", "4h")
	v.SetDefault("setup.step2_timeout", "40m")
	v.SetDefault("setup.sentinel_path", "/root/workspace/ComfyUI")

	v.SetDefault("session.default_gpu", "H100")
	v.SetDefault("session.boot_delay", "10s")
	v.SetDefault("session.ready_timeout", "2m")
	v.SetDefault("session.ready_interval", "5s")
	v.SetDefault("session.run_timeout", "24h")
	v.SetDefault("session.health_path", "/system_stats")

	v.SetDefault("endpoints.comfyui", "")
	v.SetDefault("endpoints.jupyter", "")

	v.SetDefault("command.timeout", "5m")

	v.SetDefault("watchdog.enabled", true)
	v.SetDefault("watchdog.auto_switch", true)
	v.SetDefault("watchdog.interval", "1h")
	v.SetDefault("watchdog.grace_period", "20m")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("server.listen", "127.0.0.1:8047")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configFile, or config.toml from ~/.config/ma when configFile is
// empty. A missing default file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	SetDefaults(v, homeDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		DatabasePath: expandHome(v.GetString("database.path"), homeDir),
		KeyDir:       expandHome(v.GetString("encryption.key_dir"), homeDir),
		KeyStore:     strings.ToLower(v.GetString("encryption.key_store")),
		Accounts: AccountsConfig{
			Max:            v.GetInt("accounts.max"),
			InitialBalance: v.GetFloat64("accounts.initial_balance"),
			MinBalance:     v.GetFloat64("accounts.min_balance"),
		},
		Modal: ModalConfig{
			Binary:      v.GetString("modal.binary"),
			ProfilePath: expandHome(v.GetString("modal.profile_path"), homeDir),
			AppName:     v.GetString("modal.app_name"),
			Volume:      v.GetString("modal.volume"),
			BalancePath: v.GetString("modal.balance_path"),
			SetupStep1:  expandHome(v.GetString("modal.scripts.setup_step1"), homeDir),
			SetupStep2:  expandHome(v.GetString("modal.scripts.setup_step2"), homeDir),
			RunScript:   expandHome(v.GetString("modal.scripts.run"), homeDir),
		},
		Setup: SetupConfig{
			GPU:          v.GetString("setup.gpu"),
			Step1Timeout: v.GetDuration("setup.step1_timeout"),
			Step2Timeout: v.GetDuration("setup.step2_timeout"),
			SentinelPath: v.GetString("setup.sentinel_path"),
		},
		Session: SessionConfig{
			DefaultGPU:    v.GetString("session.default_gpu"),
			BootDelay:     v.GetDuration("session.boot_delay"),
			ReadyTimeout:  v.GetDuration("session.ready_timeout"),
			ReadyInterval: v.GetDuration("session.ready_interval"),
			RunTimeout:    v.GetDuration("session.run_timeout"),
			HealthPath:    v.GetString("session.health_path"),
		},
		Endpoints: EndpointsConfig{
			ComfyUI: v.GetString("endpoints.comfyui"),
			Jupyter: v.GetString("endpoints.jupyter"),
		},
		Command: CommandConfig{Timeout: v.GetDuration("command.timeout")},
		Watchdog: WatchdogConfig{
			Enabled:     v.GetBool("watchdog.enabled"),
			AutoSwitch:  v.GetBool("watchdog.auto_switch"),
			Interval:    v.GetDuration("watchdog.interval"),
			GracePeriod: v.GetDuration("watchdog.grace_period"),
		},
		Notify: NotifyConfig{WebhookURL: v.GetString("notify.webhook_url")},
		Server: ServerConfig{Listen: v.GetString("server.listen")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Accounts.Max < 1 || c.Accounts.Max > MaxAccountsCeiling {
		errs = append(errs, fmt.Errorf("accounts.max must be between 1 and %d, got %d", MaxAccountsCeiling, c.Accounts.Max))
	}
	if c.Accounts.MinBalance < 0 {
		errs = append(errs, fmt.Errorf("accounts.min_balance must be >= 0, got %v", c.Accounts.MinBalance))
	}
	if c.Accounts.InitialBalance < 0 {
		errs = append(errs, fmt.Errorf("accounts.initial_balance must be >= 0, got %v", c.Accounts.InitialBalance))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}

	positive := map[string]time.Duration{
		"setup.step1_timeout":    c.Setup.Step1Timeout,
		"setup.step2_timeout":    c.Setup.Step2Timeout,
		"session.ready_timeout":  c.Session.ReadyTimeout,
		"session.ready_interval": c.Session.ReadyInterval,
		"session.run_timeout":    c.Session.RunTimeout,
		"command.timeout":        c.Command.Timeout,
		"watchdog.interval":      c.Watchdog.Interval,
		"watchdog.grace_period":  c.Watchdog.GracePeriod,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", key))
		}
	}
	if c.Session.BootDelay < 0 {
		errs = append(errs, errors.New("session.boot_delay must not be negative"))
	}

	switch c.KeyStore {
	case "file", "pass":
	default:
		errs = append(errs, fmt.Errorf("encryption.key_store must be file or pass, got %q", c.KeyStore))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", raw, err)
	}

	return level, nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
