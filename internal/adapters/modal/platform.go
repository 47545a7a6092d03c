package modal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultBinary  = "modal"
	DefaultAppName = "comfyui-antique"
	DefaultVolume  = "workspace"

	quickCommandTimeout = 2 * time.Minute
)

type Config struct {
	Binary      string
	ProfilePath string
	AppName     string
	Volume      string
	BalancePath string
}

func (c *Config) applyDefaults() {
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.Volume == "" {
		c.Volume = DefaultVolume
	}
}

// Platform drives the Modal CLI through a CommandExecutor.
type Platform struct {
	cfg      Config
	exec     ports.CommandExecutor
	profiles *ProfileFile
	logger   *slog.Logger
}

var _ ports.ComputePlatform = (*Platform)(nil)

func NewPlatform(cfg Config, exec ports.CommandExecutor, profiles *ProfileFile, logger *slog.Logger) *Platform {
	cfg.applyDefaults()

	return &Platform{cfg: cfg, exec: exec, profiles: profiles, logger: logger}
}

func (p *Platform) loggerSafe() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}

	return slog.Default()
}

func (p *Platform) ListProfiles(ctx context.Context) ([]string, error) {
	result := p.exec.Run(ctx, p.command("profile", "list"), quickCommandTimeout)
	if !result.OK() {
		return nil, remoteError("modal profile list", result)
	}

	return parseProfileList(result.Stdout), nil
}

func (p *Platform) CurrentProfile(ctx context.Context) (string, error) {
	result := p.exec.Run(ctx, p.command("profile", "current"), quickCommandTimeout)
	if !result.OK() {
		return "", remoteError("modal profile current", result)
	}

	return strings.TrimSpace(result.Stdout), nil
}

func (p *Platform) ActivateProfile(ctx context.Context, name string) error {
	result := p.exec.Run(ctx, p.command("profile", "activate", shellQuote(name)), quickCommandTimeout)
	if !result.OK() {
		return remoteError("modal profile activate", result)
	}

	p.loggerSafe().Info("modal profile activated", "profile", name)
	return nil
}

// CreateProfile writes the token pair into the profile file and activates it.
func (p *Platform) CreateProfile(ctx context.Context, name string, creds domain.Credentials) error {
	if p.profiles == nil {
		return fmt.Errorf("create profile %q: no profile file configured", name)
	}
	if err := p.profiles.Upsert(ctx, name, creds); err != nil {
		return fmt.Errorf("create profile %q: %w", name, err)
	}

	p.loggerSafe().Info("modal profile written", "profile", name)

	if err := p.ActivateProfile(ctx, name); err != nil {
		return fmt.Errorf("profile %q written but activation failed: %w", name, err)
	}

	return nil
}

// SetToken stores a token pair through the CLI instead of the profile file.
func (p *Platform) SetToken(ctx context.Context, name string, creds domain.Credentials) error {
	command := p.command("token", "set",
		"--token-id", shellQuote(creds.TokenID),
		"--token-secret", shellQuote(creds.TokenSecret),
		"--profile", shellQuote(name),
	)
	result := p.exec.Run(ctx, command, quickCommandTimeout)
	if !result.OK() {
		return remoteError("modal token set", result)
	}

	return nil
}

// RunScript runs `modal run <script>::run` with GPU_TYPE exported.
func (p *Platform) RunScript(ctx context.Context, script string, gpu string, timeout time.Duration) error {
	command := "GPU_TYPE=" + shellQuote(gpu) + " " + p.command("run", shellQuote(script+"::run"))

	p.loggerSafe().Info("modal run started", "script", script, "gpu", gpu, "timeout", timeout)
	result := p.exec.Run(ctx, command, timeout)
	if !result.OK() {
		return remoteError("modal run "+script, result)
	}

	return nil
}

func (p *Platform) StopApp(ctx context.Context) error {
	result := p.exec.Run(ctx, p.command("app", "stop", shellQuote(p.cfg.AppName)), quickCommandTimeout)
	if !result.OK() {
		return remoteError("modal app stop", result)
	}

	return nil
}

// PathExists lists remotePath on the volume; a clean exit with any output
// counts as present.
func (p *Platform) PathExists(ctx context.Context, remotePath string) (bool, error) {
	result := p.exec.Run(ctx, p.command("volume", "ls", shellQuote(p.cfg.Volume), shellQuote(remotePath)), quickCommandTimeout)
	if result.ExitCode == domain.TimedOutExitCode {
		return false, remoteError("modal volume ls", result)
	}

	return result.OK() && strings.TrimSpace(result.Stdout) != "", nil
}

func (p *Platform) downloadFile(ctx context.Context, remotePath, localPath string) error {
	command := p.command("volume", "get", "--force", shellQuote(p.cfg.Volume), shellQuote(remotePath), shellQuote(localPath))
	result := p.exec.Run(ctx, command, quickCommandTimeout)
	if !result.OK() {
		return remoteError("modal volume get", result)
	}

	return nil
}

func (p *Platform) command(args ...string) string {
	return p.cfg.Binary + " " + strings.Join(args, " ")
}

func remoteError(op string, result domain.CommandResult) error {
	return &domain.RemoteCommandError{Op: op, ExitCode: result.ExitCode, Stderr: result.Stderr}
}

// parseProfileList accepts both plain one-name-per-line output and the
// box-drawn table the CLI prints on a terminal.
func parseProfileList(stdout string) []string {
	profiles := make([]string, 0)
	seen := map[string]struct{}{}

	for _, line := range strings.Split(stdout, "\n") {
		name := profileFromLine(line)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		profiles = append(profiles, name)
	}

	return profiles
}

func profileFromLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	if !strings.ContainsAny(line, "│┃|") {
		if strings.ContainsAny(line, "━─┏┓┗┛┡┩└┘╇╋") {
			return ""
		}
		return strings.TrimSpace(strings.TrimLeft(line, "•*> "))
	}

	cells := strings.FieldsFunc(line, func(r rune) bool {
		return r == '│' || r == '┃' || r == '|'
	})
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" || cell == "•" || cell == "*" {
			continue
		}
		if strings.EqualFold(cell, "profile") {
			return ""
		}
		return cell
	}

	return ""
}

func shellQuote(value string) string {
	if value != "" && strings.IndexFunc(value, needsQuoting) < 0 {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:,=@+", r):
		return false
	default:
		return true
	}
}
