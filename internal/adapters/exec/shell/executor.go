package shell

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultTimeout = 5 * time.Minute

	timedOutMessage = "command timed out"
	waitDelay       = 5 * time.Second
)

// Executor runs command lines through sh -c in their own process group so a
// timeout takes down every child the command spawned.
type Executor struct {
	shell          string
	defaultTimeout time.Duration
	logger         *slog.Logger
}

var _ ports.CommandExecutor = (*Executor)(nil)

type Option func(*Executor)

func WithDefaultTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		if timeout > 0 {
			e.defaultTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithShell(shell string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{shell: "sh", defaultTimeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Executor) loggerSafe() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}

	return slog.Default()
}

// Run never returns an error value. A timeout yields exit code -1 and a
// fixed stderr message; a command that cannot start yields -1 with the
// start error as stderr.
func (e *Executor) Run(ctx context.Context, command string, timeout time.Duration) domain.CommandResult {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.shell, "-c", command)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if runCtx.Err() != nil {
		e.loggerSafe().Warn("command aborted", "timeout", timeout, "elapsed", elapsed, "cause", runCtx.Err())
		return domain.CommandResult{
			ExitCode: domain.TimedOutExitCode,
			Stdout:   strings.TrimSpace(stdout.String()),
			Stderr:   timedOutMessage,
		}
	}

	result := domain.CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = domain.TimedOutExitCode
			if result.Stderr == "" {
				result.Stderr = err.Error()
			}
		}
	}

	e.loggerSafe().Debug("command finished", "exit_code", result.ExitCode, "elapsed", elapsed)

	return result
}
