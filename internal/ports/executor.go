package ports

import (
	"context"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

// CommandExecutor runs a shell command line. Failures are reported through
// the result, never as an error value.
type CommandExecutor interface {
	Run(ctx context.Context, command string, timeout time.Duration) domain.CommandResult
}
