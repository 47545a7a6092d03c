package ports

import (
	"context"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

// ComputePlatform is the remote GPU platform as seen through its CLI.
type ComputePlatform interface {
	ListProfiles(ctx context.Context) ([]string, error)
	CurrentProfile(ctx context.Context) (string, error)
	ActivateProfile(ctx context.Context, name string) error
	CreateProfile(ctx context.Context, name string, creds domain.Credentials) error
	RunScript(ctx context.Context, script string, gpu string, timeout time.Duration) error
	StopApp(ctx context.Context) error
	PathExists(ctx context.Context, remotePath string) (bool, error)
}

type BalanceReader interface {
	ReadBalance(ctx context.Context) (float64, error)
}

type ReadinessProbe interface {
	IsReady(ctx context.Context, baseURL string) bool
}

type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}
