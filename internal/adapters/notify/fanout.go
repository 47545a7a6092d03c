package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

var errNoNotifiers = errors.New("fanout needs at least one notifier")

// Fanout delivers to every notifier in order. One failing sink does not
// stop the rest; failures are joined.
type Fanout struct {
	notifiers []ports.Notifier
}

var _ ports.Notifier = (*Fanout)(nil)

func NewFanout(notifiers ...ports.Notifier) (*Fanout, error) {
	kept := make([]ports.Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			kept = append(kept, notifier)
		}
	}
	if len(kept) == 0 {
		return nil, errNoNotifiers
	}

	return &Fanout{notifiers: kept}, nil
}

func (f *Fanout) Notify(ctx context.Context, notification domain.Notification) error {
	var joined error

	for i, notifier := range f.notifiers {
		err := notifier.Notify(ctx, notification)
		if err == nil {
			continue
		}
		if shouldStop(err) {
			return err
		}
		joined = errors.Join(joined, fmt.Errorf("notifier %d: %w", i, err))
	}

	return joined
}

func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
