package application

import (
	"context"

	"github.com/bnema/modal-accounts-cli/internal/domain"
)

type Overview struct {
	Accounts       []domain.Account
	Active         *domain.Account
	TotalBalance   float64
	MaxAccounts    int
	MinBalance     float64
	Session        domain.SessionStatus
	SetupsInFlight []string
}

// Available counts accounts a rotation could pick right now.
func (o Overview) Available() int {
	count := 0
	for _, account := range o.Accounts {
		if !account.IsActive && account.Status != domain.StatusDead && !account.BelowThreshold(o.MinBalance) {
			count++
		}
	}

	return count
}

func (c *Coordinator) Overview(ctx context.Context) (Overview, error) {
	accounts, err := c.store.All(ctx)
	if err != nil {
		return Overview{}, err
	}
	total, err := c.store.TotalBalance(ctx)
	if err != nil {
		return Overview{}, err
	}

	overview := Overview{
		Accounts:       accounts,
		TotalBalance:   total,
		MaxAccounts:    c.store.MaxAccounts(),
		MinBalance:     c.opts.MinBalance,
		Session:        c.Status(ctx),
		SetupsInFlight: c.SetupsInFlight(),
	}
	for i := range accounts {
		if accounts[i].IsActive {
			active := accounts[i]
			overview.Active = &active
			break
		}
	}

	return overview, nil
}
