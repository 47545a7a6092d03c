package httpapi

import (
	"time"

	"github.com/bnema/modal-accounts-cli/internal/application"
	"github.com/bnema/modal-accounts-cli/internal/domain"
)

// AccountView is the wire form of an account. Secrets never leave the daemon.
type AccountView struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Balance     float64   `json:"balance"`
	Status      string    `json:"status"`
	IsActive    bool      `json:"is_active"`
	SelectedGPU string    `json:"selected_gpu,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OverviewView struct {
	Accounts       []AccountView `json:"accounts"`
	Active         string        `json:"active,omitempty"`
	TotalBalance   float64       `json:"total_balance"`
	MaxAccounts    int           `json:"max_accounts"`
	MinBalance     float64       `json:"min_balance"`
	Available      int           `json:"available"`
	Session        SessionView   `json:"session"`
	SetupsInFlight []string      `json:"setups_in_flight,omitempty"`
}

type DeploymentView struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	GPU        string    `json:"gpu"`
	ComfyUIURL string    `json:"comfyui_url,omitempty"`
	JupyterURL string    `json:"jupyter_url,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

type SessionView struct {
	State      string          `json:"state"`
	Ready      bool            `json:"ready"`
	Deployment *DeploymentView `json:"deployment,omitempty"`
}

type UsageEntryView struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

type BalanceView struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

type BalancesView struct {
	Balances map[string]float64 `json:"balances"`
	Error    string             `json:"error,omitempty"`
}

type PendingView struct {
	Username string    `json:"username"`
	Deadline time.Time `json:"deadline"`
}

type WatchdogView struct {
	Enabled     bool          `json:"enabled"`
	AutoSwitch  bool          `json:"auto_switch"`
	Interval    string        `json:"interval,omitempty"`
	GracePeriod string        `json:"grace_period,omitempty"`
	Pending     []PendingView `json:"pending"`
}

type SetupAccepted struct {
	Username string `json:"username"`
	GPU      string `json:"gpu,omitempty"`
}

type HealthView struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type addAccountRequest struct {
	Username    string `json:"username" binding:"required"`
	TokenID     string `json:"token_id" binding:"required"`
	TokenSecret string `json:"token_secret" binding:"required"`
}

type gpuRequest struct {
	GPU string `json:"gpu" binding:"required"`
}

type startSessionRequest struct {
	Username string `json:"username" binding:"required"`
	GPU      string `json:"gpu"`
}

type setupRequest struct {
	Username string `json:"username" binding:"required"`
	GPU      string `json:"gpu"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newAccountView(account domain.Account) AccountView {
	return AccountView{
		ID:          int64(account.ID),
		Username:    account.Username,
		Balance:     account.Balance,
		Status:      string(account.Status),
		IsActive:    account.IsActive,
		SelectedGPU: account.SelectedGPU,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

func newSessionView(status domain.SessionStatus) SessionView {
	view := SessionView{State: string(status.State), Ready: status.Ready}
	if status.Deployment != nil {
		deployment := newDeploymentView(*status.Deployment)
		view.Deployment = &deployment
	}

	return view
}

func newDeploymentView(deployment domain.Deployment) DeploymentView {
	return DeploymentView{
		ID:         deployment.ID,
		Username:   deployment.Username,
		GPU:        deployment.GPU,
		ComfyUIURL: deployment.ComfyUIURL,
		JupyterURL: deployment.JupyterURL,
		StartedAt:  deployment.StartedAt,
	}
}

func newOverviewView(overview application.Overview) OverviewView {
	view := OverviewView{
		Accounts:       make([]AccountView, 0, len(overview.Accounts)),
		TotalBalance:   overview.TotalBalance,
		MaxAccounts:    overview.MaxAccounts,
		MinBalance:     overview.MinBalance,
		Available:      overview.Available(),
		Session:        newSessionView(overview.Session),
		SetupsInFlight: overview.SetupsInFlight,
	}
	for _, account := range overview.Accounts {
		view.Accounts = append(view.Accounts, newAccountView(account))
	}
	if overview.Active != nil {
		view.Active = overview.Active.Username
	}

	return view
}

func newUsageEntryViews(entries []domain.UsageLogEntry) []UsageEntryView {
	views := make([]UsageEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, UsageEntryView{
			ID:        entry.ID,
			Action:    string(entry.Action),
			Timestamp: entry.Timestamp,
			Details:   entry.Details,
		})
	}

	return views
}

// Overview converts the wire form back into the application model for
// rendering on the client side.
func (v OverviewView) Overview() application.Overview {
	overview := application.Overview{
		Accounts:       make([]domain.Account, 0, len(v.Accounts)),
		TotalBalance:   v.TotalBalance,
		MaxAccounts:    v.MaxAccounts,
		MinBalance:     v.MinBalance,
		Session:        v.Session.Status(),
		SetupsInFlight: v.SetupsInFlight,
	}
	for _, view := range v.Accounts {
		account := view.Account()
		overview.Accounts = append(overview.Accounts, account)
		if account.IsActive {
			active := account
			overview.Active = &active
		}
	}

	return overview
}

func (v AccountView) Account() domain.Account {
	return domain.Account{
		ID:          domain.AccountID(v.ID),
		Username:    v.Username,
		Balance:     v.Balance,
		Status:      domain.Status(v.Status),
		IsActive:    v.IsActive,
		SelectedGPU: v.SelectedGPU,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func (v SessionView) Status() domain.SessionStatus {
	status := domain.SessionStatus{State: domain.SessionState(v.State), Ready: v.Ready}
	if v.Deployment != nil {
		status.Deployment = &domain.Deployment{
			ID:         v.Deployment.ID,
			Username:   v.Deployment.Username,
			GPU:        v.Deployment.GPU,
			ComfyUIURL: v.Deployment.ComfyUIURL,
			JupyterURL: v.Deployment.JupyterURL,
			StartedAt:  v.Deployment.StartedAt,
		}
	}

	return status
}

func (v WatchdogView) PendingSwitches() []application.PendingSwitch {
	pending := make([]application.PendingSwitch, 0, len(v.Pending))
	for _, p := range v.Pending {
		pending = append(pending, application.PendingSwitch{Username: p.Username, Deadline: p.Deadline})
	}

	return pending
}
