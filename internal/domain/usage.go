package domain

import "time"

type UsageAction string

const (
	ActionAccountAdded     UsageAction = "account_added"
	ActionAccountActivated UsageAction = "account_activated"
	ActionAccountRemoved   UsageAction = "account_removed"
	ActionBalanceChecked   UsageAction = "balance_checked"
	ActionStatusChanged    UsageAction = "status_changed"
	ActionSetupStarted     UsageAction = "setup_started"
	ActionSetupFinished    UsageAction = "setup_finished"
	ActionSetupFailed      UsageAction = "setup_failed"
	ActionSessionStarted   UsageAction = "session_started"
	ActionSessionStopped   UsageAction = "session_stopped"
)

// UsageLogEntry is append-only. AccountID may reference a removed account.
type UsageLogEntry struct {
	ID        int64
	AccountID AccountID
	Action    UsageAction
	Timestamp time.Time
	Details   string
}
