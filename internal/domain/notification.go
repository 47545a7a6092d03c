package domain

type NotificationKind string

const (
	NotifyLowBalance       NotificationKind = "low_balance"
	NotifyAccountSwitched  NotificationKind = "account_switched"
	NotifyNoAccounts       NotificationKind = "no_available_accounts"
	NotifyAutoSwitchFailed NotificationKind = "auto_switch_failed"
	NotifySetupStarted     NotificationKind = "setup_started"
	NotifySetupComplete    NotificationKind = "setup_complete"
	NotifySetupFailed      NotificationKind = "setup_failed"
)

type Notification struct {
	Kind     NotificationKind
	Title    string
	Message  string
	Username string
}

// Terminal notifications need a human; nothing retries after them.
func (n Notification) Terminal() bool {
	return n.Kind == NotifyNoAccounts || n.Kind == NotifyAutoSwitchFailed
}
