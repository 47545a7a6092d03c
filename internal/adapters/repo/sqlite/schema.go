package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	token_id TEXT NOT NULL,
	token_secret TEXT NOT NULL,
	balance REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'ready'
		CHECK (status IN ('ready', 'active', 'dead', 'building')),
	is_active INTEGER NOT NULL DEFAULT 0,
	selected_gpu TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_single_active
	ON accounts(is_active) WHERE is_active = 1;
CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);

CREATE TABLE IF NOT EXISTS usage_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	created_at TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_usage_log_account ON usage_log(account_id, created_at);
`

const accountColumns = `id, username, token_id, token_secret, balance, status, is_active, selected_gpu, created_at, updated_at`
