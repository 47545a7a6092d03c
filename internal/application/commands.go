package application

type AddAccountCommand struct {
	Username    string
	TokenID     string
	TokenSecret string
}

type StartSessionCommand struct {
	Username string
	// GPU is optional; empty falls back to the account's selection, then the configured default.
	GPU string
}

type SetupCommand struct {
	Username string
	GPU      string
}
