package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/adapters/cipher/xchacha"
	sqliterepo "github.com/bnema/modal-accounts-cli/internal/adapters/repo/sqlite"
	"github.com/bnema/modal-accounts-cli/internal/application"
	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform keeps profiles in memory and records scripts it was asked to run.
type fakePlatform struct {
	mu       sync.Mutex
	profiles []string
	current  string
	scripts  []string
	balances map[string]float64
}

func (p *fakePlatform) ListProfiles(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.profiles), nil
}

func (p *fakePlatform) CurrentProfile(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakePlatform) ActivateProfile(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = name
	return nil
}

func (p *fakePlatform) CreateProfile(_ context.Context, name string, _ domain.Credentials) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = append(p.profiles, name)
	p.current = name
	return nil
}

func (p *fakePlatform) RunScript(_ context.Context, script string, _ string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, script)
	return nil
}

func (p *fakePlatform) StopApp(context.Context) error {
	return nil
}

func (p *fakePlatform) PathExists(context.Context, string) (bool, error) {
	return false, nil
}

func (p *fakePlatform) ReadBalance(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	balance, ok := p.balances[p.current]
	if !ok {
		return 0, &domain.RemoteCommandError{Op: "modal volume get", ExitCode: 1, Stderr: "not found"}
	}
	return balance, nil
}

func (p *fakePlatform) setBalance(username string, balance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[username] = balance
}

type readyProbe struct{}

func (readyProbe) IsReady(context.Context, string) bool { return true }

type testAPI struct {
	server   *Server
	client   *Client
	baseURL  string
	platform *fakePlatform
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := sqliterepo.New(ctx, db, nil)
	require.NoError(t, err)

	cipher, err := xchacha.New(bytes.Repeat([]byte{7}, xchacha.KeySize))
	require.NoError(t, err)

	store := application.NewCredentialStore(repo, cipher, nil, application.CredentialStoreOptions{InitialBalance: 80})
	platform := &fakePlatform{balances: map[string]float64{}}
	coordinator := application.NewCoordinator(store, platform, platform, readyProbe{}, nil, application.CoordinatorOptions{
		MinBalance:       2,
		RunScript:        "comfyui_app.py",
		ComfyUIURL:       "http://comfy.test",
		ReadyTimeout:     50 * time.Millisecond,
		ReadyInterval:    time.Millisecond,
		SetupStep1Script: "setup_step1.py",
		SetupStep2Script: "setup_step2.py",
	})
	watchdog := application.NewWatchdog(coordinator, nil, nil, application.WatchdogOptions{AutoSwitch: true})

	server := NewServer(ctx, coordinator, watchdog, nil)
	httpServer := httptest.NewServer(server.Handler(false))
	t.Cleanup(func() {
		httpServer.Close()
		server.Wait()
		coordinator.Wait()
	})

	return &testAPI{
		server:   server,
		client:   NewClient(httpServer.URL, httpServer.Client()),
		baseURL:  httpServer.URL,
		platform: platform,
	}
}

func (a *testAPI) add(t *testing.T, username string) {
	t.Helper()

	_, err := a.client.AddAccount(context.Background(), username, "ak-"+username+"-token", "as-"+username+"-secret")
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	health, err := api.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Version)
}

func TestAccountsListNeverExposesSecrets(t *testing.T) {
	api := newTestAPI(t)
	api.add(t, "alice")

	resp, err := http.Get(api.baseURL + "/api/accounts")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"username":"alice"`)
	assert.NotContains(t, string(raw), "ak-alice-token")
	assert.NotContains(t, string(raw), "as-alice-secret")

	overview, err := api.client.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Accounts, 1)
	assert.Equal(t, 80.0, overview.TotalBalance)
	assert.Equal(t, 1, overview.Available)
	assert.Equal(t, application.DefaultMaxAccounts, overview.MaxAccounts)
	assert.Equal(t, "stopped", overview.Session.State)
}

func TestErrorsMapToStatusAndSentinel(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")
	api.add(t, "broke")

	_, err := api.client.AddAccount(ctx, "al", "ak-1234567890", "as-1234567890")
	assertAPIError(t, err, http.StatusBadRequest, domain.ErrValidation)

	_, err = api.client.AddAccount(ctx, "alice", "ak-1234567890", "as-1234567890")
	assertAPIError(t, err, http.StatusConflict, domain.ErrDuplicate)

	_, err = api.client.SwitchTo(ctx, "nobody")
	assertAPIError(t, err, http.StatusNotFound, domain.ErrNotFound)

	api.platform.setBalance("broke", 1)
	_, err = api.client.CheckBalance(ctx, "broke")
	require.NoError(t, err)
	_, err = api.client.SwitchTo(ctx, "broke")
	assertAPIError(t, err, http.StatusPaymentRequired, domain.ErrInsufficientBalance)

	_, err = api.client.SwitchTo(ctx, "alice")
	require.NoError(t, err)
	err = api.client.RemoveAccount(ctx, "alice")
	assertAPIError(t, err, http.StatusConflict, domain.ErrActiveAccount)

	_, err = api.client.SwitchNext(ctx)
	assertAPIError(t, err, http.StatusServiceUnavailable, domain.ErrNoAvailableAccount)

	err = api.client.StopSession(ctx)
	assertAPIError(t, err, http.StatusConflict, domain.ErrNotRunning)
}

func assertAPIError(t *testing.T, err error, status int, sentinel error) {
	t.Helper()

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, status, apiErr.Status)
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")

	deployment, err := api.client.StartSession(ctx, "alice", "A100, 80 GB")
	require.NoError(t, err)
	assert.Equal(t, "alice", deployment.Username)
	assert.Equal(t, "A100-80GB", deployment.GPU)
	assert.NotEmpty(t, deployment.ID)

	_, err = api.client.StartSession(ctx, "alice", "")
	assertAPIError(t, err, http.StatusConflict, domain.ErrAlreadyRunning)

	session, err := api.client.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", session.State)
	assert.True(t, session.Ready)
	require.NotNil(t, session.Deployment)
	assert.Equal(t, deployment.ID, session.Deployment.ID)

	require.NoError(t, api.client.StopSession(ctx))
	session, err = api.client.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stopped", session.State)
	assert.Nil(t, session.Deployment)
}

func TestSetupRunsInBackground(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")

	accepted, err := api.client.RunSetup(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", accepted.Username)

	api.server.Wait()

	history, err := api.client.History(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(domain.ActionSetupFinished), history[0].Action)

	api.platform.mu.Lock()
	defer api.platform.mu.Unlock()
	assert.Equal(t, []string{"setup_step1.py", "setup_step2.py"}, api.platform.scripts)
}

func TestSetupUnknownAccountIsRejectedSynchronously(t *testing.T) {
	api := newTestAPI(t)

	_, err := api.client.RunSetup(context.Background(), "nobody", "")
	assertAPIError(t, err, http.StatusNotFound, domain.ErrNotFound)
}

func TestSetupNormalizesGPUBeforeAccepting(t *testing.T) {
	api := newTestAPI(t)
	api.add(t, "alice")

	_, err := api.client.RunSetup(context.Background(), "alice", "TPU-v5")
	assertAPIError(t, err, http.StatusBadRequest, domain.ErrValidation)

	accepted, err := api.client.RunSetup(context.Background(), "alice", "a100, 80 gb")
	require.NoError(t, err)
	assert.Equal(t, "A100-80GB", accepted.GPU)
	api.server.Wait()
}

func TestBalancesCheckReportsPartialFailures(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")
	api.add(t, "bob")
	api.platform.setBalance("alice", 42)

	result, err := api.client.CheckAllBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alice": 42}, result.Balances)
	assert.Contains(t, result.Error, "bob")
}

func TestGPUAndHistoryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")

	account, err := api.client.SetGPU(ctx, "alice", "h100")
	require.NoError(t, err)
	assert.Equal(t, "H100", account.SelectedGPU)

	_, err = api.client.SetGPU(ctx, "alice", "Z80")
	assertAPIError(t, err, http.StatusBadRequest, domain.ErrValidation)

	resp, err := http.Get(fmt.Sprintf("%s/api/accounts/alice/history?limit=-1", api.baseURL))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	history, err := api.client.History(ctx, "alice", 0)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, string(domain.ActionAccountAdded), history[len(history)-1].Action)
}

func TestWatchdogEndpoint(t *testing.T) {
	api := newTestAPI(t)

	view, err := api.client.Watchdog(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Enabled)
	assert.True(t, view.AutoSwitch)
	assert.Equal(t, "1h0m0s", view.Interval)
	assert.Equal(t, "20m0s", view.GracePeriod)
	assert.Empty(t, view.Pending)
}

func TestRemoveAccount(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")

	require.NoError(t, api.client.RemoveAccount(ctx, "alice"))

	overview, err := api.client.Overview(ctx)
	require.NoError(t, err)
	assert.Empty(t, overview.Accounts)
}

func TestMapErrorPrefersSpecificSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "wrapped validation", err: fmt.Errorf("add: %w", domain.ErrValidation), status: http.StatusBadRequest, code: "validation"},
		{name: "remote", err: &domain.RemoteCommandError{Op: "modal app stop", ExitCode: 1}, status: http.StatusBadGateway, code: "remote_command"},
		{name: "setup step", err: fmt.Errorf("setup step 1 failed: %w", &domain.RemoteCommandError{Op: "modal run", ExitCode: 2}), status: http.StatusBadGateway, code: "remote_command"},
		{name: "decryption", err: domain.ErrDecryption, status: http.StatusInternalServerError, code: "decryption"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: internalErrorCode},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestClientReportsNonJSONErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestOverviewViewRoundTripsToApplicationModel(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	api.add(t, "alice")
	api.add(t, "bob")
	_, err := api.client.SwitchTo(ctx, "bob")
	require.NoError(t, err)

	view, err := api.client.Overview(ctx)
	require.NoError(t, err)
	overview := view.Overview()

	require.Len(t, overview.Accounts, 2)
	require.NotNil(t, overview.Active)
	assert.Equal(t, "bob", overview.Active.Username)
	assert.Equal(t, domain.StatusActive, overview.Active.Status)
	assert.Equal(t, view.Available, overview.Available())
	assert.Equal(t, domain.SessionStopped, overview.Session.State)
}
