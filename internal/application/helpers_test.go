package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/adapters/modal"
	sqliterepo "github.com/bnema/modal-accounts-cli/internal/adapters/repo/sqlite"
	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testComfyURL = "http://comfy.test"
	testSentinel = "/ComfyUI/.installed"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// sealCipher marks values instead of encrypting them so tests can tell
// ciphertext from plaintext.
type sealCipher struct{}

func (sealCipher) Encrypt(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (sealCipher) Decrypt(ciphertext string) (string, error) {
	plaintext, ok := strings.CutPrefix(ciphertext, "sealed:")
	if !ok {
		return "", fmt.Errorf("%w: not sealed", domain.ErrDecryption)
	}
	return plaintext, nil
}

func newTestRepo(t *testing.T) *sqliterepo.Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := sqliterepo.New(context.Background(), db, nil)
	require.NoError(t, err)

	return repo
}

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()

	return NewCredentialStore(newTestRepo(t), sealCipher{}, nil, CredentialStoreOptions{
		MaxAccounts:    DefaultMaxAccounts,
		InitialBalance: DefaultInitialBalance,
	})
}

// fakeExecutor plays the Modal CLI: it tracks known profiles and the current
// one, answers volume listings from volumeFiles, and lets tests fail or
// block commands by substring.
type fakeExecutor struct {
	mu          sync.Mutex
	commands    []string
	issuedUnder []string
	profiles    []string
	current     string
	volumeFiles map[string]bool
	failures    map[string]domain.CommandResult
	gates       map[string]chan struct{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		volumeFiles: map[string]bool{},
		failures:    map[string]domain.CommandResult{},
		gates:       map[string]chan struct{}{},
	}
}

func (f *fakeExecutor) Run(ctx context.Context, command string, _ time.Duration) domain.CommandResult {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.issuedUnder = append(f.issuedUnder, f.current)
	var gate chan struct{}
	for fragment, ch := range f.gates {
		if strings.Contains(command, fragment) {
			gate = ch
		}
	}
	var failure *domain.CommandResult
	for fragment, result := range f.failures {
		if strings.Contains(command, fragment) {
			result := result
			failure = &result
		}
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.CommandResult{ExitCode: domain.TimedOutExitCode, Stderr: "command timed out"}
		}
	}
	if failure != nil {
		return *failure
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fields := strings.Fields(command)
	switch {
	case command == "modal profile list":
		return domain.CommandResult{Stdout: strings.Join(f.profiles, "\n")}
	case command == "modal profile current":
		return domain.CommandResult{Stdout: f.current + "\n"}
	case strings.HasPrefix(command, "modal profile activate "):
		name := strings.Trim(fields[len(fields)-1], "'")
		if !slices.Contains(f.profiles, name) {
			f.profiles = append(f.profiles, name)
		}
		f.current = name
	case strings.HasPrefix(command, "modal volume ls "):
		path := strings.Trim(fields[len(fields)-1], "'")
		if f.volumeFiles[path] {
			return domain.CommandResult{Stdout: path + "\n"}
		}
		return domain.CommandResult{ExitCode: 1, Stderr: "No such file or directory"}
	}

	return domain.CommandResult{}
}

func (f *fakeExecutor) fail(fragment string, result domain.CommandResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fragment] = result
}

func (f *fakeExecutor) gate(fragment string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[fragment] = ch
	return ch
}

func (f *fakeExecutor) count(fragment string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, command := range f.commands {
		if strings.Contains(command, fragment) {
			n++
		}
	}
	return n
}

// profileFor returns the profile that was current when the last command
// containing fragment was issued.
func (f *fakeExecutor) profileFor(fragment string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.commands) - 1; i >= 0; i-- {
		if strings.Contains(f.commands[i], fragment) {
			return f.issuedUnder[i], true
		}
	}
	return "", false
}

func (f *fakeExecutor) currentProfile() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// fakeBalances reports the balance of whichever profile is current.
type fakeBalances struct {
	mu     sync.Mutex
	exec   *fakeExecutor
	values map[string]float64
}

func (b *fakeBalances) ReadBalance(context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	profile := b.exec.currentProfile()
	value, ok := b.values[profile]
	if !ok {
		return 0, errors.New("balance document missing for " + profile)
	}
	return value, nil
}

func (b *fakeBalances) set(username string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[username] = value
}

type fakeProbe struct {
	ready atomic.Bool
	calls atomic.Int32
}

func (p *fakeProbe) IsReady(context.Context, string) bool {
	p.calls.Add(1)
	return p.ready.Load()
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []domain.Notification
	holds map[domain.NotificationKind]chan struct{}
}

// hold makes Notify block after recording kind until the channel is closed.
func (n *recordingNotifier) hold(kind domain.NotificationKind) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.holds == nil {
		n.holds = map[domain.NotificationKind]chan struct{}{}
	}
	ch := make(chan struct{})
	n.holds[kind] = ch
	return ch
}

func (n *recordingNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	n.mu.Lock()
	n.sent = append(n.sent, notification)
	hold := n.holds[notification.Kind]
	n.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()

	kinds := make([]domain.NotificationKind, 0, len(n.sent))
	for _, notification := range n.sent {
		kinds = append(kinds, notification.Kind)
	}
	return kinds
}

func (n *recordingNotifier) has(kind domain.NotificationKind) bool {
	return slices.Contains(n.kinds(), kind)
}

type harness struct {
	store       *CredentialStore
	exec        *fakeExecutor
	platform    *modal.Platform
	profiles    *modal.ProfileFile
	balances    *fakeBalances
	probe       *fakeProbe
	coordinator *Coordinator
}

func newHarness(t *testing.T, configure ...func(*CoordinatorOptions)) *harness {
	t.Helper()

	profiles, err := modal.NewProfileFile(filepath.Join(t.TempDir(), ".modal.toml"))
	require.NoError(t, err)

	exec := newFakeExecutor()
	platform := modal.NewPlatform(modal.Config{}, exec, profiles, nil)
	balances := &fakeBalances{exec: exec, values: map[string]float64{}}
	probe := &fakeProbe{}
	probe.ready.Store(true)

	opts := CoordinatorOptions{
		MinBalance:       DefaultMinBalance,
		RunScript:        "comfyui_app.py",
		ComfyUIURL:       testComfyURL,
		JupyterURL:       "http://jupyter.test",
		ReadyTimeout:     200 * time.Millisecond,
		ReadyInterval:    time.Millisecond,
		SetupStep1Script: "setup_step1.py",
		SetupStep2Script: "setup_step2.py",
		SentinelPath:     testSentinel,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	store := newTestStore(t)
	coordinator := NewCoordinator(store, platform, balances, probe, nil, opts)
	t.Cleanup(coordinator.Wait)

	return &harness{
		store:       store,
		exec:        exec,
		platform:    platform,
		profiles:    profiles,
		balances:    balances,
		probe:       probe,
		coordinator: coordinator,
	}
}

func (h *harness) addAccount(t *testing.T, username string, balance float64) domain.Account {
	t.Helper()

	ctx := context.Background()
	_, err := h.store.Add(ctx, AddAccountCommand{
		Username:    username,
		TokenID:     "ak-" + username + "-token",
		TokenSecret: "as-" + username + "-secret",
	})
	require.NoError(t, err)
	require.NoError(t, h.store.UpdateBalance(ctx, username, balance))

	account, err := h.store.ByUsername(ctx, username)
	require.NoError(t, err)
	return account
}

func (h *harness) account(t *testing.T, username string) domain.Account {
	t.Helper()

	account, err := h.store.ByUsername(context.Background(), username)
	require.NoError(t, err)
	return account
}
