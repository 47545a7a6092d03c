package modal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPlatform(t *testing.T) (*Platform, *mocks.MockCommandExecutor, *ProfileFile) {
	t.Helper()

	exec := mocks.NewMockCommandExecutor(t)
	profiles, err := NewProfileFile(filepath.Join(t.TempDir(), ".modal.toml"))
	require.NoError(t, err)

	return NewPlatform(Config{}, exec, profiles, nil), exec, profiles
}

func TestListProfilesParsesTableAndPlainOutput(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)

	table := strings.Join([]string{
		"┏━━━┳━━━━━━━━━┳━━━━━━━━━━━┓",
		"┃   ┃ Profile ┃ Workspace ┃",
		"┡━━━╇━━━━━━━━━╇━━━━━━━━━━━┩",
		"│ • │ alice   │ alice-ws  │",
		"│   │ bob     │ bob-ws    │",
		"└───┴─────────┴───────────┘",
	}, "\n")
	exec.EXPECT().Run(mock.Anything, "modal profile list", mock.Anything).
		Return(domain.CommandResult{Stdout: table}).Once()
	exec.EXPECT().Run(mock.Anything, "modal profile list", mock.Anything).
		Return(domain.CommandResult{Stdout: "alice\n\nbob\n"}).Once()

	profiles, err := platform.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, profiles)

	profiles, err = platform.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, profiles)
}

func TestCommandFailuresBecomeRemoteCommandErrors(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)

	exec.EXPECT().Run(mock.Anything, "modal app stop comfyui-antique", mock.Anything).
		Return(domain.CommandResult{ExitCode: 1, Stderr: "app not found"})

	err := platform.StopApp(context.Background())
	require.ErrorIs(t, err, domain.ErrRemoteCommand)
	assert.ErrorContains(t, err, "app not found")
}

func TestCurrentProfileTrimsOutput(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, "modal profile current", mock.Anything).
		Return(domain.CommandResult{Stdout: "alice\n"})

	current, err := platform.CurrentProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", current)
}

func TestCreateProfileWritesFileThenActivates(t *testing.T) {
	platform, exec, profiles := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, "modal profile activate alice", mock.Anything).
		Return(domain.CommandResult{})

	err := platform.CreateProfile(context.Background(), "alice", domain.Credentials{TokenID: "ak-1234567890", TokenSecret: "as-1234567890"})
	require.NoError(t, err)

	data, err := os.ReadFile(profiles.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[alice]")
	assert.Contains(t, string(data), "ak-1234567890")
}

func TestCreateProfileReportsActivationFailure(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, "modal profile activate alice", mock.Anything).
		Return(domain.CommandResult{ExitCode: 2, Stderr: "boom"})

	err := platform.CreateProfile(context.Background(), "alice", domain.Credentials{TokenID: "ak-1234567890", TokenSecret: "as-1234567890"})
	require.ErrorIs(t, err, domain.ErrRemoteCommand)
	assert.ErrorContains(t, err, "activation failed")
}

func TestRunScriptExportsGPUAndPassesTimeout(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, "GPU_TYPE=A100-80GB modal run app1.py::run", 4*time.Hour).
		Return(domain.CommandResult{})

	require.NoError(t, platform.RunScript(context.Background(), "app1.py", "A100-80GB", 4*time.Hour))
}

func TestRunScriptTimeoutIsRemoteError(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, mock.Anything, mock.Anything).
		Return(domain.CommandResult{ExitCode: domain.TimedOutExitCode, Stderr: "command timed out"})

	err := platform.RunScript(context.Background(), "app2.py", "T4", time.Minute)

	var remote *domain.RemoteCommandError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, domain.TimedOutExitCode, remote.ExitCode)
}

func TestPathExists(t *testing.T) {
	tests := []struct {
		name    string
		result  domain.CommandResult
		want    bool
		wantErr bool
	}{
		{name: "listed", result: domain.CommandResult{Stdout: "models\ncustom_nodes"}, want: true},
		{name: "empty listing", result: domain.CommandResult{}, want: false},
		{name: "missing path", result: domain.CommandResult{ExitCode: 1, Stderr: "No such file"}, want: false},
		{name: "timeout", result: domain.CommandResult{ExitCode: domain.TimedOutExitCode}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			platform, exec, _ := newTestPlatform(t)
			exec.EXPECT().Run(mock.Anything, "modal volume ls workspace /root/workspace/ComfyUI", mock.Anything).Return(tc.result)

			got, err := platform.PathExists(context.Background(), "/root/workspace/ComfyUI")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSetTokenQuotesValues(t *testing.T) {
	platform, exec, _ := newTestPlatform(t)
	exec.EXPECT().Run(mock.Anything, "modal token set --token-id ak-1234567890 --token-secret 'as-12345$67890' --profile alice", mock.Anything).
		Return(domain.CommandResult{})

	require.NoError(t, platform.SetToken(context.Background(), "alice", domain.Credentials{TokenID: "ak-1234567890", TokenSecret: "as-12345$67890"}))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "alice", shellQuote("alice"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
}
