package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunSetupPhaseOneFailureSkipsPhaseTwo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addAccount(t, "alice", 80)
	h.exec.fail("setup_step1.py", domain.CommandResult{ExitCode: 1, Stderr: "pip install failed"})

	err := h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "setup step 1 failed")
	assert.ErrorIs(t, err, domain.ErrRemoteCommand)

	assert.Equal(t, 1, h.exec.count("setup_step1.py"))
	assert.Zero(t, h.exec.count("setup_step2.py"))
	assert.Equal(t, domain.StatusReady, h.account(t, "alice").Status)

	entries, err := h.store.History(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionSetupFailed, entries[0].Action)
	assert.Contains(t, entries[0].Details, "pip install failed")
}

func TestRunSetupPhaseTwoFailureLeavesReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addAccount(t, "alice", 80)
	h.exec.fail("setup_step2.py", domain.CommandResult{ExitCode: 2, Stderr: "model download failed"})

	err := h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "setup step 2 failed")
	assert.Equal(t, domain.StatusReady, h.account(t, "alice").Status)
}

func TestRunSetupRunsBothPhasesOnSetupGPU(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addAccount(t, "alice", 80)

	require.NoError(t, h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice"}))

	assert.Equal(t, 1, h.exec.count("GPU_TYPE=T4 modal run setup_step1.py::run"))
	assert.Equal(t, 1, h.exec.count("GPU_TYPE=T4 modal run setup_step2.py::run"))

	account := h.account(t, "alice")
	assert.True(t, account.IsActive)
	assert.Equal(t, domain.StatusReady, account.Status)

	entries, err := h.store.History(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionSetupFinished, entries[0].Action)
	assert.Equal(t, domain.ActionSetupStarted, entries[1].Action)
}

func TestRunSetupSkipsPhaseOneWhenSentinelExists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addAccount(t, "alice", 80)
	h.exec.volumeFiles[testSentinel] = true

	require.NoError(t, h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice", GPU: "L4"}))

	assert.Zero(t, h.exec.count("setup_step1.py"))
	assert.Equal(t, 1, h.exec.count("GPU_TYPE=L4 modal run setup_step2.py::run"))
}

func TestRunSetupMarksBuildingWhileRunning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addAccount(t, "alice", 80)
	release := h.exec.gate("setup_step2.py")

	done := make(chan error, 1)
	go func() {
		done <- h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice"})
	}()

	require.Eventually(t, func() bool {
		return h.exec.count("setup_step2.py") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, domain.StatusBuilding, h.account(t, "alice").Status)
	assert.Equal(t, []string{"alice"}, h.coordinator.SetupsInFlight())

	err := h.coordinator.RunSetup(ctx, SetupCommand{Username: "alice"})
	require.ErrorIs(t, err, domain.ErrSessionBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, h.coordinator.SetupsInFlight())
}

func TestRunSetupRunsPhaseOneWhenSentinelCheckFails(t *testing.T) {
	store := newTestStore(t)
	platform := mocks.NewMockComputePlatform(t)
	coordinator := NewCoordinator(store, platform, nil, nil, nil, CoordinatorOptions{
		MinBalance:       DefaultMinBalance,
		SetupStep1Script: "setup_step1.py",
		SetupStep2Script: "setup_step2.py",
		SentinelPath:     testSentinel,
	})
	ctx := context.Background()

	_, err := store.Add(ctx, AddAccountCommand{Username: "alice", TokenID: "ak-1234567890", TokenSecret: "as-1234567890"})
	require.NoError(t, err)

	platform.EXPECT().ListProfiles(mockAnyContext()).Return([]string{"alice"}, nil)
	platform.EXPECT().ActivateProfile(mockAnyContext(), "alice").Return(nil)
	platform.EXPECT().PathExists(mockAnyContext(), testSentinel).
		Return(false, &domain.RemoteCommandError{Op: "modal volume ls", ExitCode: domain.TimedOutExitCode, Stderr: "command timed out"})
	platform.EXPECT().RunScript(mockAnyContext(), "setup_step1.py", "T4", DefaultStep1Timeout).Return(nil)
	platform.EXPECT().RunScript(mockAnyContext(), "setup_step2.py", "T4", DefaultStep2Timeout).Return(nil)

	require.NoError(t, coordinator.RunSetup(ctx, SetupCommand{Username: "alice"}))
}

func TestRunSetupRejectsUnknownGPUBeforeSwitching(t *testing.T) {
	store := newTestStore(t)
	platform := mocks.NewMockComputePlatform(t)
	coordinator := NewCoordinator(store, platform, nil, nil, nil, CoordinatorOptions{})

	err := coordinator.RunSetup(context.Background(), SetupCommand{Username: "alice", GPU: "Z80"})
	require.ErrorIs(t, err, domain.ErrValidation)
	platform.AssertNotCalled(t, "ListProfiles", mock.Anything)
}

func TestRunSetupSwitchFailureIsReturned(t *testing.T) {
	store := newTestStore(t)
	platform := mocks.NewMockComputePlatform(t)
	coordinator := NewCoordinator(store, platform, nil, nil, nil, CoordinatorOptions{MinBalance: DefaultMinBalance})
	ctx := context.Background()

	_, err := store.Add(ctx, AddAccountCommand{Username: "alice", TokenID: "ak-1234567890", TokenSecret: "as-1234567890"})
	require.NoError(t, err)

	listErr := errors.New("modal: command not found")
	platform.EXPECT().ListProfiles(mockAnyContext()).Return(nil, listErr)

	err = coordinator.RunSetup(ctx, SetupCommand{Username: "alice"})
	require.ErrorIs(t, err, listErr)

	account, err := store.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, account.IsActive)
	assert.Equal(t, domain.StatusReady, account.Status)
}
