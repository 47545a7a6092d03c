package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionState string

const (
	SessionStopped  SessionState = "stopped"
	SessionStarting SessionState = "starting"
	SessionRunning  SessionState = "running"
	SessionStopping SessionState = "stopping"
)

// Deployment is the one running remote session. It is never persisted.
type Deployment struct {
	ID         string
	Username   string
	GPU        string
	ComfyUIURL string
	JupyterURL string
	StartedAt  time.Time
}

type SessionStatus struct {
	State      SessionState
	Deployment *Deployment
	Ready      bool
}

type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r CommandResult) OK() bool {
	return r.ExitCode == 0
}

// TimedOutExitCode is reported by the executor when a command hits its deadline.
const TimedOutExitCode = -1

var gpuAliases = map[string]string{
	"T4":          "T4",
	"L4":          "L4",
	"A10":         "A10",
	"A10G":        "A10",
	"L40S":        "L40S",
	"A100":        "A100",
	"A100, 40 GB": "A100",
	"A100-40GB":   "A100",
	"A100, 80 GB": "A100-80GB",
	"A100-80GB":   "A100-80GB",
	"H100":        "H100",
	"H200":        "H200",
	"B200":        "B200",
}

// NormalizeGPU maps a display name or Modal GPU code onto the Modal code.
func NormalizeGPU(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if code, ok := gpuAliases[strings.ToUpper(trimmed)]; ok {
		return code, nil
	}
	if code, ok := gpuAliases[trimmed]; ok {
		return code, nil
	}

	return "", fmt.Errorf("%w: unknown GPU class %q", ErrValidation, name)
}
