//go:build windows

package shell

import "os/exec"

func setProcessGroup(_ *exec.Cmd) {}
