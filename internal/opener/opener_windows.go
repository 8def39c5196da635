//go:build windows

package opener

import (
	"os/exec"
	"syscall"
)

func command(path string) *exec.Cmd {
	cmd := exec.Command("cmd", "/c", "start", "", path)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	return cmd
}
