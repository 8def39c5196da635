//go:build !windows && !darwin

package opener

import "os/exec"

func command(path string) *exec.Cmd {
	return exec.Command("xdg-open", path)
}
