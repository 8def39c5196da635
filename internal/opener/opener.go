// Package opener hands a path to the operating system's default
// application.
package opener

import (
	"fmt"
	"os"
)

// Open launches the default application for path without waiting for it.
func Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	cmd := command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
