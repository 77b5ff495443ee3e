package util

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RequireBinary fails fast when name cannot be found on PATH.
func RequireBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("required binary %q not found in PATH", name)
	}
	return nil
}

// Run executes argv and returns its combined output. The process is killed
// when ctx is cancelled.
func Run(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("run: empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return string(out), nil
}
