package workspace

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// CommandRunner executes shell commands on behalf of command_execute
// steps. The returned output becomes the step's recorded output.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// ShellRunner implements CommandRunner using sh -c.
type ShellRunner struct {
	// WorkDir is the working directory for commands (empty = current dir).
	WorkDir string

	// Timeout bounds each command; zero means no per-command timeout.
	Timeout time.Duration
}

// NewShellRunner creates a ShellRunner with the given timeout.
func NewShellRunner(workDir string, timeout time.Duration) *ShellRunner {
	return &ShellRunner{WorkDir: workDir, Timeout: timeout}
}

// Run executes a command and returns its combined output.
// On failure the output is still returned so callers can record it.
func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("command cannot be empty")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("command failed: %w: %s", err, string(output))
	}
	return string(output), nil
}

// Ensure ShellRunner implements CommandRunner
var _ CommandRunner = (*ShellRunner)(nil)
