// Package infra implements infrastructure concerns (hosts file, privilege
// escalation, persistence, registry).
package infra

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands.
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete.
func (r *RealCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a command and returns its stdout.
func (r *RealCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Elevator runs a single shell command with administrator privileges.
// On macOS this raises the system credential prompt; dismissing the
// prompt fails the call. The prompt is the only human-timescale blocking
// step in the whole mutation path.
type Elevator interface {
	RunAsRoot(ctx context.Context, command string) error
}

// AdminElevator implements Elevator via osascript on macOS and sudo
// elsewhere.
type AdminElevator struct {
	cmd    CommandRunner
	prompt string
	logger *zap.Logger
}

// NewAdminElevator creates an elevator that shows prompt text in the
// credential dialog.
func NewAdminElevator(prompt string, logger *zap.Logger) *AdminElevator {
	return &AdminElevator{
		cmd:    &RealCommandRunner{},
		prompt: prompt,
		logger: logger,
	}
}

// NewAdminElevatorWithRunner creates an elevator with an injectable
// command runner (for testing).
func NewAdminElevatorWithRunner(cmd CommandRunner, prompt string, logger *zap.Logger) *AdminElevator {
	return &AdminElevator{cmd: cmd, prompt: prompt, logger: logger}
}

// RunAsRoot executes the shell command with elevated privileges.
func (e *AdminElevator) RunAsRoot(ctx context.Context, command string) error {
	var err error
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("do shell script %q with administrator privileges with prompt %q",
			command, e.prompt)
		_, err = e.cmd.Output(ctx, "osascript", "-e", script)
	} else {
		_, err = e.cmd.Output(ctx, "sudo", "sh", "-c", command)
	}
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("privileged command failed",
				zap.String("command", command),
				zap.Error(err))
		}
		return err
	}
	return nil
}

// PromptDismissed reports whether a privileged command failed because the
// user canceled the credential prompt rather than an I/O problem.
// osascript exits non-zero with "User canceled" on stderr; sudo prints
// variations of "a password is required".
func PromptDismissed(err error) bool {
	if err == nil {
		return false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.ToLower(string(exitErr.Stderr))
		if strings.Contains(stderr, "user canceled") ||
			strings.Contains(stderr, "user cancelled") ||
			strings.Contains(stderr, "password is required") ||
			strings.Contains(stderr, "incorrect password") {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user canceled") || strings.Contains(msg, "user cancelled")
}

// Ensure AdminElevator implements Elevator.
var _ Elevator = (*AdminElevator)(nil)
