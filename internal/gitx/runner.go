// Package gitx is the boundary to the host's git and ssh tooling: identity
// configuration, commit-history access, and the few operations that must go
// through the real binaries (commit, clone, ssh auth test).
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands. Commands that stream progress to the
// operator go through Run; Output captures stdout/stderr for inspection.
// Tests substitute a fake implementation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner is the default Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates the default process-backed Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (e *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.String(), stderr.String(), err
}

// Commit runs `git commit -m` in the current directory.
func Commit(ctx context.Context, r Runner, message string) error {
	return r.Run(ctx, "git", "commit", "-m", message)
}

// Clone runs `git clone` for the given URL.
func Clone(ctx context.Context, r Runner, url string) error {
	return r.Run(ctx, "git", "clone", url)
}

// TestSSHAuth probes the given ssh host alias with `ssh -T` and reports
// whether the remote confirmed authentication. ssh exits non-zero even on
// success (GitHub refuses the shell), so only the transcript decides.
func TestSSHAuth(ctx context.Context, r Runner, host string) (transcript string, ok bool) {
	stdout, stderr, _ := r.Output(ctx, "ssh", "-T", "git@"+host)
	transcript = strings.TrimSpace(stdout + "\n" + stderr)
	ok = strings.Contains(stdout, "successfully authenticated") ||
		strings.Contains(stderr, "successfully authenticated")
	return transcript, ok
}
