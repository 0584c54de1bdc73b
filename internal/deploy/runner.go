// Package deploy publishes the on-disk data file by committing it and pushing
// to the remote repository with the git command line tool.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one external command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output joins stdout and stderr for diagnostics.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// OK reports a zero exit code.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner runs a command in dir. A non-zero exit is reported through
// Result.ExitCode; the error is reserved for commands that could not start.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

// Tool is a resolved git invocation, e.g. {Name: "wsl", Prefix: ["git"]}.
type Tool struct {
	Name   string
	Prefix []string
}

func (t Tool) String() string {
	return strings.Join(append([]string{t.Name}, t.Prefix...), " ")
}

func (t Tool) run(ctx context.Context, r Runner, dir string, args ...string) (Result, error) {
	full := append(append([]string{}, t.Prefix...), args...)
	return r.Run(ctx, dir, t.Name, full...)
}
