package deploy

import (
	"fmt"
	"strings"
)

// Kind classifies a deploy failure.
type Kind string

const (
	KindToolNotFound Kind = "tool_not_found"
	KindConflict     Kind = "conflict"
	KindNetwork      Kind = "network"
	KindCommand      Kind = "command"
)

// Error is returned by Workflow.Run. Output carries the raw tool diagnostics.
type Error struct {
	Kind   Kind
	Step   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("deploy %s: %s", e.Step, e.Message())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the user-facing summary for the failure kind.
func (e *Error) Message() string {
	switch e.Kind {
	case KindToolNotFound:
		return "git executable not found; install git or set DEPLOY_GIT_BINARY"
	case KindConflict:
		return "pull --rebase hit a conflict; resolve it manually in the repository and deploy again"
	case KindNetwork:
		return "could not reach the remote repository; check your proxy settings"
	default:
		return fmt.Sprintf("git %s failed", e.Step)
	}
}

var networkMarkers = []string{
	"connection refused",
	"connection reset",
	"could not resolve host",
	"could not resolve proxy",
	"failed to connect",
	"timed out",
	"recv failure",
	"network is unreachable",
}

func isNetworkFailure(output string) bool {
	low := strings.ToLower(output)
	for _, m := range networkMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

var conflictMarkers = []string{
	"conflict",
	"could not apply",
	"resolve all conflicts",
}

func isConflict(output string) bool {
	low := strings.ToLower(output)
	for _, m := range conflictMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

func isNothingToCommit(output string) bool {
	low := strings.ToLower(output)
	return strings.Contains(low, "nothing to commit") || strings.Contains(low, "nothing added to commit")
}
