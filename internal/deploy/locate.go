package deploy

import (
	"context"
	"runtime"
	"strings"
)

// Locator finds a working git installation by probing candidates in order.
type Locator struct {
	Runner     Runner
	Candidates []Tool
}

// NewLocator probes the configured binary first, then git on PATH, then the
// platform-specific fallbacks.
func NewLocator(r Runner, configured string) *Locator {
	return &Locator{Runner: r, Candidates: DefaultCandidates(configured, runtime.GOOS)}
}

// DefaultCandidates lists the invocations tried for goos.
func DefaultCandidates(configured, goos string) []Tool {
	var out []Tool
	if c := strings.Fields(configured); len(c) > 0 {
		out = append(out, Tool{Name: c[0], Prefix: c[1:]})
	}
	out = append(out, Tool{Name: "git"})
	if goos == "windows" {
		out = append(out,
			Tool{Name: `C:\Program Files\Git\cmd\git.exe`},
			Tool{Name: `C:\Program Files (x86)\Git\cmd\git.exe`},
			Tool{Name: "wsl", Prefix: []string{"git"}},
		)
	} else {
		out = append(out, Tool{Name: "/usr/bin/git"}, Tool{Name: "/usr/local/bin/git"})
	}
	return out
}

// Locate returns the first candidate answering `--version`.
func (l *Locator) Locate(ctx context.Context) (Tool, error) {
	var tried []string
	for _, c := range l.Candidates {
		res, err := c.run(ctx, l.Runner, "", "--version")
		if err == nil && res.OK() && strings.Contains(res.Stdout, "git version") {
			return c, nil
		}
		tried = append(tried, c.String())
	}
	return Tool{}, &Error{
		Kind:   KindToolNotFound,
		Step:   "locate",
		Output: "tried: " + strings.Join(tried, ", "),
	}
}
