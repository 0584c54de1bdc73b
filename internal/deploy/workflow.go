package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	git "github.com/go-git/go-git/v5"

	"github.com/folio/folio/backend/go-services/pkg/logger"
	"github.com/folio/folio/backend/go-services/pkg/metrics"
)

// Options configures a Workflow. Zero values select the defaults.
type Options struct {
	Dir           string
	Remote        string
	Branch        string
	CommitMessage string
	// PushAttempts is the total number of push tries. Default 3.
	PushAttempts int
	// RetryDelay is the fixed pause between push tries. Default 2s.
	RetryDelay time.Duration
}

// Report describes a successful run.
type Report struct {
	Tool      string `json:"tool"`
	Committed bool   `json:"committed"`
	Attempts  int    `json:"attempts"`
	Commit    string `json:"commit,omitempty"`
}

// Workflow runs proxy setup, add, commit, pull --rebase and push.
type Workflow struct {
	runner  Runner
	locator *Locator
	opts    Options
	log     *logger.Component
	head    func(dir string) (string, error)
}

func NewWorkflow(r Runner, l *Locator, opts Options) *Workflow {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.CommitMessage == "" {
		opts.CommitMessage = "Update site content"
	}
	if opts.PushAttempts <= 0 {
		opts.PushAttempts = 3
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Workflow{runner: r, locator: l, opts: opts, log: logger.Named("deploy"), head: headCommit}
}

// Run publishes the working tree. proxy, when non-empty, is written to the
// global git http/https proxy settings; an empty proxy clears them. The proxy
// change outlives this call.
func (w *Workflow) Run(ctx context.Context, proxy string) (*Report, error) {
	rep, err := w.run(ctx, proxy)
	outcome := "success"
	if err != nil {
		outcome = string(KindCommand)
		var de *Error
		if errors.As(err, &de) {
			outcome = string(de.Kind)
		}
		w.log.Warnf("deploy failed: %v", err)
	}
	metrics.DeployRuns.WithLabelValues(outcome).Inc()
	return rep, err
}

func (w *Workflow) run(ctx context.Context, proxy string) (*Report, error) {
	tool, err := w.locator.Locate(ctx)
	if err != nil {
		return nil, err
	}
	w.log.Infof("using %s in %s", tool, w.opts.Dir)
	rep := &Report{Tool: tool.String()}

	if err := w.configureProxy(ctx, tool, proxy); err != nil {
		return nil, err
	}
	if _, err := w.step(ctx, tool, "add", "add", "-A"); err != nil {
		return nil, err
	}

	res, err := tool.run(ctx, w.runner, w.opts.Dir, "commit", "-m", w.opts.CommitMessage)
	if err != nil {
		return nil, &Error{Kind: KindCommand, Step: "commit", Err: err}
	}
	switch {
	case res.OK():
		rep.Committed = true
	case isNothingToCommit(res.Output()):
		w.log.Infof("nothing to commit, continuing")
	default:
		return nil, classify("commit", res)
	}

	res, err = tool.run(ctx, w.runner, w.opts.Dir, "pull", "--rebase", w.opts.Remote, w.opts.Branch)
	if err != nil {
		return nil, &Error{Kind: KindCommand, Step: "pull", Err: err}
	}
	if !res.OK() {
		if isConflict(res.Output()) {
			return nil, &Error{Kind: KindConflict, Step: "pull", Output: res.Output()}
		}
		return nil, classify("pull", res)
	}

	attempts, err := w.push(ctx, tool)
	rep.Attempts = attempts
	if err != nil {
		return rep, err
	}

	if hash, err := w.head(w.opts.Dir); err != nil {
		w.log.Debugf("read HEAD: %v", err)
	} else {
		rep.Commit = hash
	}
	return rep, nil
}

// push retries with a constant delay and returns the number of tries made.
func (w *Workflow) push(ctx context.Context, tool Tool) (int, error) {
	attempts := 0
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(w.opts.RetryDelay), uint64(w.opts.PushAttempts-1))
	err := backoff.Retry(func() error {
		attempts++
		metrics.DeployPushAttempts.Inc()
		res, err := tool.run(ctx, w.runner, w.opts.Dir, "push", w.opts.Remote, w.opts.Branch)
		if err != nil {
			return &Error{Kind: KindCommand, Step: "push", Err: err}
		}
		if !res.OK() {
			w.log.Warnf("push attempt %d/%d failed: %s", attempts, w.opts.PushAttempts, res.Output())
			return classify("push", res)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	return attempts, err
}

func (w *Workflow) configureProxy(ctx context.Context, tool Tool, proxy string) error {
	for _, key := range []string{"http.proxy", "https.proxy"} {
		if proxy != "" {
			if _, err := w.step(ctx, tool, "proxy", "config", "--global", key, proxy); err != nil {
				return err
			}
			continue
		}
		// exit status 5 means the key was not set
		if res, err := tool.run(ctx, w.runner, w.opts.Dir, "config", "--global", "--unset", key); err != nil || (!res.OK() && res.ExitCode != 5) {
			w.log.Debugf("unset %s: %v %s", key, err, res.Output())
		}
	}
	return nil
}

// step runs a command that must exit zero.
func (w *Workflow) step(ctx context.Context, tool Tool, name string, args ...string) (Result, error) {
	res, err := tool.run(ctx, w.runner, w.opts.Dir, args...)
	if err != nil {
		return res, &Error{Kind: KindCommand, Step: name, Err: err}
	}
	if !res.OK() {
		return res, classify(name, res)
	}
	return res, nil
}

func classify(step string, res Result) *Error {
	out := res.Output()
	kind := KindCommand
	if isNetworkFailure(out) {
		kind = KindNetwork
	}
	return &Error{Kind: kind, Step: step, Output: out, Err: fmt.Errorf("exit status %d", res.ExitCode)}
}

func headCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
