package brew

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Upgrader runs `brew upgrade`. All output, stdout and stderr, is progress;
// brew's exit code is the only success signal.
type Upgrader struct {
	opts options
}

// NewUpgrader creates an upgrade service.
func NewUpgrader(opts ...Option) *Upgrader {
	return &Upgrader{opts: newOptions(opts)}
}

// Upgrade runs `brew upgrade <name>`, streaming every output line to onLine.
func (u *Upgrader) Upgrade(ctx context.Context, name string, onLine func(string)) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("package name cannot be empty")
	}
	return u.run(ctx, []string{"upgrade", name}, onLine)
}

// UpgradeAll runs `brew upgrade` for every outdated package.
func (u *Upgrader) UpgradeAll(ctx context.Context, onLine func(string)) error {
	return u.run(ctx, []string{"upgrade"}, onLine)
}

func (u *Upgrader) run(ctx context.Context, args []string, onLine func(string)) error {
	if u.opts.stubExit != nil {
		if *u.opts.stubExit != 0 {
			return &ExecutionError{Args: args, ExitCode: *u.opts.stubExit, Stderr: u.opts.stubStderr}
		}
		return nil
	}

	path, err := u.opts.locate()
	if err != nil {
		return err
	}

	res, err := u.opts.runner.Run(ctx, path, args, RunOptions{
		StreamStdout: true,
		StreamStderr: true,
		OnLine:       onLine,
	})
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &ExecutionError{Args: args, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
	return nil
}
