package brew

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RunOptions controls which of the child's streams are delivered line by line.
type RunOptions struct {
	StreamStdout bool
	StreamStderr bool
	OnLine       func(line string)
}

// RunResult is returned once the child has exited and both pipes are drained.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs an external executable. Implementations have no queueing:
// callers must serialize overlapping work themselves.
type Runner interface {
	Run(ctx context.Context, path string, args []string, opts RunOptions) (*RunResult, error)
}

// ExecRunner runs commands with os/exec.
//
// Lines from stdout and stderr are each delivered in the order the stream
// produced them; there is no ordering guarantee between the two streams.
// OnLine is never called concurrently. A trailing fragment without a newline
// is delivered once the stream reaches EOF. Empty lines are dropped.
//
// When ctx is cancelled, line delivery stops, the child is sent an interrupt,
// and Run returns ctx.Err() without waiting. The child is not guaranteed to
// terminate.
type ExecRunner struct{}

// Run starts path with args and blocks until it exits or ctx is done.
func (ExecRunner) Run(ctx context.Context, path string, args []string, opts RunOptions) (*RunResult, error) {
	cmd := exec.Command(path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: path, Err: err}
	}

	lines := make(chan string, 64)
	var outBuf, errBuf bytes.Buffer

	var g errgroup.Group
	g.Go(func() error { return pumpLines(stdout, &outBuf, opts.StreamStdout, lines) })
	g.Go(func() error { return pumpLines(stderr, &errBuf, opts.StreamStderr, lines) })

	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		for line := range lines {
			// Keep draining after cancellation so the pumps never block.
			if ctx.Err() == nil && opts.OnLine != nil {
				opts.OnLine(line)
			}
		}
	}()

	type outcome struct {
		res *RunResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		readErr := g.Wait()
		close(lines)
		<-delivered

		// Pipes must be fully read before Wait closes them.
		waitErr := cmd.Wait()

		res := &RunResult{
			Stdout: outBuf.Bytes(),
			Stderr: errBuf.Bytes(),
		}

		var exitErr *exec.ExitError
		switch {
		case waitErr == nil:
			res.ExitCode = 0
		case errors.As(waitErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			done <- outcome{err: errors.Wrapf(waitErr, "wait for %s", path)}
			return
		}

		if readErr != nil {
			done <- outcome{err: errors.Wrapf(readErr, "read output of %s", path)}
			return
		}
		done <- outcome{res: res}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		return nil, ctx.Err()
	}
}

// pumpLines copies r into buf and, when stream is set, sends each non-empty
// line to lines.
func pumpLines(r io.Reader, buf *bytes.Buffer, stream bool, lines chan<- string) error {
	reader := bufio.NewReader(io.TeeReader(r, buf))
	for {
		line, err := reader.ReadString('\n')
		if stream {
			if text := strings.TrimRight(line, "\r\n"); text != "" {
				lines <- text
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// The pipe is closed by Wait after a kill; nothing left to read.
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
