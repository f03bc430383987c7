package brew

import (
	"context"
)

// Option configures a Service or an Upgrader.
type Option func(*options)

type options struct {
	brewPath    string
	searchPaths []string
	runner      Runner

	// Test injection points. When set, no process is spawned.
	stubOutput *[]byte
	stubExit   *int
	stubStderr string
}

// WithBrewPath forces a specific brew executable. It must exist on disk.
func WithBrewPath(path string) Option {
	return func(o *options) { o.brewPath = path }
}

// WithSearchPaths replaces DefaultPaths for discovery.
func WithSearchPaths(paths ...string) Option {
	return func(o *options) { o.searchPaths = paths }
}

// WithRunner replaces the os/exec based runner.
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithStubOutput makes Service.FetchOutdated parse data directly instead of
// running brew.
func WithStubOutput(data []byte) Option {
	return func(o *options) { o.stubOutput = &data }
}

// WithStubResult makes Upgrader report the given exit code and stderr
// instead of running brew.
func WithStubResult(exitCode int, stderr string) Option {
	return func(o *options) {
		o.stubExit = &exitCode
		o.stubStderr = stderr
	}
}

func newOptions(opts []Option) options {
	o := options{
		searchPaths: DefaultPaths,
		runner:      ExecRunner{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) locate() (string, error) {
	return Locate(o.brewPath, o.searchPaths)
}

// outdatedArgs is brew's machine-readable "list outdated packages" subcommand.
var outdatedArgs = []string{"outdated", "--json=v2"}

// Service runs outdated checks against brew.
type Service struct {
	opts options
}

// NewService creates a check service.
func NewService(opts ...Option) *Service {
	return &Service{opts: newOptions(opts)}
}

// FetchOutdated runs `brew outdated --json=v2` and returns the parsed result.
// brew's stderr is forwarded to onLine (may be nil) as it arrives; stdout is
// buffered for parsing.
func (s *Service) FetchOutdated(ctx context.Context, onLine func(string)) (*Outdated, error) {
	if s.opts.stubOutput != nil {
		return parseForCheck(*s.opts.stubOutput)
	}

	path, err := s.opts.locate()
	if err != nil {
		return nil, err
	}

	res, err := s.opts.runner.Run(ctx, path, outdatedArgs, RunOptions{
		StreamStderr: true,
		OnLine:       onLine,
	})
	if err != nil {
		return nil, err
	}

	if res.ExitCode != 0 {
		return nil, &ExecutionError{
			Args:     outdatedArgs,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
		}
	}

	return parseForCheck(res.Stdout)
}

func parseForCheck(data []byte) (*Outdated, error) {
	result, err := ParseOutdated(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return result, nil
}
