package brew

import (
	"os"
)

// DefaultPaths are probed in order; Apple Silicon first, then Intel, then Linuxbrew.
var DefaultPaths = []string{
	"/opt/homebrew/bin/brew",
	"/usr/local/bin/brew",
	"/home/linuxbrew/.linuxbrew/bin/brew",
}

// Locate returns the brew executable to use. A non-empty override wins but
// must exist on disk; otherwise the first existing entry of paths is used.
func Locate(override string, paths []string) (string, error) {
	if override != "" {
		if fileExists(override) {
			return override, nil
		}
		return "", &ToolNotFoundError{Searched: []string{override}}
	}

	for _, p := range paths {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", &ToolNotFoundError{Searched: paths}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
