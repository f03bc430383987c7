package brew

import (
	"github.com/Masterminds/semver/v3"
)

// Kind distinguishes formulae from casks in an outdated result.
type Kind int

const (
	KindFormula Kind = iota
	KindCask
)

func (k Kind) String() string {
	if k == KindCask {
		return "cask"
	}
	return "formula"
}

// MarshalText encodes the kind as "formula" or "cask".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Package is an outdated Homebrew package (formula or cask).
type Package struct {
	Name              string   `json:"name"`
	InstalledVersions []string `json:"installed_versions"` // may list several when versions coexist
	CurrentVersion    string   `json:"current_version"`    // latest available
	Kind              Kind     `json:"kind"`
}

// InstalledVersion returns the newest installed version, or "" if none is reported.
func (p Package) InstalledVersion() string {
	if len(p.InstalledVersions) == 0 {
		return ""
	}
	return p.InstalledVersions[len(p.InstalledVersions)-1]
}

// Bump classifies the update as "major", "minor" or "patch".
// Returns "" when either version is not semver-like (e.g. casks with
// build-number versions such as "1.2.3,4567").
func (p Package) Bump() string {
	from, err := semver.NewVersion(p.InstalledVersion())
	if err != nil {
		return ""
	}
	to, err := semver.NewVersion(p.CurrentVersion)
	if err != nil {
		return ""
	}

	switch {
	case to.Major() != from.Major():
		return "major"
	case to.Minor() != from.Minor():
		return "minor"
	case to.Patch() != from.Patch():
		return "patch"
	default:
		return ""
	}
}

// Outdated is the result of one `brew outdated` check.
// It is never mutated after being returned; Filter builds a new value.
type Outdated struct {
	Formulae []Package `json:"formulae"`
	Casks    []Package `json:"casks"`
}

// TotalCount returns the number of outdated formulae and casks.
func (o *Outdated) TotalCount() int {
	if o == nil {
		return 0
	}
	return len(o.Formulae) + len(o.Casks)
}

// All returns formulae followed by casks.
func (o *Outdated) All() []Package {
	if o == nil {
		return nil
	}
	all := make([]Package, 0, o.TotalCount())
	all = append(all, o.Formulae...)
	all = append(all, o.Casks...)
	return all
}

// Filter returns a copy of o without any package whose name is in ignored.
func (o *Outdated) Filter(ignored []string) *Outdated {
	if o == nil {
		return nil
	}

	skip := make(map[string]struct{}, len(ignored))
	for _, name := range ignored {
		skip[name] = struct{}{}
	}

	keep := func(pkgs []Package) []Package {
		out := make([]Package, 0, len(pkgs))
		for _, p := range pkgs {
			if _, ignored := skip[p.Name]; ignored {
				continue
			}
			out = append(out, p)
		}
		return out
	}

	return &Outdated{
		Formulae: keep(o.Formulae),
		Casks:    keep(o.Casks),
	}
}
