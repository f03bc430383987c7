package brew

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// brewOutdatedOutput represents the structure of `brew outdated --json=v2` output.
// Pointers let us tell a missing key from an empty value.
type brewOutdatedOutput struct {
	Formulae *[]brewOutdatedEntry `json:"formulae"`
	Casks    *[]brewOutdatedEntry `json:"casks"`
}

// brewOutdatedEntry is shared by formulae and casks; both report
// installed_versions as an array.
type brewOutdatedEntry struct {
	Name              *string   `json:"name"`
	InstalledVersions *[]string `json:"installed_versions"`
	CurrentVersion    *string   `json:"current_version"`
}

// ParseOutdated decodes the stdout of `brew outdated --json=v2`.
// Unknown fields (pinned, pinned_version, ...) are ignored. Any missing key or
// mistyped value fails with a *DecodeError.
func ParseOutdated(data []byte) (*Outdated, error) {
	var out brewOutdatedOutput
	if err := json.Unmarshal(bytes.TrimSpace(data), &out); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if out.Formulae == nil {
		return nil, &DecodeError{Err: errors.New(`missing key "formulae"`)}
	}
	if out.Casks == nil {
		return nil, &DecodeError{Err: errors.New(`missing key "casks"`)}
	}

	formulae, err := convertEntries(*out.Formulae, KindFormula)
	if err != nil {
		return nil, err
	}
	casks, err := convertEntries(*out.Casks, KindCask)
	if err != nil {
		return nil, err
	}

	return &Outdated{Formulae: formulae, Casks: casks}, nil
}

func convertEntries(entries []brewOutdatedEntry, kind Kind) ([]Package, error) {
	pkgs := make([]Package, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.Name == nil:
			return nil, &DecodeError{Err: errors.Errorf("%s[%d]: missing key \"name\"", kind, i)}
		case e.InstalledVersions == nil:
			return nil, &DecodeError{Err: errors.Errorf("%s %q: missing key \"installed_versions\"", kind, *e.Name)}
		case e.CurrentVersion == nil:
			return nil, &DecodeError{Err: errors.Errorf("%s %q: missing key \"current_version\"", kind, *e.Name)}
		}

		pkgs = append(pkgs, Package{
			Name:              *e.Name,
			InstalledVersions: append([]string(nil), *e.InstalledVersions...),
			CurrentVersion:    *e.CurrentVersion,
			Kind:              kind,
		})
	}
	return pkgs, nil
}
