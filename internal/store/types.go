package store

import "time"

// Setting is a single persisted key/value pair.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// IgnoredPackage is a package name excluded from check results.
type IgnoredPackage struct {
	Name    string
	AddedAt time.Time
}
