// Package content addresses and fetches raw data objects from the remote
// content store. Paths are validated against the configured allowlist before
// any network access happens.
package content

import (
	"context"
	"errors"
)

// ErrIsDirectory is returned by GetObject when the path names a directory
// instead of a file. Callers fall back to ListDir.
var ErrIsDirectory = errors.New("path is a directory")

type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeDir  EntryType = "dir"
)

// Entry is one child of a stored directory.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	Size int64     `json:"size,omitempty"`
}

// Store is the narrow interface over the remote content store. Both calls
// consume one unit of the upstream quota.
type Store interface {
	// GetObject fetches the raw bytes of a single stored file.
	GetObject(ctx context.Context, scope Scope, path string) ([]byte, error)
	// ListDir returns the children of a stored directory, ordered by name.
	ListDir(ctx context.Context, scope Scope, path string) ([]Entry, error)
}
