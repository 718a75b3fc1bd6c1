package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/spf13/afero"
)

// LocalFS serves a checked-out copy of the data repository straight from
// disk. Used for development without upstream access and for tests, where it
// runs on an in-memory filesystem.
type LocalFS struct {
	fs   afero.Fs
	root string
}

func NewLocalFS(fsys afero.Fs, root string) *LocalFS {
	return &LocalFS{fs: fsys, root: root}
}

func (l *LocalFS) GetObject(_ context.Context, scope Scope, p string) ([]byte, error) {
	full := l.join(p)

	info, err := l.fs.Stat(full)
	if err != nil {
		return nil, l.mapErr(scope, p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s/%s", ErrIsDirectory, scope, p)
	}

	raw, err := afero.ReadFile(l.fs, full)
	if err != nil {
		return nil, l.mapErr(scope, p, err)
	}
	return raw, nil
}

func (l *LocalFS) ListDir(_ context.Context, scope Scope, p string) ([]Entry, error) {
	infos, err := afero.ReadDir(l.fs, l.join(p))
	if err != nil {
		return nil, l.mapErr(scope, p, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entryType := EntryTypeFile
		if info.IsDir() {
			entryType = EntryTypeDir
		}
		entries = append(entries, Entry{
			Name: info.Name(),
			Path: path.Join(strings.Trim(p, "/"), info.Name()),
			Type: entryType,
			Size: info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (l *LocalFS) join(p string) string {
	return path.Join(l.root, strings.Trim(p, "/"))
}

func (l *LocalFS) mapErr(scope Scope, p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, scope, p)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
