package content

import (
	"context"
	"testing"

	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalFS, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewLocalFS(fs, "repo"), fs
}

func TestLocalFSGetObject(t *testing.T) {
	store, fs := newLocalStore(t)
	require.NoError(t, afero.WriteFile(fs, "repo/data/kas/binance/2024/03/2024-03-10-raw.json", []byte(`{"data":[]}`), 0o644))

	raw, err := store.GetObject(context.Background(), testScope, "data/kas/binance/2024/03/2024-03-10-raw.json")
	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, string(raw))
}

func TestLocalFSGetObjectOnDirectory(t *testing.T) {
	store, fs := newLocalStore(t)
	require.NoError(t, fs.MkdirAll("repo/data/kas", 0o755))

	_, err := store.GetObject(context.Background(), testScope, "data/kas")
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestLocalFSGetObjectMissing(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.GetObject(context.Background(), testScope, "data/nope.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalFSListDir(t *testing.T) {
	store, fs := newLocalStore(t)
	require.NoError(t, afero.WriteFile(fs, "repo/data/kas/README.md", []byte("hi"), 0o644))
	require.NoError(t, fs.MkdirAll("repo/data/kas/gate", 0o755))
	require.NoError(t, fs.MkdirAll("repo/data/kas/binance", 0o755))

	entries, err := store.ListDir(context.Background(), testScope, "data/kas")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Entries come back ordered by name.
	assert.Equal(t, "README.md", entries[0].Name)
	assert.Equal(t, EntryTypeFile, entries[0].Type)
	assert.Equal(t, "data/kas/README.md", entries[0].Path)
	assert.Equal(t, "binance", entries[1].Name)
	assert.Equal(t, EntryTypeDir, entries[1].Type)
	assert.Equal(t, "gate", entries[2].Name)
}

func TestLocalFSListDirMissing(t *testing.T) {
	store, _ := newLocalStore(t)

	_, err := store.ListDir(context.Background(), testScope, "data/nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
