package content

import (
	"testing"
	"time"

	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAllowlist(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte(`
allowed_repos:
  - owner: kaspadata
    repo: exchange-data
  - owner: kaspadata
    repo: archive
`), 0o644))

	allow, err := LoadAllowlist(fs, "config.yaml")
	require.NoError(t, err)

	scope, err := allow.Resolve("kaspadata", "exchange-data")
	require.NoError(t, err)
	assert.Equal(t, "kaspadata/exchange-data", scope.String())

	assert.Equal(t, Scope{Owner: "kaspadata", Repo: "exchange-data"}, allow.Default())
}

func TestLoadAllowlistEmptyFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte("allowed_repos: []\n"), 0o644))

	_, err := LoadAllowlist(fs, "config.yaml")
	assert.Error(t, err)
}

func TestLoadAllowlistMissingFileFails(t *testing.T) {
	_, err := LoadAllowlist(afero.NewMemMapFs(), "nope.yaml")
	assert.Error(t, err)
}

func TestResolveRejectsUnknownScope(t *testing.T) {
	allow := NewAllowlist([]Scope{{Owner: "kaspadata", Repo: "exchange-data"}})

	_, err := allow.Resolve("evil", "exchange-data")
	assert.ErrorIs(t, err, domain.ErrScopeNotAllowed)

	_, err = allow.Resolve("kaspadata", "other-repo")
	assert.ErrorIs(t, err, domain.ErrScopeNotAllowed)
}

func TestValidatePath(t *testing.T) {
	valid := []string{
		"data/kas/binance/2024/03/2024-03-10-raw.json",
		"data",
		"/data/kas/",
		"a.b-c_d",
	}
	for _, p := range valid {
		assert.NoError(t, ValidatePath(p), p)
	}

	invalid := []string{
		"",
		"/",
		"data/../secrets",
		"..",
		"data//kas",
		".hidden",
		"data/kas exchange",
		"data/ka$h",
	}
	for _, p := range invalid {
		assert.ErrorIs(t, ValidatePath(p), domain.ErrValidation, p)
	}
}

func TestDayFilePath(t *testing.T) {
	day := time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "data/kas/binance/2024/03/2024-03-10-raw.json", DayFilePath("KAS", "binance", day))
}

func TestParseDayFileName(t *testing.T) {
	day, ok := ParseDayFileName("2024-03-10-raw.json")
	require.True(t, ok)
	assert.Equal(t, "2024-03-10", day.Format("2006-01-02"))

	for _, name := range []string{
		"2024-03-10.json",
		"raw.json",
		"2024-03-10-raw.json.bak",
		"2024-13-40-raw.json",
		"README.md",
	} {
		_, ok := ParseDayFileName(name)
		assert.False(t, ok, name)
	}
}
