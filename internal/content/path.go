package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Scope is one permitted (owner, repository) pair.
type Scope struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

func (s Scope) String() string {
	return s.Owner + "/" + s.Repo
}

// Allowlist is the fixed set of scopes the gateway may query upstream.
// Loaded once at process start and read-only afterwards.
type Allowlist struct {
	scopes  map[Scope]struct{}
	ordered []Scope
}

type allowlistFile struct {
	AllowedRepos []Scope `yaml:"allowed_repos"`
}

// LoadAllowlist reads the allowlist YAML file. The file must name at least
// one scope.
func LoadAllowlist(fs afero.Fs, path string) (*Allowlist, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowlist file %q: %w", path, err)
	}

	var file allowlistFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse allowlist file %q: %w", path, err)
	}
	if len(file.AllowedRepos) == 0 {
		return nil, fmt.Errorf("allowlist file %q names no repositories", path)
	}

	return NewAllowlist(file.AllowedRepos), nil
}

func NewAllowlist(scopes []Scope) *Allowlist {
	set := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &Allowlist{scopes: set, ordered: scopes}
}

// Resolve checks the owner/repo pair against the allowlist. It is the hard
// security boundary: rejected pairs never reach the fetch client.
func (a *Allowlist) Resolve(owner, repo string) (Scope, error) {
	scope := Scope{Owner: owner, Repo: repo}
	if _, ok := a.scopes[scope]; !ok {
		return Scope{}, fmt.Errorf("%w: %s", domain.ErrScopeNotAllowed, scope)
	}
	return scope, nil
}

// Default returns the first configured scope, used by the ticker endpoints
// which do not carry an explicit owner/repo.
func (a *Allowlist) Default() Scope {
	return a.ordered[0]
}

var segmentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidatePath rejects traversal attempts and malformed segments before a
// path is handed to a store.
func ValidatePath(p string) error {
	p = strings.Trim(p, "/")
	if p == "" {
		return fmt.Errorf("%w: empty path", domain.ErrValidation)
	}
	for _, seg := range strings.Split(p, "/") {
		if !segmentPattern.MatchString(seg) || seg == "." || seg == ".." {
			return fmt.Errorf("%w: path segment %q", domain.ErrValidation, seg)
		}
	}
	return nil
}

// TokenDirPath is the directory holding all exchanges for a token.
func TokenDirPath(token string) string {
	return "data/" + strings.ToLower(token)
}

// ExchangeDirPath is the directory holding one exchange's files for a token.
func ExchangeDirPath(token, exchange string) string {
	return TokenDirPath(token) + "/" + exchange
}

// DayFilePath addresses the raw file for one (token, exchange, day):
// data/{token}/{exchange}/{YYYY}/{MM}/{YYYY-MM-DD}-raw.json.
func DayFilePath(token, exchange string, day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("%s/%s/%s-raw.json",
		ExchangeDirPath(token, exchange),
		day.Format("2006/01"),
		day.Format("2006-01-02"),
	)
}

var dayFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-raw\.json$`)

// ParseDayFileName extracts the date from a stored day-file name. The second
// return is false for anything that is not a raw day file.
func ParseDayFileName(name string) (time.Time, bool) {
	m := dayFilePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
