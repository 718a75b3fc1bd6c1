package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "exgateway"
	acceptHeader   = "application/vnd.github.v3+json"

	requestTimeout = 30 * time.Second
	connectTimeout = 5 * time.Second
	maxRetries     = 3
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exgateway_upstream_requests_total",
		Help: "Requests issued to the content store, by outcome.",
	}, []string{"outcome"})

	// Advisory only: the remaining-quota hint is observed, never used for
	// gating.
	upstreamQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exgateway_upstream_quota_remaining",
		Help: "Last remaining-quota hint reported by the content store.",
	})
)

// GitHub fetches stored objects through the hosted contents API. It holds no
// mutable state beyond the passive quota observation above.
type GitHub struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewGitHub(baseURL, token string) *GitHub {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GitHub{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

type githubItem struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *GitHub) GetObject(ctx context.Context, scope Scope, path string) ([]byte, error) {
	body, err := g.fetch(ctx, scope, path)
	if err != nil {
		return nil, err
	}

	// The contents API answers with an array for directories.
	if isJSONArray(body) {
		return nil, fmt.Errorf("%w: %s/%s", ErrIsDirectory, scope, path)
	}

	var item githubItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode content response for %s/%s: %w", scope, path, err)
	}
	if item.Type == string(EntryTypeDir) {
		return nil, fmt.Errorf("%w: %s/%s", ErrIsDirectory, scope, path)
	}
	if item.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding %q for %s/%s", item.Encoding, scope, path)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content for %s/%s: %w", scope, path, err)
	}
	return raw, nil
}

func (g *GitHub) ListDir(ctx context.Context, scope Scope, path string) ([]Entry, error) {
	body, err := g.fetch(ctx, scope, path)
	if err != nil {
		return nil, err
	}

	if !isJSONArray(body) {
		return nil, fmt.Errorf("%w: %s/%s is not a directory", domain.ErrNotFound, scope, path)
	}

	var items []githubItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode directory listing for %s/%s: %w", scope, path, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			Name: item.Name,
			Path: item.Path,
			Type: EntryType(item.Type),
			Size: item.Size,
		})
	}
	return entries, nil
}

func (g *GitHub) fetch(ctx context.Context, scope Scope, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, scope.Owner, scope.Repo, strings.Trim(path, "/"))

	resp, err := g.do(ctx, url)
	if err != nil {
		upstreamRequests.WithLabelValues("unavailable").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	g.observeQuota(ctx, resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		upstreamRequests.WithLabelValues("ok").Inc()
	case resp.StatusCode == http.StatusNotFound:
		upstreamRequests.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, scope, path)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		upstreamRequests.WithLabelValues("throttled").Inc()
		return nil, &domain.ThrottledError{RetryAfter: retryAfterHint(resp)}
	default:
		upstreamRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: content store answered %d for %s/%s",
			domain.ErrUpstreamUnavailable, resp.StatusCode, scope, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read content response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// do issues the request, retrying transport-level failures with capped
// exponential backoff. HTTP status handling, including throttling, happens in
// fetch: a throttled response is surfaced to the caller, never retried here.
func (g *GitHub) do(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("User-Agent", userAgent)
		if g.token != "" {
			req.Header.Set("Authorization", "Bearer "+g.token)
		}

		r, err := g.client.Do(req)
		if err != nil {
			slog.DebugContext(ctx, "upstream request failed, retrying", "url", url, "error", err)
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

func (g *GitHub) observeQuota(ctx context.Context, resp *http.Response) {
	hint := resp.Header.Get("x-ratelimit-remaining")
	if hint == "" {
		return
	}
	remaining, err := strconv.ParseInt(hint, 10, 64)
	if err != nil {
		return
	}
	upstreamQuotaRemaining.Set(float64(remaining))
	if remaining < 100 {
		slog.WarnContext(ctx, "content store quota running low", "remaining", remaining)
	}
}

func retryAfterHint(resp *http.Response) time.Duration {
	secs, err := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isJSONArray(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
