package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	jsonenc "encoding/json"

	"github.com/kaspadata/exgateway/internal/aggregate"
	"github.com/kaspadata/exgateway/internal/content"
	"github.com/kaspadata/exgateway/internal/domain"
	"golang.org/x/sync/errgroup"
)

const aggregateFetchLimit = 10

// Content serves raw object access, directory listings and synthetic range
// aggregates. Every request resolves its scope against the allowlist before
// anything touches the store.
type Content struct {
	store content.Store
	allow *content.Allowlist
}

func NewContent(store content.Store, allow *content.Allowlist) *Content {
	return &Content{store: store, allow: allow}
}

// GetOptions are the normalized query parameters of a content request.
type GetOptions struct {
	Aggregate bool
	Page      int
	Limit     int
	Start     string
	End       string
}

// ObjectResponse wraps a single stored file. JSON payloads are embedded
// verbatim; anything else is returned as text.
type ObjectResponse struct {
	Name    string             `json:"name"`
	Path    string             `json:"path"`
	Type    content.EntryType  `json:"type"`
	Content jsonenc.RawMessage `json:"content,omitempty"`
	Text    string             `json:"text,omitempty"`
}

// ListingResponse wraps a directory listing, truncated to the requested
// limit.
type ListingResponse struct {
	Path      string          `json:"path"`
	Entries   []content.Entry `json:"entries"`
	Total     int             `json:"total"`
	Truncated bool            `json:"truncated"`
}

// AggregateResponse is the synthetic merge of the day files inside a stored
// directory.
type AggregateResponse struct {
	Path     string              `json:"path"`
	Token    string              `json:"token"`
	Exchange string              `json:"exchange"`
	Files    int                 `json:"files"`
	Summary  domain.RangeSummary `json:"aggregate"`
}

// Get dispatches a content request: a synthetic aggregate when requested,
// otherwise the object itself, falling back to a listing when the path names
// a directory.
func (c *Content) Get(ctx context.Context, owner, repo, path string, opts GetOptions) (any, error) {
	scope, err := c.allow.Resolve(owner, repo)
	if err != nil {
		return nil, err
	}
	if err := content.ValidatePath(path); err != nil {
		return nil, err
	}
	path = strings.Trim(path, "/")

	if opts.Aggregate {
		return c.aggregateRange(ctx, scope, path, opts)
	}

	raw, err := c.store.GetObject(ctx, scope, path)
	if errors.Is(err, content.ErrIsDirectory) {
		return c.listing(ctx, scope, path, opts)
	}
	if err != nil {
		return nil, err
	}

	resp := &ObjectResponse{
		Name: path[strings.LastIndex(path, "/")+1:],
		Path: path,
		Type: content.EntryTypeFile,
	}
	if json.Valid(raw) {
		resp.Content = jsonenc.RawMessage(raw)
	} else {
		resp.Text = string(raw)
	}
	return resp, nil
}

func (c *Content) listing(ctx context.Context, scope content.Scope, path string, opts GetOptions) (*ListingResponse, error) {
	entries, err := c.store.ListDir(ctx, scope, path)
	if err != nil {
		return nil, err
	}

	total := len(entries)
	truncated := false
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
		truncated = true
	}
	return &ListingResponse{
		Path:      path,
		Entries:   entries,
		Total:     total,
		Truncated: truncated,
	}, nil
}

// aggregateRange lists the directory, fetches the selected day files
// concurrently and merges them into one range summary. A listed file that
// turns out absent upstream is a skippable gap; any other fetch failure is
// fatal to the whole range request.
func (c *Content) aggregateRange(ctx context.Context, scope content.Scope, path string, opts GetOptions) (*AggregateResponse, error) {
	entries, err := c.store.ListDir(ctx, scope, path)
	if err != nil {
		return nil, err
	}

	type dayFile struct {
		date string
		path string
	}
	var files []dayFile
	for _, entry := range entries {
		day, ok := content.ParseDayFileName(entry.Name)
		if !ok || entry.Type != content.EntryTypeFile {
			continue
		}
		date := day.Format("2006-01-02")
		if (opts.Start != "" && date < opts.Start) || (opts.End != "" && date > opts.End) {
			continue
		}
		files = append(files, dayFile{date: date, path: entry.Path})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].date < files[j].date })

	if opts.Limit > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * opts.Limit
		if offset >= len(files) {
			files = nil
		} else {
			files = files[offset:min(offset+opts.Limit, len(files))]
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no day files in %s for the requested range", domain.ErrNotFound, path)
	}

	token, exchange := tokenExchangeFromPath(path)

	summaries := make([]*domain.DailySummary, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(aggregateFetchLimit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			raw, err := c.store.GetObject(gCtx, scope, file.path)
			if errors.Is(err, domain.ErrNotFound) {
				// Listed but gone upstream: a gap, not a failure.
				return nil
			}
			if err != nil {
				return err
			}
			ticks, err := decodeDayFile(raw)
			if err != nil {
				return err
			}
			summary := aggregate.SummarizeDay(file.date, token, exchange, ticks)
			summaries[i] = &summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := make([]domain.DailySummary, 0, len(summaries))
	for _, summary := range summaries {
		if summary != nil {
			days = append(days, *summary)
		}
	}

	start, end := opts.Start, opts.End
	if start == "" {
		start = files[0].date
	}
	if end == "" {
		end = files[len(files)-1].date
	}

	return &AggregateResponse{
		Path:     path,
		Token:    token,
		Exchange: exchange,
		Files:    len(days),
		Summary:  aggregate.MergeRange(days, start, end),
	}, nil
}

// tokenExchangeFromPath reads the token and exchange segments out of a
// data/{token}/{exchange}/... path.
func tokenExchangeFromPath(path string) (token, exchange string) {
	segments := strings.Split(path, "/")
	if len(segments) > 1 {
		token = segments[1]
	}
	if len(segments) > 2 {
		exchange = segments[2]
	}
	return token, exchange
}
