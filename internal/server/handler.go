package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaspadata/exgateway/internal/cache"
	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/kaspadata/exgateway/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const cacheHeader = "X-Cache"

const (
	defaultPage  = 1
	maxPage      = 10000
	defaultLimit = 30
	maxLimit     = 100
)

// Handler validates and normalizes request parameters, builds the cache
// fingerprint and runs the fixed pipeline: coordinator -> fetch -> aggregate.
type Handler struct {
	coord   *cache.Coordinator
	ticker  *service.Ticker
	content *service.Content
}

func NewHandler(coord *cache.Coordinator, ticker *service.Ticker, content *service.Content) *Handler {
	return &Handler{coord: coord, ticker: ticker, content: content}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/ticker/{token}", h.tickerStats)
	mux.HandleFunc("GET /v1/ticker/{token}/history", h.tickerHistory)
	mux.HandleFunc("GET /v1/content/{owner}/{repo}/{path...}", h.getContent)
	return mux
}

func (h *Handler) tickerStats(w http.ResponseWriter, r *http.Request) {
	token := strings.ToLower(r.PathValue("token"))

	rng, err := parseRange(r, domain.RangeToday)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fingerprint := fmt.Sprintf("v1:ticker:%s:stats:%s", token, rng)
	payload, status, err := h.coord.GetOrCompute(r.Context(), fingerprint, func(ctx context.Context) ([]byte, error) {
		resp, err := h.ticker.Stats(ctx, token, rng)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePayload(w, status, payload)
}

func (h *Handler) tickerHistory(w http.ResponseWriter, r *http.Request) {
	token := strings.ToLower(r.PathValue("token"))

	rng, err := parseRange(r, domain.Range7d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resolutionParam := r.URL.Query().Get("resolution")
	if resolutionParam == "" {
		resolutionParam = "1h"
	}
	resolution, err := domain.ParseResolution(resolutionParam)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fingerprint := fmt.Sprintf("v1:ticker:%s:history:%s:%s", token, rng, resolution)
	payload, status, err := h.coord.GetOrCompute(r.Context(), fingerprint, func(ctx context.Context) ([]byte, error) {
		resp, err := h.ticker.History(ctx, token, rng, resolution)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePayload(w, status, payload)
}

func (h *Handler) getContent(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	path := r.PathValue("path")

	opts, err := parseGetOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fingerprint := fmt.Sprintf("v1:content:%s:%s:%s:agg=%t:page=%d:limit=%d:start=%s:end=%s",
		owner, repo, path, opts.Aggregate, opts.Page, opts.Limit, opts.Start, opts.End)
	payload, status, err := h.coord.GetOrCompute(r.Context(), fingerprint, func(ctx context.Context) ([]byte, error) {
		resp, err := h.content.Get(ctx, owner, repo, path, opts)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePayload(w, status, payload)
}

func parseRange(r *http.Request, fallback domain.Range) (domain.Range, error) {
	param := r.URL.Query().Get("range")
	if param == "" {
		return fallback, nil
	}
	return domain.ParseRange(param)
}

func parseGetOptions(r *http.Request) (service.GetOptions, error) {
	query := r.URL.Query()
	opts := service.GetOptions{
		Aggregate: query.Get("aggregate") == "true",
		Page:      defaultPage,
		Limit:     defaultLimit,
	}

	var err error
	if opts.Page, err = parseBoundedInt(query.Get("page"), defaultPage, 1, maxPage, "page"); err != nil {
		return opts, err
	}
	if opts.Limit, err = parseBoundedInt(query.Get("limit"), defaultLimit, 1, maxLimit, "limit"); err != nil {
		return opts, err
	}
	if opts.Start, err = parseDate(query.Get("start"), "start"); err != nil {
		return opts, err
	}
	if opts.End, err = parseDate(query.Get("end"), "end"); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseBoundedInt(param string, fallback, low, high int, name string) (int, error) {
	if param == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(param)
	if err != nil || v < low || v > high {
		return 0, fmt.Errorf("%w: %s must be an integer between %d and %d", domain.ErrValidation, name, low, high)
	}
	return v, nil
}

func parseDate(param, name string) (string, error) {
	if param == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", param); err != nil {
		return "", fmt.Errorf("%w: %s must be a YYYY-MM-DD date", domain.ErrValidation, name)
	}
	return param, nil
}

func writePayload(w http.ResponseWriter, status cache.Status, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(cacheHeader, strings.ToUpper(string(status)))
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *domain.ThrottledError
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &throttled):
		status = http.StatusTooManyRequests
		if throttled.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(int64(throttled.RetryAfter/time.Second), 10))
		}
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrScopeNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
