package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reportd/internal/domain"
)

// Options controls how the report API client is configured.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Cache      *Cache
	// CompanyTTL bounds how long company lookups may be served from cache.
	CompanyTTL time.Duration
}

// Client is a thin wrapper over the report API. It is constructed explicitly
// and carries its own cache; callers own its lifetime.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	cache      *Cache
	companyTTL time.Duration
}

// StartReportResponse is the body of a successful start request.
type StartReportResponse struct {
	JobID          string `json:"job_id"`
	ChannelAddress string `json:"channel_address,omitempty"`
}

// StatusResponse is the poll endpoint's wire shape. Its field names differ
// from the push channel's on purpose; the poll adapter in internal/status
// normalizes it before any state is touched.
type StatusResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Pct        int    `json:"pct"`
	StateLabel string `json:"state_label"`
	Error      string `json:"error,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
}

// New creates a Client from options, applying defaults for the pieces left
// unset.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	ttl := opts.CompanyTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		cache:      opts.Cache,
		companyTTL: ttl,
	}, nil
}

// StartReport creates a report generation job for the given company id.
func (c *Client) StartReport(ctx context.Context, targetID int64) (*StartReportResponse, error) {
	if targetID <= 0 {
		return nil, domain.ErrInvalidTarget
	}
	body, err := json.Marshal(map[string]int64{"target_id": targetID})
	if err != nil {
		return nil, fmt.Errorf("client: encode start request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/reports", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: start report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("client: start report: unexpected status %d", resp.StatusCode)
	}
	var out StartReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode start response: %w", err)
	}
	if out.JobID == "" {
		return nil, domain.ErrMissingJobID
	}
	c.logger.Debug().Str("job_id", out.JobID).Msg("client: report started")
	return &out, nil
}

// JobStatus fetches the current status of a job. Statuses are never cached;
// freshness is the whole point of the poll channel.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*StatusResponse, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("client: job id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/reports/"+jobID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("client: build status request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("client: job status: unexpected status %d", resp.StatusCode)
	}
	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode status response: %w", err)
	}
	return &out, nil
}

// Company fetches company metadata, served from the TTL cache when a fresh
// copy exists.
func (c *Client) Company(ctx context.Context, id int64) (*domain.Company, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidTarget
	}
	url := fmt.Sprintf("%s/v1/companies/%d", c.baseURL, id)
	cacheKey := "GET " + url

	if raw, ok := c.cache.Get(cacheKey, c.companyTTL); ok {
		var company domain.Company
		if err := json.Unmarshal(raw, &company); err == nil {
			return &company, nil
		}
		c.cache.Invalidate(cacheKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build company request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: company: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("client: company: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read company response: %w", err)
	}
	var company domain.Company
	if err := json.Unmarshal(raw, &company); err != nil {
		return nil, fmt.Errorf("client: decode company response: %w", err)
	}
	c.cache.Set(cacheKey, raw)
	return &company, nil
}
