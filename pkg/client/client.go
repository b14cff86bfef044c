// Package client provides a Go SDK for the ACP agent registry HTTP API.
//
// All methods decode the registry's response envelope and surface API
// failures as *APIError values carrying the machine-readable error code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Agent mirrors the registry's agent record.
type Agent struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	OwnerID         string         `json:"ownerId"`
	OwnerWallet     string         `json:"ownerWallet"`
	Network         string         `json:"network"`
	ContractAddress string         `json:"contractAddress,omitempty"`
	ProgramID       string         `json:"programId,omitempty"`
	DeployedAt      *time.Time     `json:"deployedAt,omitempty"`
	Capabilities    []Capability   `json:"capabilities"`
	Configuration   map[string]any `json:"configuration"`
	Reputation      Reputation     `json:"reputation"`
	Statistics      Statistics     `json:"statistics"`
	Version         string         `json:"version"`
	Tags            []string       `json:"tags"`
	IsPublic        bool           `json:"isPublic"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	LastActiveAt    *time.Time     `json:"lastActiveAt,omitempty"`
}

// Capability mirrors a declared agent capability.
type Capability struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Reputation mirrors the registry's reputation block.
type Reputation struct {
	Score                  int       `json:"score"`
	TotalTransactions      int       `json:"totalTransactions"`
	SuccessfulTransactions int       `json:"successfulTransactions"`
	AverageResponseTime    float64   `json:"averageResponseTime"`
	Uptime                 float64   `json:"uptime"`
	LastUpdated            time.Time `json:"lastUpdated"`
}

// Statistics mirrors the registry's statistics block.
type Statistics struct {
	TotalEarnings           float64    `json:"totalEarnings"`
	TransactionsCount       int        `json:"transactionsCount"`
	AverageTransactionValue float64    `json:"averageTransactionValue"`
	ActiveContracts         int        `json:"activeContracts"`
	LastActivityAt          *time.Time `json:"lastActivityAt,omitempty"`
}

// CreateAgentRequest is the payload for Create.
type CreateAgentRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Type          string         `json:"type"`
	Network       string         `json:"network"`
	Capabilities  []Capability   `json:"capabilities"`
	Configuration map[string]any `json:"configuration"`
	Tags          []string       `json:"tags,omitempty"`
	IsPublic      bool           `json:"isPublic"`
}

// UpdateAgentRequest is the payload for Update. Nil fields are left
// unchanged.
type UpdateAgentRequest struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Tags          *[]string      `json:"tags,omitempty"`
	IsPublic      *bool          `json:"isPublic,omitempty"`
}

// DeployRequest is the payload for Deploy.
type DeployRequest struct {
	Network        string  `json:"network"`
	Wallet         string  `json:"wallet"`
	ProgramID      string  `json:"programId,omitempty"`
	InitialFunding float64 `json:"initialFunding,omitempty"`
}

// DeployResult is the outcome of a Deploy call.
type DeployResult struct {
	Success         bool      `json:"success"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	TransactionID   string    `json:"transactionId,omitempty"`
	DeployedAt      time.Time `json:"deployedAt"`
}

// ActivityEntry is one recorded agent event.
type ActivityEntry struct {
	ID          string            `json:"id"`
	AgentID     string            `json:"agentId"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Actor       string            `json:"actor,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// ListOptions narrows a List call. Zero values are omitted from the query.
type ListOptions struct {
	Types         []string
	Statuses      []string
	Networks      []string
	Tags          []string
	Search        string
	MinReputation int
	SortBy        string
	SortOrder     string
	Limit         int
	Offset        int
}

// Page holds one page of listing results.
type Page struct {
	Agents  []Agent `json:"data"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	HasNext bool    `json:"hasNext"`
}

// APIError is a structured error returned by the registry.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	RequestID  string         `json:"requestId,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Client is the ACP registry SDK entry point.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
	adminSecret string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches a session JWT to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// WithAdminSecret attaches the admin secret header to every request,
// enabling Suspend and UpdateReputation.
func WithAdminSecret(secret string) Option {
	return func(c *Client) { c.adminSecret = secret }
}

// New creates a Client connected to baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create registers a new agent.
func (c *Client) Create(ctx context.Context, req CreateAgentRequest) (*Agent, error) {
	var agent Agent
	if err := c.do(ctx, http.MethodPost, "/api/agents", nil, req, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// Get fetches a single agent by id.
func (c *Client) Get(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(id), nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// List returns a page of agents matching opts.
func (c *Client) List(ctx context.Context, opts ListOptions) (*Page, error) {
	return c.list(ctx, "/api/agents", opts)
}

// ListMine returns a page of the authenticated caller's agents.
func (c *Client) ListMine(ctx context.Context, opts ListOptions) (*Page, error) {
	return c.list(ctx, "/api/agents/my", opts)
}

func (c *Client) list(ctx context.Context, path string, opts ListOptions) (*Page, error) {
	q := url.Values{}
	setCSV := func(key string, vals []string) {
		if len(vals) > 0 {
			q.Set(key, strings.Join(vals, ","))
		}
	}
	setCSV("type", opts.Types)
	setCSV("status", opts.Statuses)
	setCSV("network", opts.Networks)
	setCSV("tags", opts.Tags)
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.MinReputation > 0 {
		q.Set("minReputation", strconv.Itoa(opts.MinReputation))
	}
	if opts.SortBy != "" {
		q.Set("sortBy", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sortOrder", opts.SortOrder)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	body, err := c.doRaw(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success    bool            `json:"success"`
		Data       []Agent         `json:"data"`
		Pagination json.RawMessage `json:"pagination"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	page := Page{Agents: envelope.Data}
	if len(envelope.Pagination) > 0 {
		if err := json.Unmarshal(envelope.Pagination, &page); err != nil {
			return nil, fmt.Errorf("decode pagination: %w", err)
		}
	}
	return &page, nil
}

// Update applies partial changes to an agent.
func (c *Client) Update(ctx context.Context, id string, req UpdateAgentRequest) (*Agent, error) {
	var agent Agent
	if err := c.do(ctx, http.MethodPut, "/api/agents/"+url.PathEscape(id), nil, req, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// Delete removes an agent. Active agents must be paused first.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(id), nil, nil, nil)
}

// Deploy pushes a pending agent on-chain.
func (c *Client) Deploy(ctx context.Context, id string, req DeployRequest) (*DeployResult, error) {
	var result DeployResult
	if err := c.do(ctx, http.MethodPost, "/api/agents/"+url.PathEscape(id)+"/deploy", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Pause stops an active agent.
func (c *Client) Pause(ctx context.Context, id string) (*Agent, error) {
	return c.lifecycle(ctx, id, "pause")
}

// Resume reactivates a paused agent.
func (c *Client) Resume(ctx context.Context, id string) (*Agent, error) {
	return c.lifecycle(ctx, id, "resume")
}

func (c *Client) lifecycle(ctx context.Context, id, action string) (*Agent, error) {
	var agent Agent
	path := "/api/agents/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// Suspend forces an agent into suspended status. Requires admin credentials.
func (c *Client) Suspend(ctx context.Context, id, reason string) (*Agent, error) {
	var agent Agent
	body := map[string]string{"reason": reason}
	path := "/api/agents/" + url.PathEscape(id) + "/suspend"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// Statistics fetches an agent's commercial statistics.
func (c *Client) Statistics(ctx context.Context, id string) (*Statistics, error) {
	var stats Statistics
	path := "/api/agents/" + url.PathEscape(id) + "/statistics"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Activity fetches an agent's newest-first activity entries.
func (c *Client) Activity(ctx context.Context, id string, limit, offset int) ([]ActivityEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var entries []ActivityEntry
	path := "/api/agents/" + url.PathEscape(id) + "/activity"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// do executes a request and decodes the data field of the success envelope
// into out. Pass nil out to discard the response data.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody, out any) error {
	body, err := c.doRaw(ctx, method, path, query, reqBody)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// doRaw executes a request and returns the raw response body, converting
// error envelopes into *APIError.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, reqBody any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if c.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.adminSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != nil {
			return nil, envelope.Error
		}
		return nil, fmt.Errorf("registry returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
