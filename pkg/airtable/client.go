package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.airtable.com/v0"

// ErrNotFound is returned when Airtable answers 404 for a record or table.
var ErrNotFound = errors.New("airtable: record not found")

type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string
	Timeout time.Duration
}

// Record is a single Airtable row.
type Record struct {
	ID          string                 `json:"id,omitempty"`
	CreatedTime string                 `json:"createdTime,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

// APIError carries Airtable's {"error": {"type", "message"}} body.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("airtable: %s (status %d)", msg, e.StatusCode)
}

// ListOptions narrows a table listing.
type ListOptions struct {
	FilterByFormula string
	MaxRecords      int
	PageSize        int
	SortField       string
	SortDesc        bool
}

// Client talks to one Airtable base over the REST API.
type Client struct {
	BaseURL string
	BaseID  string
	apiKey  string
	Client  *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		BaseID:  cfg.BaseID,
		apiKey:  cfg.APIKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.BaseURL, c.BaseID, url.PathEscape(table))
}

// Create inserts one record and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), Record{Fields: fields}, &out); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", table, err)
	}
	return &out, nil
}

// Update patches the given fields of a record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table)+"/"+url.PathEscape(id), Record{Fields: fields}, &out); err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", table, err)
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch %s record: %w", table, err)
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.tableURL(table)+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", table, err)
	}
	return nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// List returns every record of table, following the offset cursor across pages.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		q := url.Values{}
		if opts.FilterByFormula != "" {
			q.Set("filterByFormula", opts.FilterByFormula)
		}
		if opts.MaxRecords > 0 {
			q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		if opts.PageSize > 0 {
			q.Set("pageSize", strconv.Itoa(opts.PageSize))
		}
		if opts.SortField != "" {
			q.Set("sort[0][field]", opts.SortField)
			if opts.SortDesc {
				q.Set("sort[0][direction]", "desc")
			}
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		endpoint := c.tableURL(table)
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
		}
		all = append(all, page.Records...)

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	return all, nil
}

type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Airtable returns either {"error": {"type", "message"}} or {"error": "TYPE"}.
func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return apiErr
	}
	var detail errorDetail
	if err := json.Unmarshal(eb.Error, &detail); err == nil {
		apiErr.Type = detail.Type
		apiErr.Message = detail.Message
		return apiErr
	}
	var typ string
	if err := json.Unmarshal(eb.Error, &typ); err == nil {
		apiErr.Type = typ
		apiErr.Message = typ
	}
	return apiErr
}
