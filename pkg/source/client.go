package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/vulncorr/pkg/logger"
	"github.com/user/vulncorr/pkg/record"
)

const (
	DefaultPageSize = 2000
	DefaultStartID  = 1
	DefaultTimeout  = 30 * time.Second
)

// StatusError is returned when a data source answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status: %s", e.URL, e.Status)
}

// Client fetches servers and vulnerabilities from the inventory API.
type Client struct {
	ServersURL         string
	VulnerabilitiesURL string
	AuthToken          string
	PageSize           int
	StartID            int

	http *http.Client
}

// NewClient returns a client with the default page size, start id and
// request timeout. Callers may override the exported fields.
func NewClient(serversURL, vulnerabilitiesURL, authToken string) *Client {
	return &Client{
		ServersURL:         serversURL,
		VulnerabilitiesURL: vulnerabilitiesURL,
		AuthToken:          authToken,
		PageSize:           DefaultPageSize,
		StartID:            DefaultStartID,
		http:               &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// FetchServers retrieves every server with a single authenticated request.
func (c *Client) FetchServers(ctx context.Context) ([]record.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build servers request: %w", err)
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", c.AuthToken)
	}

	servers, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch servers: %w", err)
	}
	logger.Debugf("fetched %d servers from %s", len(servers), c.ServersURL)
	return servers, nil
}

// FetchVulnerabilities retrieves every vulnerability page by page.
func (c *Client) FetchVulnerabilities(ctx context.Context) ([]record.Record, error) {
	vulns, err := Paginate(ctx, c.StartID, c.PageSize, c.fetchPage)
	if err != nil {
		return nil, fmt.Errorf("fetch vulnerabilities: %w", err)
	}
	return vulns, nil
}

type pageRequest struct {
	StartID int `json:"startId"`
	Amount  int `json:"amount"`
}

func (c *Client) fetchPage(ctx context.Context, startID, amount int) ([]record.Record, error) {
	body, err := json.Marshal(pageRequest{StartID: startID, Amount: amount})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.VulnerabilitiesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vulnerabilities request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	page, err := c.do(req)
	if err != nil {
		return nil, err
	}
	logger.Debugf("vulnerability page startId=%d amount=%d returned %d records", startID, amount, len(page))
	return page, nil
}

func (c *Client) do(req *http.Request) ([]record.Record, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return record.Decode(resp.Body)
}
