// Package httpapi implements the gateway ports against the remote
// ticketing dashboard's JSON API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marquee/internal/core"
	"marquee/internal/gateway"
)

// Client talks to the dashboard API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Ensure interface conformance
var (
	_ gateway.VenueDirectory  = (*Client)(nil)
	_ gateway.ShowLister      = (*Client)(nil)
	_ gateway.BreakdownReader = (*Client)(nil)
	_ gateway.PaymentStore    = (*Client)(nil)
	_ gateway.RecentReader    = (*Client)(nil)
)

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Venues(ctx context.Context) ([]string, error) {
	var result struct {
		Venues []string `json:"venues"`
	}
	if err := c.getJSON(ctx, "/api/venues", nil, &result); err != nil {
		return nil, err
	}
	if result.Venues == nil {
		return nil, fmt.Errorf("%w: venues list missing", gateway.ErrMalformedResponse)
	}
	return result.Venues, nil
}

func (c *Client) Shows(ctx context.Context, venue string) ([]core.Show, error) {
	var result struct {
		Shows []core.Show `json:"shows"`
	}
	query := url.Values{"venue": {venue}}
	if err := c.getJSON(ctx, "/api/shows", query, &result); err != nil {
		return nil, err
	}
	return result.Shows, nil
}

func (c *Client) ShowBreakdown(ctx context.Context, venue, showDate string) (core.BreakdownPayload, error) {
	var payload core.BreakdownPayload
	query := url.Values{"venue": {venue}, "show_date": {showDate}}
	if err := c.getJSON(ctx, "/api/show-breakdown", query, &payload); err != nil {
		return core.BreakdownPayload{}, err
	}
	if err := payload.Validate(); err != nil {
		return core.BreakdownPayload{}, fmt.Errorf("%w: %v", gateway.ErrMalformedResponse, err)
	}
	return payload, nil
}

func (c *Client) PaymentRecords(ctx context.Context, venue, showDate string) ([]core.PaymentRecord, error) {
	var result struct {
		Performers []core.PaymentRecord `json:"performers"`
	}
	query := url.Values{"venue": {venue}, "show_date": {showDate}}
	if err := c.getJSON(ctx, "/api/performers", query, &result); err != nil {
		return nil, err
	}
	return result.Performers, nil
}

func (c *Client) SavePaymentRecords(ctx context.Context, venue, showDate string, records []core.PaymentRecord) ([]core.PaymentRecord, error) {
	if records == nil {
		records = []core.PaymentRecord{}
	}
	reqBody := struct {
		Venue      string               `json:"venue"`
		ShowDate   string               `json:"show_date"`
		Performers []core.PaymentRecord `json:"performers"`
	}{venue, showDate, records}

	var result struct {
		Performers []core.PaymentRecord `json:"performers"`
	}
	if err := c.postJSON(ctx, "/api/performers", reqBody, &result); err != nil {
		return nil, err
	}
	if result.Performers == nil {
		return nil, fmt.Errorf("%w: performers list missing from save response", gateway.ErrMalformedResponse)
	}
	return result.Performers, nil
}

func (c *Client) RecentSelection(ctx context.Context) (core.Selection, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/recent", nil, nil)
	if err != nil {
		return core.Selection{}, false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Selection{}, false, fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return core.Selection{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return core.Selection{}, false, fmt.Errorf("%w: GET /api/recent: %s", gateway.ErrTransport, resp.Status)
	}

	var sel core.Selection
	if err := json.NewDecoder(resp.Body).Decode(&sel); err != nil {
		return core.Selection{}, false, fmt.Errorf("%w: %v", gateway.ErrMalformedResponse, err)
	}
	if sel.IsZero() {
		return core.Selection{}, false, nil
	}
	return sel, true, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", gateway.ErrTransport, req.Method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", gateway.ErrMalformedResponse, path, err)
	}
	return nil
}
