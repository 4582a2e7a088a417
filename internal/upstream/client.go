package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Balance is one successful balance reading from the upstream account API.
type Balance struct {
	Balance float64
	Status  string
}

// Fetcher retrieves the current balance for an API key. Any transport
// error, non-200 status or malformed payload is an error, never a partial
// result.
type Fetcher interface {
	FetchBalance(ctx context.Context, apiKey string) (*Balance, error)
	Name() string
}

// Client implements Fetcher against the provider's user-info REST endpoint.
type Client struct {
	AccountURL string
	HTTP       *http.Client
}

// NewClient creates a client with the given request timeout and optional proxy.
func NewClient(accountURL string, timeout time.Duration, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		AccountURL: accountURL,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *Client) Name() string { return "siliconflow" }

// FetchBalance calls the account endpoint with the key as a bearer token.
// The provider wraps payloads as {"code":20000,"data":{...}}; balance comes
// from data.balance with data.totalBalance as fallback, status defaults to
// "active" when absent.
func (c *Client) FetchBalance(ctx context.Context, apiKey string) (*Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AccountURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch balance: status %d, body: %s", resp.StatusCode, string(body))
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() || parsed.Get("code").Int() != 20000 {
		return nil, fmt.Errorf("unexpected payload: %s", string(body))
	}
	data := parsed.Get("data")
	if !data.Exists() {
		return nil, fmt.Errorf("payload missing data: %s", string(body))
	}

	balance := data.Get("balance")
	if !balance.Exists() {
		balance = data.Get("totalBalance")
	}
	if !balance.Exists() {
		return nil, fmt.Errorf("payload missing balance: %s", string(body))
	}

	status := data.Get("status").String()
	if status == "" {
		status = "active"
	}

	return &Balance{Balance: balance.Float(), Status: status}, nil
}

var _ Fetcher = (*Client)(nil)
