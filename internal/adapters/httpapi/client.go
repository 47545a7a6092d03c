package httpapi

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
)

// Client calls a running daemon. Errors carrying a known code wrap the
// matching domain sentinel so callers can use errors.Is.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Health(ctx context.Context) (HealthView, error) {
	var out HealthView
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context) (OverviewView, error) {
	var out OverviewView
	err := c.do(ctx, http.MethodGet, "/api/accounts", nil, &out)
	return out, err
}

func (c *Client) AddAccount(ctx context.Context, username, tokenID, tokenSecret string) (AccountView, error) {
	var out AccountView
	err := c.do(ctx, http.MethodPost, "/api/accounts", addAccountRequest{
		Username:    username,
		TokenID:     tokenID,
		TokenSecret: tokenSecret,
	}, &out)
	return out, err
}

func (c *Client) RemoveAccount(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/api/accounts/"+url.PathEscape(username), nil, nil)
}

func (c *Client) History(ctx context.Context, username string, limit int) ([]UsageEntryView, error) {
	path := "/api/accounts/" + url.PathEscape(username) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out []UsageEntryView
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SetGPU(ctx context.Context, username, gpu string) (AccountView, error) {
	var out AccountView
	err := c.do(ctx, http.MethodPut, "/api/accounts/"+url.PathEscape(username)+"/gpu", gpuRequest{GPU: gpu}, &out)
	return out, err
}

func (c *Client) SwitchTo(ctx context.Context, username string) (AccountView, error) {
	var out AccountView
	err := c.do(ctx, http.MethodPost, "/api/accounts/"+url.PathEscape(username)+"/switch", nil, &out)
	return out, err
}

func (c *Client) SwitchNext(ctx context.Context) (AccountView, error) {
	var out AccountView
	err := c.do(ctx, http.MethodPost, "/api/accounts/switch-next", nil, &out)
	return out, err
}

func (c *Client) CheckBalance(ctx context.Context, username string) (BalanceView, error) {
	var out BalanceView
	err := c.do(ctx, http.MethodPost, "/api/accounts/"+url.PathEscape(username)+"/balance", nil, &out)
	return out, err
}

func (c *Client) CheckAllBalances(ctx context.Context) (BalancesView, error) {
	var out BalancesView
	err := c.do(ctx, http.MethodPost, "/api/balances/check", nil, &out)
	return out, err
}

func (c *Client) Session(ctx context.Context) (SessionView, error) {
	var out SessionView
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context, username, gpu string) (DeploymentView, error) {
	var out DeploymentView
	err := c.do(ctx, http.MethodPost, "/api/session/start", startSessionRequest{Username: username, GPU: gpu}, &out)
	return out, err
}

func (c *Client) StopSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/session/stop", nil, nil)
}

func (c *Client) RunSetup(ctx context.Context, username, gpu string) (SetupAccepted, error) {
	var out SetupAccepted
	err := c.do(ctx, http.MethodPost, "/api/setup", setupRequest{Username: username, GPU: gpu}, &out)
	return out, err
}

func (c *Client) Watchdog(ctx context.Context) (WatchdogView, error) {
	var out WatchdogView
	err := c.do(ctx, http.MethodGet, "/api/watchdog", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if sentinel := sentinelForCode(body.Code); sentinel != nil {
		return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error, sentinel: sentinel}
	}

	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}

// APIError is a non-2xx daemon response.
type APIError struct {
	Status   int
	Code     string
	Message  string
	sentinel error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}
