package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/valyala/fastjson"
)

// Client fetches datasets from a server's open handler.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// APIError is a non-2xx response from the open handler.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.HTTPStatus, e.Message)
}

// Dataset fetches the dataset stored under id. The server deletes a dataset
// once it has been handed out, so a second call for the same id fails with
// a 404 APIError.
func (c *Client) Dataset(ctx context.Context, id string) ([]byte, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/_debugbar/open")
	if err != nil {
		return nil, fmt.Errorf("parse host: %w", err)
	}
	u.RawQuery = url.Values{"op": {"get"}, "id": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	return body, nil
}

// errorMessage extracts the message of a {"code","message"} error body,
// falling back to the HTTP status line.
func errorMessage(body []byte, status string) string {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return status
	}
	if msg := v.GetStringBytes("message"); len(msg) > 0 {
		return string(msg)
	}
	return status
}
