package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QueryTimeout bounds a single HTTP request to a service.
const QueryTimeout = 30 * time.Second

const maxBody = 2 << 20

// NewHTTPClient returns a client with the default query timeout.
// Response decompression is left to the transport.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: QueryTimeout}
}

// GetJSON performs a GET request and decodes a JSON response into out.
// Non-2xx responses are returned as *TransportError with the body preserved.
func GetJSON(c context.Context, client *http.Client, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(c, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Op: "GET " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &TransportError{Op: "GET " + req.URL.Path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "GET " + req.URL.Path, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}

	return nil
}
