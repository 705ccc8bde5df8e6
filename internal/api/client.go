package api

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
)

// Doer abstracts the HTTP client so tests can substitute transports.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig carries the settings for the HTTP transport.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is the HTTP implementation of Transport.
type Client struct {
	baseURL string
	token   string
	http    Doer
	log     zerolog.Logger
}

var _ Transport = (*Client)(nil)

// NewClient builds the HTTP transport. A nil doer gets a default
// http.Client with the configured timeout.
func NewClient(cfg ClientConfig, doer Doer, log zerolog.Logger) *Client {
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    doer,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// SendMutation implements Transport.
func (c *Client) SendMutation(ctx context.Context, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint), bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("mutation rejected")
		return &TransportError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("server returned %s", resp.Status),
		}
	}

	c.log.Debug().Str("endpoint", endpoint).Int("bytes", len(payload)).Msg("mutation sent")
	return nil
}

// FetchCollection implements Transport.
func (c *Client) FetchCollection(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, &TransportError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("server returned %s", resp.Status),
		}
	}

	var docs []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, &TransportError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("failed to decode response: %w", err),
		}
	}

	c.log.Debug().Str("endpoint", endpoint).Int("items", len(docs)).Msg("collection fetched")
	return docs, nil
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + "/v1/" + endpoint
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
