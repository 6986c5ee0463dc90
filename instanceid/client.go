package instanceid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Instance ID server API endpoint
	DefaultBaseURL = "https://iid.googleapis.com/iid"
	// DefaultTimeout is used when no HTTP client or timeout is supplied
	DefaultTimeout = 30 * time.Second
)

// Client talks to the Instance ID topic management API
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	headers     http.Header
	userAgent   string
	batchSize   int
	concurrency int
	logger      zerolog.Logger
}

// NewClient creates a new Instance ID client
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	baseURL := strings.TrimRight(o.baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrInvalidConfig, o.baseURL)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
		if o.proxy != nil {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.Proxy = http.ProxyURL(o.proxy)
			httpClient.Transport = transport
		}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  httpClient,
		headers:     o.headers.Clone(),
		userAgent:   o.userAgent,
		batchSize:   o.batchSize,
		concurrency: o.concurrency,
		logger:      logger,
	}, nil
}

// BaseURL returns the endpoint the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AddTopic subscribes the registration tokens to topic
func (c *Client) AddTopic(ctx context.Context, tokens []string, topic string) (*RelationshipResult, error) {
	return c.manageRelationship(ctx, tokens, topic, ActionAdd)
}

// RemoveTopic unsubscribes the registration tokens from topic
func (c *Client) RemoveTopic(ctx context.Context, tokens []string, topic string) (*RelationshipResult, error) {
	return c.manageRelationship(ctx, tokens, topic, ActionRemove)
}

// GetInfo fetches the details of a registration token, including its topic
// subscriptions. Any status other than 200 yields a nil DeviceInfo and a nil
// error, so callers cannot tell an unknown token from a server failure.
func (c *Client) GetInfo(ctx context.Context, token string) (*DeviceInfo, error) {
	endpoint := "/info/" + url.PathEscape(token) + "?details=true"

	resp, body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Msg("No info returned for registration token")
		return nil, nil
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("failed to parse info response: %w", err)
		}
	}

	return NewDeviceInfo(data), nil
}

// manageRelationship sends a batchAdd/batchRemove request and reshapes the
// response. Non-200 responses are returned as results, not errors.
func (c *Client) manageRelationship(ctx context.Context, tokens []string, topic string, action Action) (*RelationshipResult, error) {
	payload, err := json.Marshal(relationshipRequest{
		RegistrationTokens: tokens,
		To:                 topic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, body, err := c.doRequest(ctx, http.MethodPost, action.Path(), payload)
	if err != nil {
		return nil, err
	}

	result := &RelationshipResult{
		Body:       map[string]any{},
		RawBody:    body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		Errors:     []RelationshipError{},
	}

	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result.Body); err != nil {
			if resp.StatusCode == http.StatusOK {
				return nil, fmt.Errorf("failed to parse %s response: %w", action, err)
			}
			// Error pages are not always JSON
			result.Body = map[string]any{}
		}
		// A literal null decodes to a nil map
		if result.Body == nil {
			result.Body = map[string]any{}
		}
	}

	if resp.StatusCode != http.StatusOK {
		return result, nil
	}

	for i, item := range result.Results() {
		msg, ok := item["error"]
		if !ok || msg == nil {
			continue
		}
		relErr := RelationshipError{Error: fmt.Sprint(msg)}
		if i < len(tokens) {
			relErr.RegistrationToken = tokens[i]
		}
		result.Errors = append(result.Errors, relErr)
	}

	c.logger.Debug().
		Str("action", string(action)).
		Str("topic", topic).
		Int("tokens", len(tokens)).
		Int("errors", len(result.Errors)).
		Msg("Topic relationship updated")

	return result, nil
}

// doRequest performs an HTTP request with authentication and returns the
// response together with its fully read body
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Authorization", "key="+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	start := time.Now()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", req.URL.Path).
		Msg("Making Instance ID API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Instance ID API response")

	return resp, body, nil
}
