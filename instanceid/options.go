package instanceid

import (
	"net/http"
	"net/url"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
	proxy       *url.URL
	headers     http.Header
	userAgent   string
	batchSize   int
	concurrency int
}

func defaultOptions() *clientOptions {
	return &clientOptions{
		baseURL:     DefaultBaseURL,
		timeout:     DefaultTimeout,
		headers:     make(http.Header),
		batchSize:   MaxBatchSize,
		concurrency: DefaultConcurrency,
	}
}

// WithBaseURL overrides the Instance ID endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP client timeout.
// Ignored when a custom client is supplied with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithProxy routes requests through the given proxy.
// Ignored when a custom client is supplied with WithHTTPClient.
func WithProxy(proxy *url.URL) Option {
	return func(o *clientOptions) {
		o.proxy = proxy
	}
}

// WithHeader adds a header sent with every request. Authorization and
// Content-Type are always set by the client and cannot be overridden.
func WithHeader(key, value string) Option {
	return func(o *clientOptions) {
		o.headers.Add(key, value)
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithBatchSize sets how many tokens BatchAddTopic and BatchRemoveTopic send
// per request. Values outside 1..MaxBatchSize are clamped.
func WithBatchSize(size int) Option {
	return func(o *clientOptions) {
		switch {
		case size < 1:
			o.batchSize = 1
		case size > MaxBatchSize:
			o.batchSize = MaxBatchSize
		default:
			o.batchSize = size
		}
	}
}

// WithConcurrency sets how many batch requests may be in flight at once.
func WithConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}
