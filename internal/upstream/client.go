package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	maxBodyBytes  = 8 << 20
	maxErrorBytes = 256
	userAgent     = "adaptbtc-server/1.0"
)

// RequestOption 修改单个请求
type RequestOption func(*http.Request)

// ClientOption 修改客户端
type ClientOption func(*Client)

// Client 面向单个上游的 HTTP 客户端
//
// 每次调用使用固定超时，不重试；网络失败、非 2xx、非 JSON 响应
// 都转换为 *Error，其余错误原样返回。
type Client struct {
	source     string
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
	metrics    MetricsCollector
	log        zerolog.Logger
}

func NewClient(source string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		source:     source,
		httpClient: &http.Client{},
		timeout:    timeout,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		},
		metrics: NoopMetricsCollector{},
		log:     logger.Component("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient 替换底层 http.Client（测试或自定义 Transport）
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m MetricsCollector) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithDefaultHeader 所有请求附带的 header
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithQuery 追加查询参数
func WithQuery(params map[string]string) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
}

func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

func (c *Client) Source() string {
	return c.source
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// GetJSON GET 请求，返回合法的 JSON 响应体
func (c *Client) GetJSON(ctx context.Context, rawURL string, opts ...RequestOption) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, opts...)
}

// PostJSON POST JSON 请求体，返回合法的 JSON 响应体
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any, opts ...RequestOption) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	opts = append([]RequestOption{WithHeader("Content-Type", "application/json")}, opts...)
	return c.do(ctx, http.MethodPost, rawURL, payload, opts...)
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, opts ...RequestOption) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	body, uerr := c.roundTrip(req)
	duration := time.Since(start)

	c.metrics.RecordRequest(c.source, statusLabel(uerr), duration)
	if uerr != nil {
		c.log.Warn().
			Str("source", c.source).
			Str("method", method).
			Str("url", req.URL.Redacted()).
			Str("kind", string(uerr.Kind)).
			Int("status", uerr.StatusCode).
			Dur("duration", duration).
			Err(uerr.Err).
			Msg("upstream request failed")
		return nil, uerr
	}

	c.log.Debug().
		Str("source", c.source).
		Str("url", req.URL.Redacted()).
		Int("bytes", len(body)).
		Dur("duration", duration).
		Msg("upstream request ok")
	return body, nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, *Error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NetworkError(c.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NetworkError(c.source, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, StatusError(c.source, resp.StatusCode, truncate(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, Malformed(c.source, "invalid JSON body")
	}
	return body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBytes {
		return s[:maxErrorBytes] + "..."
	}
	return s
}
