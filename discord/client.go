// Package discord is the rate-limit-aware outbound client for the Discord
// API. Every call carries the bot credential by default and transparently
// honors 429 responses by waiting out the server-advertised window before
// reissuing the identical request.
package discord

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

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-forms/core"
	"github.com/goliatone/go-forms/ratelimit"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient           HTTPDoer
	baseURL              *url.URL
	botToken             string
	maxResponseBodyBytes int64
	wait                 func(ctx context.Context, d time.Duration) error
	now                  func() time.Time
}

type ClientOption func(*Client)

func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		c.maxResponseBodyBytes = limit
	}
}

// WithWaiter replaces the rate-limit suspension. Tests use this to record
// waits instead of sleeping.
func WithWaiter(wait func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		c.wait = wait
	}
}

func NewClient(cfg core.DiscordConfig, options ...ClientOption) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = core.DefaultConfig().Discord.BaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("discord: invalid base url: %w", err)
	}

	client := &Client{
		httpClient:           &http.Client{Timeout: defaultClientTimeout},
		baseURL:              parsed,
		botToken:             strings.TrimSpace(cfg.BotToken),
		maxResponseBodyBytes: defaultResponseBodyLimit,
		wait:                 ratelimit.Wait,
		now:                  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	if client.wait == nil {
		client.wait = ratelimit.Wait
	}
	return client, nil
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r Response) JSON(target any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("discord: empty response body")
	}
	return json.Unmarshal(r.Body, target)
}

// Call issues one request against the API. The path is resolved against the
// base URL, so absolute URLs (webhook endpoints) pass through untouched.
// Caller headers are merged over the defaults; an absent caller header never
// strips the bot authorization. On 429 the call suspends for the advertised
// window and reissues the identical body until a non-429 status arrives; any
// remaining non-2xx status surfaces as an API error with status and body
// preserved.
func (c *Client) Call(
	ctx context.Context,
	method string,
	path string,
	body any,
	headers map[string]string,
) (Response, error) {
	if c == nil || c.httpClient == nil {
		return Response{}, apiError(
			"discord: client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method = strings.TrimSpace(strings.ToUpper(method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolveURL(path)
	if err != nil {
		return Response{}, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return Response{}, apiWrapError(
				err,
				goerrors.CategoryBadInput,
				"discord: encode request body",
				http.StatusBadRequest,
				map[string]any{"method": method, "url": target},
			)
		}
	}

	for {
		res, err := c.issue(ctx, method, target, payload, headers)
		if err != nil {
			return Response{}, err
		}
		if ratelimit.Throttled(res.StatusCode) {
			delay, ok := ratelimit.RetryAfter(res.Headers, c.clock())
			if !ok {
				delay = time.Second
			}
			if waitErr := c.wait(ctx, delay); waitErr != nil {
				return Response{}, apiWrapError(
					waitErr,
					goerrors.CategoryExternal,
					"discord: rate limit wait interrupted",
					http.StatusBadGateway,
					map[string]any{"method": method, "url": target},
				)
			}
			continue
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return Response{}, statusError(method, target, res)
		}
		return res, nil
	}
}

func (c *Client) issue(
	ctx context.Context,
	method string,
	target string,
	payload []byte,
	headers map[string]string,
) (Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Response{}, apiWrapError(
			err,
			goerrors.CategoryBadInput,
			"discord: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}

	if c.botToken != "" {
		httpReq.Header.Set("Authorization", "Bot "+c.botToken)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, apiWrapError(
			err,
			goerrors.CategoryExternal,
			"discord: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := c.maxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return Response{}, apiWrapError(
			err,
			goerrors.CategoryExternal,
			"discord: read response body",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return Response{}, apiError(
			fmt.Sprintf("discord: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target, "status_code": httpRes.StatusCode},
		)
	}

	return Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
	}, nil
}

func (c *Client) resolveURL(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", apiError(
			"discord: request path is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", apiWrapError(
			err,
			goerrors.CategoryBadInput,
			"discord: invalid request path",
			http.StatusBadRequest,
			map[string]any{"path": trimmed},
		)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if c.baseURL == nil {
		return "", apiError(
			"discord: client has no base url",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) clock() time.Time {
	if c != nil && c.now != nil {
		return c.now().UTC()
	}
	return time.Now().UTC()
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
