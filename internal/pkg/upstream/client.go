// Package upstream is the shared outbound HTTP client for the station,
// arrival and geolocation services. Every call gets a span and is observed
// by the upstream metrics.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trainboard/internal/pkg/metrics"
	"github.com/samirrijal/trainboard/internal/pkg/telemetry"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: network response was not ok (status %d)", e.Service, e.Code)
}

// Client performs requests against one upstream service.
type Client struct {
	service string
	timeout time.Duration
	http    *fasthttp.Client
}

// New creates a client labelled service in spans and metrics.
func New(service string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "trainboard",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

// Do sends one request and returns the response body. The request is bounded
// by the client timeout and by ctx's deadline, whichever is earlier.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header map[string]string) (out []byte, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, c.service+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		),
	)
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(c.service, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
		}
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status < 200 || status > 299 {
		return nil, &StatusError{Service: c.service, Code: status}
	}

	// resp is released on return
	return append([]byte(nil), resp.Body()...), nil
}

// PostJSON encodes in as the request body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data, err := c.Do(ctx, fasthttp.MethodPost, url, body, map[string]string{
		fasthttp.HeaderContentType: "application/json",
	})
	if err != nil {
		return err
	}
	return decode(data, out)
}

// GetJSON decodes the response of a GET into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	data, err := c.Do(ctx, fasthttp.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
