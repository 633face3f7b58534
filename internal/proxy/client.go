// Package proxy forwards caller-supplied API calls to a deployed service with
// a bearer token.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Request describes one pass-through call. Payload is sent as the JSON body
// unless it is empty, null, false, "" or zero.
type Request struct {
	Topic   string
	Method  string
	Payload json.RawMessage
}

// Response carries the service status as-is. Body holds decoded JSON when the
// service answered with JSON, the raw text otherwise.
type Response struct {
	StatusCode int `json:"statusCode" yaml:"statusCode"`
	Body       any `json:"body" yaml:"body"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With(slog.String("component", "proxy")),
	}
}

// ResolveMethod returns the HTTP method of r: the explicit one, else POST when a
// payload is present and GET otherwise.
func (r Request) ResolveMethod() string {
	if r.Method != "" {
		return strings.ToUpper(r.Method)
	}
	if hasPayload(r.Payload) {
		return http.MethodPost
	}
	return http.MethodGet
}

// URL joins the service base and the topic.
func (c *Client) URL(topic string) string {
	if !strings.HasPrefix(topic, "/") {
		topic = "/" + topic
	}
	return c.baseURL + topic
}

// Call issues the request. Transport failures are returned unchanged and
// non-2xx statuses are not treated as errors.
func (c *Client) Call(ctx context.Context, token string, r Request) (*Response, error) {
	tracer := otel.Tracer("stackbuilder/proxy")
	ctx, span := tracer.Start(ctx, "Call")
	defer span.End()

	method := r.ResolveMethod()
	url := c.URL(strings.TrimSpace(r.Topic))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("proxy.topic", r.Topic),
	)

	var body io.Reader
	if hasPayload(r.Payload) {
		body = bytes.NewReader(r.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build service request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("service call finished",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       decodeBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

// hasPayload reports whether p carries a value worth sending. null, false, ""
// and zero count as no payload.
func hasPayload(p json.RawMessage) bool {
	trimmed := bytes.TrimSpace(p)
	if len(trimmed) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return true
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		return true
	}
}

func decodeBody(contentType string, raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") || json.Valid(raw) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}
