package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wmoned/pkg/domain"
)

const (
	opApplications = "applications"
	opDocument     = "document"

	// maxResponseBytes bounds how much of a registry response is read.
	maxResponseBytes = 32 << 20
)

// Config describes how to reach the registry.
type Config struct {
	BaseURL          string
	Token            string
	MunicipalityCode string
	Timeout          time.Duration
	// TLS carries the client certificate for mutual TLS. Nil uses the default transport.
	TLS *tls.Config
}

// Client performs registry lookups. Safe for concurrent use.
type Client struct {
	baseURL          string
	token            string
	municipalityCode string
	httpClient       *http.Client
	metrics          *Metrics
	logger           *slog.Logger
	tracer           trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient builds a registry client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		transport.TLSClientConfig = cfg.TLS
	}
	c := &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		token:            cfg.Token,
		municipalityCode: cfg.MunicipalityCode,
		httpClient:       &http.Client{Timeout: timeout, Transport: transport},
		logger:           slog.Default(),
		tracer:           otel.Tracer("wmoned/internal/registry"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewTLSConfig builds a client TLS config from PEM encoded certificate and key.
func NewTLSConfig(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Applications fetches all applications registered for bsn.
func (c *Client) Applications(ctx context.Context, bsn domain.BSN, filters Filters) ([]Application, error) {
	ctx, span := c.tracer.Start(ctx, "registry.Applications",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("registry.municipality", c.municipalityCode)))
	defer span.End()
	start := time.Now()

	endpoint := fmt.Sprintf("%s/gemeenten/%s/ingeschrevenpersonen/%s/aanvragen",
		c.baseURL, url.PathEscape(c.municipalityCode), url.PathEscape(bsn.String()))
	query := url.Values{}
	if filters.MaxEndDate != nil {
		query.Set("maxeinddatum", filters.MaxEndDate.String())
	}
	if filters.Regulation != "" {
		query.Set("regeling", filters.Regulation)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(span, opApplications, start, fmt.Errorf("build request: %w", err))
	}

	body, err := c.do(req, opApplications)
	if err != nil {
		return nil, c.fail(span, opApplications, start, err)
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, c.fail(span, opApplications, start,
			&MalformedResponseError{Op: opApplications, Reason: "invalid json", Err: err})
	}
	if envelope.Embedded == nil || envelope.Embedded.Applications == nil {
		return nil, c.fail(span, opApplications, start,
			&MalformedResponseError{Op: opApplications, Reason: "missing _embedded.aanvraag"})
	}

	apps := *envelope.Embedded.Applications
	span.SetAttributes(attribute.Int("registry.applications", len(apps)))
	c.metrics.observe(opApplications, "ok", time.Since(start))
	c.logger.DebugContext(ctx, "registry applications fetched",
		"bsn", bsn.Masked(),
		"applications", len(apps),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return apps, nil
}

// Document retrieves the content of one document belonging to bsn.
func (c *Client) Document(ctx context.Context, bsn domain.BSN, documentID string) (*DocumentContent, error) {
	ctx, span := c.tracer.Start(ctx, "registry.Document", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()

	payload, err := json.Marshal(documentRequest{
		BSN:              bsn.String(),
		MunicipalityCode: c.municipalityCode,
		DocumentID:       documentID,
	})
	if err != nil {
		return nil, c.fail(span, opDocument, start, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/document", bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail(span, opDocument, start, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, opDocument)
	if err != nil {
		return nil, c.fail(span, opDocument, start, err)
	}

	var resp documentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.fail(span, opDocument, start,
			&MalformedResponseError{Op: opDocument, Reason: "invalid json", Err: err})
	}
	if resp.Content == nil || resp.MimeType == nil {
		return nil, c.fail(span, opDocument, start,
			&MalformedResponseError{Op: opDocument, Reason: "missing inhoud or mimetype"})
	}
	data, err := base64.StdEncoding.DecodeString(*resp.Content)
	if err != nil {
		return nil, c.fail(span, opDocument, start,
			&MalformedResponseError{Op: opDocument, Reason: "inhoud is not base64", Err: err})
	}

	c.metrics.observe(opDocument, "ok", time.Since(start))
	return &DocumentContent{
		MimeType: *resp.MimeType,
		FileName: resp.FileName,
		Data:     data,
	}, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Token", c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &UpstreamError{Op: op, StatusCode: http.StatusGatewayTimeout, Timeout: true, Err: err}
		}
		return nil, &UpstreamError{Op: op, StatusCode: http.StatusBadGateway, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, &UpstreamError{Op: op, StatusCode: http.StatusGatewayTimeout, Timeout: true, Err: err}
		}
		return nil, &UpstreamError{Op: op, StatusCode: http.StatusBadGateway, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &UpstreamError{Op: op, StatusCode: res.StatusCode}
	}
	return body, nil
}

func (c *Client) fail(span trace.Span, op string, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := "error"
	var ue *UpstreamError
	switch {
	case errors.As(err, &ue) && ue.Timeout:
		outcome = "timeout"
	case ue != nil:
		outcome = "upstream_error"
	case IsMalformed(err):
		outcome = "malformed"
	}
	c.metrics.observe(op, outcome, time.Since(start))
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
