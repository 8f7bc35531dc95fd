// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resolver talks to the attribution and destination endpoints.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	"github.com/ManuGH/castlog/internal/platform/httpx"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
	"github.com/ManuGH/castlog/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

const (
	DefaultTimeout = 30 * time.Second

	opFetchAttribution   = "fetch_attribution"
	opResolveDestination = "resolve_destination"

	maxBodyBytes = 1 << 20
)

// Keys added to the destination payload on top of the attribution fields.
const (
	KeyOS        = "os"
	KeyDeviceID  = "af_id"
	KeyBundleID  = "bundle_id"
	KeyPushToken = "push_token"
	KeyLocale    = "locale"
	KeyStoreID   = "store_id"
)

// DeviceInfo is platform metadata sent with every destination request.
type DeviceInfo struct {
	OSName   string
	BundleID string
	StoreID  string
	Locale   string
}

// Config configures the resolver endpoints.
type Config struct {
	AttributionURL string
	DestinationURL string
	DevKey         string
	Timeout        time.Duration
	Device         DeviceInfo
}

// Identity supplies per-device values that can change between calls.
type Identity interface {
	DeviceID(ctx context.Context) (string, error)
	PushToken(ctx context.Context) (string, error)
}

// Resolver performs single-shot attribution and destination lookups.
type Resolver struct {
	cfg      Config
	identity Identity
	http     *http.Client
	logger   zerolog.Logger
}

// New returns a resolver. A nil client gets a traced client with cfg.Timeout.
func New(cfg Config, identity Identity, client *http.Client) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Device.Locale = CanonicalLocale(cfg.Device.Locale)
	if client == nil {
		client = httpx.NewClient(cfg.Timeout)
	}
	return &Resolver{
		cfg:      cfg,
		identity: identity,
		http:     client,
		logger:   xglog.WithComponent("resolver"),
	}
}

// CanonicalLocale returns the BCP 47 form of s, or s unchanged if it does not parse.
func CanonicalLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return s
	}
	return tag.String()
}

// FetchAttribution issues one GET against the attribution endpoint.
func (r *Resolver) FetchAttribution(ctx context.Context, deviceID string) (payload model.Attribution, err error) {
	ctx, span := r.start(ctx, opFetchAttribution)
	defer func() { r.finish(span, opFetchAttribution, err) }()

	u, ok := pnet.ParseAbsoluteURL(r.cfg.AttributionURL)
	if !ok {
		return nil, &Error{Sentinel: ErrMalformedURL, Operation: opFetchAttribution}
	}
	q := u.Query()
	q.Set("devkey", r.cfg.DevKey)
	q.Set("device_id", deviceID)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrMalformedURL, Operation: opFetchAttribution, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, err := r.do(req, opFetchAttribution, span)
	if err != nil {
		return nil, err
	}

	payload = model.Attribution{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Sentinel: ErrServerError, Operation: opFetchAttribution, Err: fmt.Errorf("decode body: %w", err)}
	}
	r.logger.Debug().Int("keys", len(payload)).Msg("attribution fetched")
	return payload, nil
}

type destinationResponse struct {
	OK  *bool   `json:"ok"`
	URL *string `json:"url"`
}

// ResolveDestination POSTs the attribution plus device metadata and returns
// the destination URL.
func (r *Resolver) ResolveDestination(ctx context.Context, attribution model.Attribution) (dest string, err error) {
	ctx, span := r.start(ctx, opResolveDestination)
	defer func() { r.finish(span, opResolveDestination, err) }()

	endpoint, ok := pnet.ParseAbsoluteURL(r.cfg.DestinationURL)
	if !ok {
		return "", &Error{Sentinel: ErrMalformedURL, Operation: opResolveDestination}
	}

	payload, err := r.payload(ctx, attribution)
	if err != nil {
		return "", &Error{Sentinel: ErrTransport, Operation: opResolveDestination, Err: err}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Sentinel: ErrTransport, Operation: opResolveDestination, Err: fmt.Errorf("encode payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(raw))
	if err != nil {
		return "", &Error{Sentinel: ErrMalformedURL, Operation: opResolveDestination, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := r.do(req, opResolveDestination, span)
	if err != nil {
		return "", err
	}

	var res destinationResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", &Error{Sentinel: ErrInvalidDestination, Operation: opResolveDestination, Err: err}
	}
	if res.OK == nil || res.URL == nil {
		return "", &Error{Sentinel: ErrInvalidDestination, Operation: opResolveDestination, Err: fmt.Errorf("missing ok or url field")}
	}
	if !*res.OK {
		return "", &Error{Sentinel: ErrDestinationDeclined, Operation: opResolveDestination}
	}
	if _, ok := pnet.ParseAbsoluteURL(*res.URL); !ok {
		return "", &Error{Sentinel: ErrInvalidDestination, Operation: opResolveDestination, Err: fmt.Errorf("url %q is not absolute", *res.URL)}
	}

	r.logger.Debug().Str(xglog.FieldDestination, pnet.SanitizeURL(*res.URL)).Msg("destination resolved")
	return *res.URL, nil
}

func (r *Resolver) payload(ctx context.Context, attribution model.Attribution) (model.Attribution, error) {
	out := attribution.Clone()
	if out == nil {
		out = model.Attribution{}
	}
	deviceID, err := r.identity.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}
	pushToken, err := r.identity.PushToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("push token: %w", err)
	}

	out[KeyOS] = r.cfg.Device.OSName
	out[KeyDeviceID] = deviceID
	out[KeyBundleID] = r.cfg.Device.BundleID
	out[KeyLocale] = r.cfg.Device.Locale
	out[KeyStoreID] = r.cfg.Device.StoreID
	if pushToken != "" {
		out[KeyPushToken] = pushToken
	}
	return out, nil
}

func (r *Resolver) do(req *http.Request, op string, span trace.Span) ([]byte, error) {
	res, err := r.http.Do(req)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer res.Body.Close()
	span.SetAttributes(telemetry.UpstreamAttributes(op, res.StatusCode)...)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
		return nil, &Error{Sentinel: ErrServerError, Operation: op, Status: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	return body, nil
}

func (r *Resolver) start(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer("castlog/resolver").Start(ctx, "resolver."+op)
	span.SetAttributes(telemetry.UpstreamAttributes(op, 0)...)
	return ctx, span
}

func (r *Resolver) finish(span trace.Span, op string, err error) {
	outcome := Outcome(err)
	metrics.RecordUpstream(op, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}
