// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package netwatch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	pnet "github.com/ManuGH/castlog/internal/platform/net"
)

// Prober performs one reachability check. A nil error means connected.
type Prober interface {
	Probe(ctx context.Context) error
}

// DialProber opens (and immediately closes) a TCP connection to Address.
// Address may be "host:port" or a URL; a missing port defaults by scheme.
type DialProber struct {
	Address string
	dialer  net.Dialer
}

func (p *DialProber) Probe(ctx context.Context) error {
	host, port, err := pnet.NormalizeAuthority(p.Address, "https")
	if err != nil {
		return fmt.Errorf("probe address: %w", err)
	}
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return conn.Close()
}

// HTTPProber treats any HTTP response from URL as connectivity.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return res.Body.Close()
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }
