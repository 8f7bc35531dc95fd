// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/castlog/internal/platform/httpx"
)

const maxFlagBody = 64 << 10

// DefaultTimeout bounds a lookup when no client is supplied.
const DefaultTimeout = 30 * time.Second

// HTTPFlagSource reads flags from a JSON document store that serves each
// path as "{base}/{path}.json" (a JSON string, or null when unset).
type HTTPFlagSource struct {
	base string
	http *http.Client
}

// NewHTTPFlagSource returns a source rooted at base. A nil client gets a
// traced client bounded by DefaultTimeout.
func NewHTTPFlagSource(base string, client *http.Client) *HTTPFlagSource {
	if client == nil {
		client = httpx.NewClient(DefaultTimeout)
	}
	return &HTTPFlagSource{base: strings.TrimRight(base, "/"), http: client}
}

func (s *HTTPFlagSource) Lookup(ctx context.Context, path string) (string, bool, error) {
	u, err := url.Parse(s.base + "/" + strings.Trim(path, "/") + ".json")
	if err != nil {
		return "", false, fmt.Errorf("build flag url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", false, err
	}
	res, err := s.http.Do(req)
	if err != nil {
		return "", false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", false, fmt.Errorf("flag store returned HTTP %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxFlagBody))
	if err != nil {
		return "", false, fmt.Errorf("read flag body: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", false, fmt.Errorf("decode flag body: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	default:
		// present but not a string: a malformed flag, not a lookup failure
		return "", true, nil
	}
}
