// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"strings"
)

// Well-known attribution keys. The key set is owned by the attribution
// provider; only the keys the activation flow inspects are named here.
const (
	AttributionStatusKey = "af_status"
	AttributionOrganic   = "Organic"
)

// Attribution is an opaque install/campaign payload. Values are whatever the
// upstream JSON decoded to (string, float64, bool, nil, nested maps).
type Attribution map[string]any

// Merge returns a new payload holding every key of primary plus the keys of
// fallback that primary lacks. Neither input is modified.
func Merge(primary, fallback Attribution) Attribution {
	out := make(Attribution, len(primary)+len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	for k, v := range primary {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy; nil stays nil.
func (a Attribution) Clone() Attribution {
	if a == nil {
		return nil
	}
	out := make(Attribution, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String returns the value stored at key rendered as a string, or "".
func (a Attribution) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IsOrganic reports whether the provider classified the install as organic.
func (a Attribution) IsOrganic() bool {
	return strings.EqualFold(a.String(AttributionStatusKey), AttributionOrganic)
}
