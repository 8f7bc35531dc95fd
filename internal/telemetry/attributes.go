// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys used on activation spans.
const (
	OperationKey   = "castlog.operation"
	SourceKey      = "castlog.source"
	StatusCodeKey  = "http.status_code"
	ErrorTypeKey   = "error.type"
	FlagPathKey    = "castlog.flag_path"
	HasDeeplinkKey = "castlog.has_deeplink"
)

// UpstreamAttributes describes an outbound call.
func UpstreamAttributes(operation string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(OperationKey, operation)}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(StatusCodeKey, statusCode))
	}
	return attrs
}

// ErrorAttributes classifies a failure.
func ErrorAttributes(errType string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, errType)}
}
