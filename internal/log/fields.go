// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldDeviceID  = "device_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldSource    = "source"
	FieldBackend   = "backend"

	// Activation fields
	FieldStage        = "stage"
	FieldOldStage     = "old_stage"
	FieldNewStage     = "new_stage"
	FieldPresentation = "presentation"
	FieldDestination  = "destination"
	FieldLocked       = "locked"

	// Network fields
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldConnected = "connected"
)
