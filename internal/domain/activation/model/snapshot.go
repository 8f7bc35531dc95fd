// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// Snapshot is the read model handed to the presentation layer.
type Snapshot struct {
	Stage             StageKind         `json:"stage"`
	Destination       string            `json:"destination,omitempty"`
	Presentation      PresentationState `json:"presentation"`
	PermissionPending bool              `json:"permission_pending"`
	Locked            bool              `json:"locked"`
}
