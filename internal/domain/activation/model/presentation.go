// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// PresentationState is the coarse, UI-facing projection of a Stage.
type PresentationState string

const (
	PresentationInitializing PresentationState = "initializing"
	PresentationActive       PresentationState = "active"
	PresentationStandby      PresentationState = "standby"
	PresentationDisconnected PresentationState = "disconnected"
)

// PresentationFor maps a stage onto its presentation state.
func PresentationFor(s Stage) PresentationState {
	switch s.Kind {
	case StageRunning:
		return PresentationActive
	case StagePaused:
		return PresentationStandby
	case StageOffline:
		return PresentationDisconnected
	default:
		return PresentationInitializing
	}
}
