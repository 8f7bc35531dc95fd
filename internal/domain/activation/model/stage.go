// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// StageKind enumerates the activation stages.
type StageKind string

const (
	StageDormant    StageKind = "dormant"
	StageStarting   StageKind = "starting"
	StageVerifying  StageKind = "verifying"
	StageAuthorized StageKind = "authorized"
	StageRunning    StageKind = "running"
	StagePaused     StageKind = "paused"
	StageOffline    StageKind = "offline"
)

// AllStageKinds lists every stage in declaration order.
var AllStageKinds = []StageKind{
	StageDormant,
	StageStarting,
	StageVerifying,
	StageAuthorized,
	StageRunning,
	StagePaused,
	StageOffline,
}

// IsFinal reports whether connectivity and timeout events no longer apply.
func (k StageKind) IsFinal() bool {
	return k == StageRunning || k == StagePaused
}

// Stage is the authoritative activation state. Destination is only set for
// StageRunning.
type Stage struct {
	Kind        StageKind `json:"stage"`
	Destination string    `json:"destination,omitempty"`
}

// Dormant is the stage every machine starts in.
func Dormant() Stage { return Stage{Kind: StageDormant} }

// Running returns the running stage bound to destination.
func Running(destination string) Stage {
	return Stage{Kind: StageRunning, Destination: destination}
}

// IsFinal reports whether the stage ignores connectivity and timeout events.
func (s Stage) IsFinal() bool { return s.Kind.IsFinal() }

func (s Stage) String() string {
	if s.Kind == StageRunning {
		return string(s.Kind) + "(" + s.Destination + ")"
	}
	return string(s.Kind)
}
