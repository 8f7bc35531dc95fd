// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/castlog/internal/domain/activation/model"

// Transition is a single allowed edge in the activation state machine.
type Transition struct {
	From  model.StageKind
	To    model.StageKind
	Event EventKind
}

// Every (stage, event) pair missing from this table is a no-op.
// connectivityLost from offline is deliberately absent: it would be a self-edge.
var transitionsTable = []Transition{
	// Happy path
	{From: model.StageDormant, To: model.StageStarting, Event: EvBoot},
	{From: model.StageStarting, To: model.StageVerifying, Event: EvDataIngested},
	{From: model.StageVerifying, To: model.StageAuthorized, Event: EvValidationPassed},
	{From: model.StageVerifying, To: model.StagePaused, Event: EvValidationRejected},
	{From: model.StageAuthorized, To: model.StageRunning, Event: EvDestinationFound},

	// Connectivity
	{From: model.StageDormant, To: model.StageOffline, Event: EvConnectivityLost},
	{From: model.StageStarting, To: model.StageOffline, Event: EvConnectivityLost},
	{From: model.StageVerifying, To: model.StageOffline, Event: EvConnectivityLost},
	{From: model.StageAuthorized, To: model.StageOffline, Event: EvConnectivityLost},
	{From: model.StageOffline, To: model.StagePaused, Event: EvConnectivityRestored},

	// Boot timeout
	{From: model.StageDormant, To: model.StagePaused, Event: EvTimeout},
	{From: model.StageStarting, To: model.StagePaused, Event: EvTimeout},
	{From: model.StageVerifying, To: model.StagePaused, Event: EvTimeout},
	{From: model.StageAuthorized, To: model.StagePaused, Event: EvTimeout},
	{From: model.StageOffline, To: model.StagePaused, Event: EvTimeout},
}

// TransitionFor returns the allowed transition for a given stage+event.
func TransitionFor(from model.StageKind, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// Next is the pure transition function. It reports false when the event does
// not change the stage; callers must then perform no side effect.
func Next(current model.Stage, ev Event) (model.Stage, bool) {
	tr, ok := TransitionFor(current.Kind, ev.Kind)
	if !ok {
		return current, false
	}
	if tr.To == model.StageRunning {
		if ev.Destination == "" {
			return current, false
		}
		return model.Running(ev.Destination), true
	}
	return model.Stage{Kind: tr.To}, true
}
