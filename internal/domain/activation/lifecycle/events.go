// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/castlog/internal/domain/activation/model"

// EventKind is an input signal of the activation lifecycle.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvBoot
	EvDataIngested
	EvValidationPassed
	EvValidationRejected
	EvDestinationFound
	EvConnectivityLost
	EvConnectivityRestored
	EvTimeout
)

// AllEventKinds lists every concrete event kind.
var AllEventKinds = []EventKind{
	EvBoot,
	EvDataIngested,
	EvValidationPassed,
	EvValidationRejected,
	EvDestinationFound,
	EvConnectivityLost,
	EvConnectivityRestored,
	EvTimeout,
}

func (k EventKind) String() string {
	switch k {
	case EvBoot:
		return "boot"
	case EvDataIngested:
		return "data_ingested"
	case EvValidationPassed:
		return "validation_passed"
	case EvValidationRejected:
		return "validation_rejected"
	case EvDestinationFound:
		return "destination_found"
	case EvConnectivityLost:
		return "connectivity_lost"
	case EvConnectivityRestored:
		return "connectivity_restored"
	case EvTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Event carries the optional payload of a lifecycle signal.
type Event struct {
	Kind        EventKind
	Payload     model.Attribution // EvDataIngested
	Destination string            // EvDestinationFound
}

func Boot() Event                 { return Event{Kind: EvBoot} }
func ValidationPassed() Event     { return Event{Kind: EvValidationPassed} }
func ValidationRejected() Event   { return Event{Kind: EvValidationRejected} }
func ConnectivityLost() Event     { return Event{Kind: EvConnectivityLost} }
func ConnectivityRestored() Event { return Event{Kind: EvConnectivityRestored} }
func Timeout() Event              { return Event{Kind: EvTimeout} }

// DataIngested wraps an attribution payload.
func DataIngested(payload model.Attribution) Event {
	return Event{Kind: EvDataIngested, Payload: payload}
}

// DestinationFound wraps a resolved destination URL.
func DestinationFound(destination string) Event {
	return Event{Kind: EvDestinationFound, Destination: destination}
}
