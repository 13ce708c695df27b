package events

import "time"

// EventType identifies which engine state transition an event reports.
type EventType int

const (
	SnapshotTaken EventType = iota
	CandidatesNarrowed
	FreezeRegistered
	FreezeWriteFailed
	FreezeLoopStarted
	FreezeLoopStopped
	ProcessAttached
	ProcessDetached
	ConfigSaved
	ConfigLoaded
)

// Severity classifies how a consumer should present an event.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// Event is a single engine state transition, timestamped at record time.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Details   string    `json:"details"` // e.g. "scan narrowed to 3 candidates"
}

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case SnapshotTaken:
		return "SnapshotTaken"
	case CandidatesNarrowed:
		return "CandidatesNarrowed"
	case FreezeRegistered:
		return "FreezeRegistered"
	case FreezeWriteFailed:
		return "FreezeWriteFailed"
	case FreezeLoopStarted:
		return "FreezeLoopStarted"
	case FreezeLoopStopped:
		return "FreezeLoopStopped"
	case ProcessAttached:
		return "ProcessAttached"
	case ProcessDetached:
		return "ProcessDetached"
	case ConfigSaved:
		return "ConfigSaved"
	case ConfigLoaded:
		return "ConfigLoaded"
	default:
		return "Unknown"
	}
}

// String returns the string representation of the Severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERR"
	default:
		return "?"
	}
}
