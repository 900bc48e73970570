package models

import (
	"encoding/json"
	"time"
)

// Message is anything that travels through the broker.
type Message interface {
	MessageKey() string
}

// CheckRequest asks for a court-record check of one participant.
type CheckRequest struct {
	ID              string    `json:"id"`
	Participant     string    `json:"participant"`
	ParticipantType string    `json:"participant_type,omitempty"`
	MaxPages        int       `json:"max_pages,omitempty"`
	MaxCases        int       `json:"max_cases,omitempty"`
	RequestedAt     time.Time `json:"requested_at,omitempty"`
	Metadata        Metadata  `json:"metadata"`
}

func (r CheckRequest) MessageKey() string {
	return r.ID
}

// CheckReport is the published result of a check: the raw facts plus the
// derived signals, both as produced by their packages.
type CheckReport struct {
	ID              string          `json:"id"`
	RequestID       string          `json:"request_id,omitempty"`
	Participant     string          `json:"participant"`
	ParticipantType string          `json:"participant_type,omitempty"`
	Status          string          `json:"status"`
	Facts           json.RawMessage `json:"facts"`
	Signals         json.RawMessage `json:"signals"`
	SignalCodes     []string        `json:"signal_codes"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Metadata        Metadata        `json:"metadata"`
}

func (r CheckReport) MessageKey() string {
	return r.Participant
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	Source  string `json:"source,omitempty"`
}

// DeadLetter wraps a message that could not be processed.
type DeadLetter struct {
	Key         string          `json:"key"`
	Body        json.RawMessage `json:"body"`
	Reason      string          `json:"reason"`
	SourceTopic string          `json:"source_topic"`
	FailedAt    time.Time       `json:"failed_at"`
}

func (d DeadLetter) MessageKey() string {
	return d.Key
}
