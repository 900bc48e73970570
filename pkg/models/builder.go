package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CheckReportBuilder struct {
	report *CheckReport
	err    error
}

func NewCheckReportBuilder() *CheckReportBuilder {
	return &CheckReportBuilder{
		report: &CheckReport{
			Facts:       json.RawMessage("null"),
			Signals:     json.RawMessage("[]"),
			SignalCodes: []string{},
		},
	}
}

func (b *CheckReportBuilder) WithID(id string) *CheckReportBuilder {
	b.report.ID = id
	return b
}

// ForRequest copies the participant and correlation fields of req.
func (b *CheckReportBuilder) ForRequest(req CheckRequest) *CheckReportBuilder {
	b.report.RequestID = req.ID
	b.report.Participant = req.Participant
	b.report.ParticipantType = req.ParticipantType
	if req.Metadata.TraceID != "" {
		b.report.Metadata.TraceID = req.Metadata.TraceID
	}
	return b
}

func (b *CheckReportBuilder) WithStatus(status string) *CheckReportBuilder {
	b.report.Status = status
	return b
}

func (b *CheckReportBuilder) WithFacts(facts interface{}) *CheckReportBuilder {
	b.report.Facts = b.marshal("facts", facts)
	return b
}

func (b *CheckReportBuilder) WithSignals(signals interface{}, codes []string) *CheckReportBuilder {
	b.report.Signals = b.marshal("signals", signals)
	if codes != nil {
		b.report.SignalCodes = codes
	}
	return b
}

func (b *CheckReportBuilder) WithSource(source string) *CheckReportBuilder {
	b.report.Metadata.Source = source
	return b
}

func (b *CheckReportBuilder) WithTraceID(traceID string) *CheckReportBuilder {
	b.report.Metadata.TraceID = traceID
	return b
}

func (b *CheckReportBuilder) WithGeneratedAt(t time.Time) *CheckReportBuilder {
	b.report.GeneratedAt = t
	return b
}

func (b *CheckReportBuilder) marshal(field string, v interface{}) json.RawMessage {
	body, err := json.Marshal(v)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to marshal %s: %w", field, err)
	}
	return body
}

// Build fills a missing id and timestamp and reports the first marshal
// error, if any.
func (b *CheckReportBuilder) Build() (*CheckReport, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.report.ID == "" {
		b.report.ID = uuid.NewString()
	}
	if b.report.GeneratedAt.IsZero() {
		b.report.GeneratedAt = time.Now().UTC()
	}
	return b.report, nil
}
