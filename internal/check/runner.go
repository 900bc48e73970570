// Package check runs one participant check end to end: enrichment facts,
// then signals, then the published report.
package check

import (
	"context"

	"kadrisk/internal/constants"
	"kadrisk/internal/enrichment"
	"kadrisk/internal/logger"
	"kadrisk/internal/signals"
	"kadrisk/pkg/logging"
	"kadrisk/pkg/models"
	"kadrisk/pkg/tracing"
)

type SignalDeriver interface {
	Derive(ctx context.Context, facts enrichment.Facts) []signals.Signal
}

// Result is what the CLI prints and the HTTP endpoint returns.
type Result struct {
	Facts   enrichment.Facts `json:"facts"`
	Signals []signals.Signal `json:"signals"`
}

type Runner struct {
	service enrichment.Service
	deriver SignalDeriver
	log     logger.Logger
}

func NewRunner(service enrichment.Service, deriver SignalDeriver, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Runner{service: service, deriver: deriver, log: log.Named("check")}
}

func (r *Runner) Run(ctx context.Context, req models.CheckRequest) Result {
	if req.ID != "" {
		ctx = logging.WithCheckID(ctx, req.ID)
	}

	facts := r.service.Enrich(ctx, enrichment.Request{
		Participant:     req.Participant,
		ParticipantType: req.ParticipantType,
		MaxPages:        req.MaxPages,
		MaxCases:        req.MaxCases,
	})
	list := r.deriver.Derive(ctx, facts)
	if list == nil {
		list = []signals.Signal{}
	}

	r.log.InfowCtx(ctx, "Check finished",
		"participant", req.Participant,
		"status", facts.Status,
		"cases", len(facts.Cases),
		"signals", signals.Codes(list),
	)
	return Result{Facts: facts, Signals: list}
}

// Report wraps a result into the broker envelope.
func Report(req models.CheckRequest, res Result) (*models.CheckReport, error) {
	return models.NewCheckReportBuilder().
		ForRequest(req).
		WithStatus(res.Facts.Status).
		WithFacts(res.Facts).
		WithSignals(res.Signals, signals.Codes(res.Signals)).
		WithSource(constants.ServiceName).
		Build()
}

// Publisher is the subset of broker.Producer the handler needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg models.Message) error
}

// Handler returns a broker handler that runs the check and publishes the
// report to topic. Only a failed publish is an error.
func (r *Runner) Handler(pub Publisher, topic string) func(ctx context.Context, req models.CheckRequest) error {
	return func(ctx context.Context, req models.CheckRequest) error {
		res := r.Run(ctx, req)
		report, err := Report(req, res)
		if err != nil {
			return err
		}
		if report.Metadata.TraceID == "" {
			report.Metadata.TraceID = logging.GetTraceID(ctx)
		}

		ctx, span := tracing.StartSpan(ctx, "check.publish")
		err = pub.Publish(ctx, topic, report)
		tracing.EndSpan(span, err)
		if err != nil {
			return err
		}

		r.log.InfowCtx(ctx, "Report published", "topic", topic, "report_id", report.ID)
		return nil
	}
}
