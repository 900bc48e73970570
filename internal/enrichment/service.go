// Package enrichment runs a best-effort check of one participant: search,
// then per case the card, acts, act text, outcome, claims and impact.
package enrichment

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"kadrisk/internal/acts"
	"kadrisk/internal/claims"
	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/kad"
	"kadrisk/internal/logger"
	"kadrisk/internal/outcome"
	"kadrisk/internal/parser"
	"kadrisk/internal/participant"
	apperrors "kadrisk/pkg/errors"
	"kadrisk/pkg/logging"
	"kadrisk/pkg/metrics"
	"kadrisk/pkg/tracing"
)

// SiteClient is the subset of the court site client the run needs.
type SiteClient interface {
	kad.Searcher
	GetCaseCardHTML(ctx context.Context, caseID string) (string, error)
	GetCaseActsHTML(ctx context.Context, caseID string) (string, error)
	CardURL(caseID string) string
}

// TextSource returns the plain text of an act document.
type TextSource interface {
	Text(ctx context.Context, url string) (string, error)
}

type Service interface {
	Enrich(ctx context.Context, req Request) Facts
}

type Config struct {
	MaxPages     int
	MaxCases     int
	PageSize     int
	Workers      int
	RunTimeout   time.Duration
	ErrorSamples int
	MaxAmounts   int
	MinTextChars int
}

func ConfigFrom(e config.EnrichmentConfig, p config.PDFConfig) Config {
	return Config{
		MaxPages:     e.MaxPages,
		MaxCases:     e.MaxCases,
		PageSize:     e.PageSize,
		Workers:      e.Workers,
		RunTimeout:   e.RunTimeout,
		ErrorSamples: e.ErrorSamples,
		MaxAmounts:   e.MaxAmounts,
		MinTextChars: p.MinTextChars,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	if c.MaxCases <= 0 {
		c.MaxCases = 20
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ErrorSamples <= 0 {
		c.ErrorSamples = 3
	}
	if c.MaxAmounts <= 0 {
		c.MaxAmounts = claims.DefaultMaxAmounts
	}
	if c.MinTextChars <= 0 {
		c.MinTextChars = constants.MinUsableTextChars
	}
	return c
}

type serviceImpl struct {
	site   SiteClient
	text   TextSource
	cfg    Config
	logger logger.Logger
	now    func() time.Time
}

func NewService(site SiteClient, text TextSource, cfg Config, log logger.Logger) Service {
	if log == nil {
		log = logger.NopLogger()
	}
	return &serviceImpl{
		site:   site,
		text:   text,
		cfg:    cfg.withDefaults(),
		logger: log,
		now:    time.Now,
	}
}

// caseResult is either an enriched case or the error that stopped it.
type caseResult struct {
	caseID string
	c      *EnrichedCase
	err    error
}

func (s *serviceImpl) Enrich(ctx context.Context, req Request) Facts {
	ctx, span := tracing.StartSpan(ctx, "enrichment.run",
		attribute.String("participant", req.Participant),
		attribute.String("participant_type", req.ParticipantType),
	)

	start := s.now()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	facts, err := s.run(ctx, req)
	facts.Stats.DurationMs = s.now().Sub(start).Milliseconds()

	metrics.ObserveCheck(facts.Status, s.now().Sub(start))
	span.SetAttributes(
		attribute.String("status", facts.Status),
		attribute.Int("cases_enriched", facts.Stats.CasesEnriched),
		attribute.Int("cases_failed", facts.Stats.CasesFailed),
	)
	tracing.EndSpan(span, err)

	return facts
}

func (s *serviceImpl) run(ctx context.Context, req Request) (Facts, error) {
	facts := Facts{
		Status:          constants.StatusOK,
		Participant:     strings.TrimSpace(req.Participant),
		ParticipantType: req.ParticipantType,
		Cases:           []EnrichedCase{},
		Stats:           Stats{Errors: []ErrorSample{}},
	}
	if facts.Participant == "" {
		err := apperrors.ErrValidation.WithMessage("participant is required")
		return failed(facts, constants.StatusError, err), err
	}

	maxPages := s.cfg.MaxPages
	if req.MaxPages > 0 {
		maxPages = req.MaxPages
	}
	maxCases := s.cfg.MaxCases
	if req.MaxCases > 0 {
		maxCases = req.MaxCases
	}

	s.logger.InfowCtx(ctx, "Starting enrichment run",
		"participant", facts.Participant,
		"participant_type", req.ParticipantType,
		"max_pages", maxPages,
		"max_cases", maxCases,
		"workers", s.cfg.Workers,
	)

	found, err := kad.SearchAll(ctx, s.site, kad.Query{
		Participant:     facts.Participant,
		ParticipantType: req.ParticipantType,
		PageSize:        s.cfg.PageSize,
	}, maxPages)
	if err != nil {
		status := constants.StatusError
		if apperrors.IsBlocked(err) {
			status = constants.StatusBlocked
		}
		s.logger.ErrorwCtx(ctx, "Case search failed",
			"status", status,
			"error_code", apperrors.CodeOf(err),
			"error", err,
		)
		return failed(facts, status, err), err
	}

	cases := s.selectCases(found.Items, req.ParticipantType, maxCases)
	facts.Stats.CasesFound = len(found.Items)
	facts.Stats.PagesFetched = found.Fetched
	facts.Stats.CasesConsidered = len(cases)
	facts.Stats.CasesDropped = len(found.Items) - len(cases)
	if facts.Stats.CasesDropped > 0 {
		s.logger.InfowCtx(ctx, "Older cases dropped by the per-run cap",
			"cases_found", len(found.Items),
			"max_cases", maxCases,
			"dropped", facts.Stats.CasesDropped,
		)
	}

	results, err := s.enrichAll(ctx, facts.Participant, cases)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Enrichment run aborted, source blocked",
			"error_code", apperrors.CodeOf(err),
			"error", err,
		)
		return failed(facts, constants.StatusBlocked, err), err
	}

	for _, r := range results {
		if r.err != nil {
			facts.Stats.CasesFailed++
			metrics.IncCase("failed")
			if len(facts.Stats.Errors) < s.cfg.ErrorSamples {
				facts.Stats.Errors = append(facts.Stats.Errors, ErrorSample{
					CaseID:  r.caseID,
					Kind:    apperrors.CodeOf(r.err),
					Message: r.err.Error(),
				})
			}
			continue
		}
		facts.Stats.CasesEnriched++
		metrics.IncCase("enriched")
		facts.Cases = append(facts.Cases, *r.c)
	}

	s.logger.InfowCtx(ctx, "Enrichment run completed",
		"cases_found", facts.Stats.CasesFound,
		"cases_enriched", facts.Stats.CasesEnriched,
		"cases_failed", facts.Stats.CasesFailed,
	)
	return facts, nil
}

// failed turns facts into a failed run: no cases, the error recorded.
func failed(facts Facts, status string, err error) Facts {
	facts.Status = status
	facts.Cases = []EnrichedCase{}
	facts.Error = err.Error()
	return facts
}

// selectCases normalizes rows, orders them newest first (undated last) and
// keeps the first limit.
func (s *serviceImpl) selectCases(items []kad.CaseRaw, role string, limit int) []kad.CaseNormalized {
	cases := make([]kad.CaseNormalized, 0, len(items))
	for _, raw := range items {
		cases = append(cases, kad.NormalizeCase(raw, s.site.CardURL(raw.CaseID), role))
	}

	sort.SliceStable(cases, func(i, j int) bool {
		a, b := cases[i].StartDate, cases[j].StartDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if len(cases) > limit {
		cases = cases[:limit]
	}
	return cases
}

// enrichAll runs cases through a bounded pool. Results keep the input
// order. A blocked case cancels the rest and is returned as the error.
func (s *serviceImpl) enrichAll(ctx context.Context, target string, cases []kad.CaseNormalized) ([]caseResult, error) {
	matcher := participant.NewMatcher(target)
	results := make([]caseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = caseResult{caseID: c.CaseID, err: err}
				return nil
			}
			results[i] = s.enrichCase(gctx, matcher, c)
			if apperrors.IsBlocked(results[i].err) {
				return results[i].err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *serviceImpl) enrichCase(ctx context.Context, matcher participant.Matcher, c kad.CaseNormalized) (res caseResult) {
	ctx = logging.WithCaseID(ctx, c.CaseID)
	ctx, span := tracing.StartSpan(ctx, "enrichment.case", attribute.String("case_id", c.CaseID))

	defer func() {
		if r := recover(); r != nil {
			res = caseResult{caseID: c.CaseID, err: apperrors.RecoverPanic(r)}
		}
		if res.err != nil {
			s.logger.WarnwCtx(ctx, "Case enrichment failed",
				"case_number", c.CaseNumber,
				"error_code", apperrors.CodeOf(res.err),
				"error", res.err,
			)
		}
		tracing.EndSpan(span, res.err)
	}()

	enriched, err := s.buildCase(ctx, matcher, c)
	if err != nil {
		return caseResult{caseID: c.CaseID, err: err}
	}
	return caseResult{caseID: c.CaseID, c: enriched}
}

func (s *serviceImpl) buildCase(ctx context.Context, matcher participant.Matcher, c kad.CaseNormalized) (*EnrichedCase, error) {
	card, err := s.site.GetCaseCardHTML(ctx, c.CaseID)
	if err != nil {
		return nil, err
	}
	details := parser.ParseCaseCard(card)
	target, found := participant.TargetRole(matcher.Mark(details.Participants))

	actsPage, err := s.site.GetCaseActsHTML(ctx, c.CaseID)
	if err != nil {
		return nil, err
	}
	list := parser.ParseActs(actsPage, c.CaseID)

	s.logger.DebugwCtx(ctx, "Case card parsed",
		"participants", len(details.Participants),
		"target_found", found,
		"target_role", target.Role,
		"acts", len(list),
	)

	caseOutcome, text, err := s.resolveOutcome(ctx, list)
	if err != nil {
		return nil, err
	}
	metrics.IncOutcome(string(caseOutcome.Outcome), string(caseOutcome.Confidence))

	group := RoleGroupOf(target.Role, found)
	impact, impactConf := ImpactOf(caseOutcome.Outcome, caseOutcome.Confidence, group)

	enriched := &EnrichedCase{
		CaseID:           c.CaseID,
		CaseNumber:       firstNonEmpty(c.CaseNumber, details.CaseNumber),
		Court:            firstNonEmpty(c.Court, details.Court),
		CaseType:         c.CaseType,
		StartDate:        c.StartDate,
		CardURL:          c.CardURL,
		TargetRoleGroup:  group,
		Outcome:          caseOutcome,
		Impact:           impact,
		ImpactConfidence: impactConf,
	}
	if found {
		enriched.TargetName = target.Name
		enriched.TargetRole = target.Role
	}
	if final, ok := acts.SelectFinalAct(list); ok {
		enriched.FinalAct = &final
	}

	s.applyClaims(enriched, text, card)
	return enriched, nil
}

// resolveOutcome classifies the latest dated act. It also returns the act
// text when it was long enough to classify, for claim mining.
func (s *serviceImpl) resolveOutcome(ctx context.Context, list []kad.JudicialAct) (CaseOutcome, string, error) {
	act, ok := acts.SelectOutcomeAct(list)
	if !ok {
		return caseOutcomeOf("", nil, outcome.UnknownResult(outcome.ReasonNoAct)), "", nil
	}

	text, err := s.text.Text(ctx, act.PDFURL)
	if err != nil {
		if apperrors.IsNotSupported(err) {
			return caseOutcomeOf(act.ActID, act.Date, outcome.UnknownResult(outcome.ReasonNoDocument)), "", nil
		}
		return CaseOutcome{}, "", err
	}

	resolved := outcome.ResolveAct(act, text, s.cfg.MinTextChars)
	if resolved.Reason == outcome.ReasonEmptyText || resolved.Reason == outcome.ReasonTextTooShort {
		text = ""
	}
	return caseOutcomeOf(act.ActID, act.Date, resolved.Result), text, nil
}

func caseOutcomeOf(actID string, date *time.Time, r outcome.Result) CaseOutcome {
	return CaseOutcome{
		ActID:         actID,
		ActDate:       date,
		Outcome:       r.Outcome,
		Confidence:    r.Confidence,
		MatchedPhrase: r.MatchedPhrase,
		Evidence:      r.Evidence,
		RuleID:        r.RuleID,
		Reason:        r.Reason,
	}
}

// applyClaims reads categories and amounts from the act text; without
// usable text, categories come from the case card at no more than medium
// confidence.
func (s *serviceImpl) applyClaims(c *EnrichedCase, actText, card string) {
	if utf8.RuneCountInString(actText) >= s.cfg.MinTextChars {
		r := claims.Classify(actText)
		c.ClaimCategories, c.ClaimConfidence, c.ClaimKeywords = r.Categories, r.Confidence, r.Keywords
		c.ClaimSource = ClaimSourceAct
		c.Amounts = claims.ExtractAmounts(actText, s.cfg.MaxAmounts)
		return
	}

	r := claims.Classify(parser.HTMLToText(card)).Capped(outcome.Medium)
	c.ClaimCategories, c.ClaimConfidence, c.ClaimKeywords = r.Categories, r.Confidence, r.Keywords
	if !r.Has(claims.UnknownCategory) {
		c.ClaimSource = ClaimSourceCard
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
