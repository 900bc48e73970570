package signals

import (
	"context"
	"fmt"
	"time"

	celgo "github.com/google/cel-go/cel"

	"kadrisk/internal/claims"
	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/enrichment"
	"kadrisk/internal/logger"
	"kadrisk/internal/outcome"
	"kadrisk/pkg/cel"
	"kadrisk/pkg/metrics"
)

type compiledRule struct {
	config.CustomRule
	severity Severity
	program  celgo.Program
}

// Deriver runs the built-in rules followed by configured CEL rules.
type Deriver struct {
	opts      Options
	evaluator *cel.Evaluator
	rules     []compiledRule
	log       logger.Logger
	now       func() time.Time
}

// NewDeriver compiles every custom rule up front; a rule that fails to
// compile is a configuration error.
func NewDeriver(cfg config.SignalsConfig, log logger.Logger) (*Deriver, error) {
	if log == nil {
		log = logger.NopLogger()
	}
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	d := &Deriver{
		opts:      Options{WindowMonths: cfg.WindowMonths, LargeAmount: cfg.LargeAmount},
		evaluator: evaluator,
		log:       log.Named("signals"),
		now:       time.Now,
	}

	seen := make(map[string]bool, len(cfg.CustomRules))
	for _, r := range cfg.CustomRules {
		if r.Code == "" {
			return nil, fmt.Errorf("custom rule without code")
		}
		if seen[r.Code] {
			return nil, fmt.Errorf("duplicate custom rule code %q", r.Code)
		}
		seen[r.Code] = true

		severity := SeverityMedium
		if r.Severity != "" {
			if severity, err = ParseSeverity(r.Severity); err != nil {
				return nil, fmt.Errorf("custom rule %s: %w", r.Code, err)
			}
		}
		program, err := evaluator.CompileExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("custom rule %s: %w", r.Code, err)
		}
		d.rules = append(d.rules, compiledRule{CustomRule: r, severity: severity, program: program})
	}
	return d, nil
}

func (d *Deriver) Derive(ctx context.Context, facts enrichment.Facts) []Signal {
	now := d.now()
	out := Derive(facts, d.opts, now)

	if facts.Status == constants.StatusOK && len(facts.Cases) > 0 && len(d.rules) > 0 {
		stats := Stats(facts, d.opts, now)
		for _, r := range d.rules {
			hit, err := d.evaluator.EvaluateRule(ctx, r.program, facts.Status, stats)
			if err != nil {
				d.log.WarnwCtx(ctx, "custom rule evaluation failed", "code", r.Code, "error", err)
				continue
			}
			if !hit {
				continue
			}
			out = append(out, newSignal(r.Code, r.Title, r.Description, r.severity, map[string]interface{}{
				"expression": r.Expression,
				"stats":      stats,
			}))
		}
	}

	for _, s := range out {
		metrics.IncSignal(s.Code)
	}
	return out
}

// Stats aggregates facts into the map custom rule expressions see as
// `stats`. Counts are int64 so CEL treats them as int.
//
// Each key uses the same case set as its built-in counterpart: the window
// for negative_window, unknown_ratio, max_amount and categories; all cases
// for defendant_cases, defendant_ratio, bankruptcy_cases and cases_last_12m.
func Stats(facts enrichment.Facts, opts Options, now time.Time) map[string]interface{} {
	opts = opts.withDefaults()
	w := newWindow(facts.Cases, opts.WindowMonths, now)
	recentCutoff := now.AddDate(0, -recentMonths, 0)

	var (
		negative, unknown, defendant, bankruptcy, recent int64
		maxAmount                                        float64
	)
	categories := make(map[string]interface{})
	for _, c := range w.cases {
		if c.Impact == enrichment.Negative {
			negative++
		}
		if c.Outcome.Outcome == outcome.Unknown {
			unknown++
		}
		if m := claims.MaxAmount(c.Amounts); m > maxAmount {
			maxAmount = m
		}
		for _, cat := range c.ClaimCategories {
			n, _ := categories[string(cat)].(int64)
			categories[string(cat)] = n + 1
		}
	}
	for _, c := range facts.Cases {
		if c.TargetRoleGroup == enrichment.DefendantLike {
			defendant++
		}
		if c.IsBankruptcyCase() {
			bankruptcy++
		}
		if d := caseDate(c); d != nil && !d.Before(recentCutoff) {
			recent++
		}
	}

	total := int64(len(facts.Cases))
	inWindow := int64(len(w.cases))
	ratio := func(n, of int64) float64 {
		if of == 0 {
			return 0
		}
		return float64(n) / float64(of)
	}

	return map[string]interface{}{
		"cases_total":      total,
		"cases_window":     inWindow,
		"negative_window":  negative,
		"defendant_cases":  defendant,
		"defendant_ratio":  ratio(defendant, total),
		"unknown_ratio":    ratio(unknown, inWindow),
		"bankruptcy_cases": bankruptcy,
		"max_amount":       maxAmount,
		"cases_last_12m":   recent,
		"cases_failed":     int64(facts.Stats.CasesFailed),
		"categories":       categories,
	}
}
