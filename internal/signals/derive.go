package signals

import (
	"fmt"
	"sort"
	"time"

	"kadrisk/internal/claims"
	"kadrisk/internal/constants"
	"kadrisk/internal/enrichment"
	"kadrisk/internal/outcome"
)

const (
	DefaultWindowMonths = 24
	DefaultLargeAmount  = 1_000_000

	manyLossesThreshold     = 3
	unknownMinCases         = 5
	unknownRatioThreshold   = 0.6
	recentMonths            = 12
	manyCasesThreshold      = 10
	manyCasesHighThreshold  = 25
	mostlyDefendantMinCases = 5
	mostlyDefendantRatio    = 0.7
	maxExamples             = 5
	maxAmountExamples       = 3
)

type Options struct {
	WindowMonths int
	LargeAmount  float64
}

func (o Options) withDefaults() Options {
	if o.WindowMonths <= 0 {
		o.WindowMonths = DefaultWindowMonths
	}
	if o.LargeAmount <= 0 {
		o.LargeAmount = DefaultLargeAmount
	}
	return o
}

var claimTitles = map[claims.Category]struct {
	title    string
	severity Severity
}{
	claims.DDUPenalty:             {"Споры по долевому участию (неустойки ДДУ)", SeverityMedium},
	claims.ConstructionQuality:    {"Споры о качестве строительства", SeverityMedium},
	claims.ContractorDispute:      {"Споры по договорам подряда", SeverityLow},
	claims.UtilitiesAndManagement: {"Споры по коммунальным услугам и управлению", SeverityLow},
	claims.LandAndProperty:        {"Споры о земле и недвижимости", SeverityLow},
}

// Derive applies the built-in rules to facts. Source status and an empty
// case list each yield a single signal and nothing else.
func Derive(facts enrichment.Facts, opts Options, now time.Time) []Signal {
	opts = opts.withDefaults()

	switch {
	case facts.Status == constants.StatusBlocked:
		return []Signal{newSignal(CodeSourceBlocked,
			"Источник kad.arbitr.ru заблокировал запросы",
			"Проверка арбитражных дел не выполнена: сайт отклонил запросы.",
			SeverityMedium, map[string]interface{}{"error": facts.Error})}
	case facts.Status != constants.StatusOK:
		return []Signal{newSignal(CodeSourceError,
			"Ошибка получения данных kad.arbitr.ru",
			"Проверка арбитражных дел не выполнена из-за ошибки источника.",
			SeverityLow, map[string]interface{}{"error": facts.Error})}
	case len(facts.Cases) == 0:
		return []Signal{newSignal(CodeNoCases,
			"Арбитражные дела не найдены",
			"По участнику не найдено арбитражных дел.",
			SeverityInfo, map[string]interface{}{"cases_found": facts.Stats.CasesFound})}
	}

	w := newWindow(facts.Cases, opts.WindowMonths, now)
	var out []Signal

	if s, ok := bankruptcyCases(facts.Cases); ok {
		out = append(out, s)
	}
	if s, ok := bankruptcyProcedure(w); ok {
		out = append(out, s)
	}
	out = append(out, losses(w)...)
	if s, ok := unknownMany(w); ok {
		out = append(out, s)
	}
	if s, ok := manyRecentCases(facts.Cases, now); ok {
		out = append(out, s)
	}
	if s, ok := mostlyDefendant(facts.Cases); ok {
		out = append(out, s)
	}
	out = append(out, claimCategories(w)...)
	if s, ok := largeAmounts(w, opts.LargeAmount); ok {
		out = append(out, s)
	}
	return out
}

// window holds the cases dated within the last N months, or every case
// when none is.
type window struct {
	cases    []enrichment.EnrichedCase
	cutoff   time.Time
	months   int
	fallback bool
}

func newWindow(cases []enrichment.EnrichedCase, months int, now time.Time) window {
	cutoff := now.AddDate(0, -months, 0)
	var in []enrichment.EnrichedCase
	for _, c := range cases {
		if d := caseDate(c); d != nil && !d.Before(cutoff) {
			in = append(in, c)
		}
	}
	if len(in) == 0 {
		return window{cases: cases, cutoff: cutoff, months: months, fallback: true}
	}
	return window{cases: in, cutoff: cutoff, months: months}
}

func (w window) details(extra map[string]interface{}) map[string]interface{} {
	d := map[string]interface{}{
		"window_months":   w.months,
		"cutoff":          w.cutoff.Format("2006-01-02"),
		"window_fallback": w.fallback,
		"cases_in_window": len(w.cases),
	}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

func caseDate(c enrichment.EnrichedCase) *time.Time {
	if c.StartDate != nil {
		return c.StartDate
	}
	return c.Outcome.ActDate
}

func caseRef(c enrichment.EnrichedCase) map[string]interface{} {
	ref := map[string]interface{}{
		"case_id":     c.CaseID,
		"case_number": c.CaseNumber,
		"outcome":     string(c.Outcome.Outcome),
		"role_group":  string(c.TargetRoleGroup),
	}
	if c.CardURL != "" {
		ref["card_url"] = c.CardURL
	}
	if d := caseDate(c); d != nil {
		ref["date"] = d.Format("2006-01-02")
	}
	return ref
}

func refs(cases []enrichment.EnrichedCase, limit int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, limit)
	for _, c := range cases {
		if len(out) == limit {
			break
		}
		out = append(out, caseRef(c))
	}
	return out
}

func filter(cases []enrichment.EnrichedCase, keep func(enrichment.EnrichedCase) bool) []enrichment.EnrichedCase {
	var out []enrichment.EnrichedCase
	for _, c := range cases {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func bankruptcyCases(all []enrichment.EnrichedCase) (Signal, bool) {
	hits := filter(all, enrichment.EnrichedCase.IsBankruptcyCase)
	if len(hits) == 0 {
		return Signal{}, false
	}
	return newSignal(CodeBankruptcyCases,
		"Участие в делах о банкротстве",
		fmt.Sprintf("Найдено дел о банкротстве: %d.", len(hits)),
		SeverityHigh, map[string]interface{}{
			"count":    len(hits),
			"examples": refs(hits, maxExamples),
		}), true
}

func bankruptcyProcedure(w window) (Signal, bool) {
	hits := filter(w.cases, func(c enrichment.EnrichedCase) bool {
		return c.Outcome.Outcome.IsBankruptcy()
	})
	if len(hits) == 0 {
		return Signal{}, false
	}
	return newSignal(CodeBankruptcyProcedure,
		"Введена процедура банкротства",
		"В судебных актах найдено решение о банкротстве или введении процедуры.",
		SeverityHigh, w.details(map[string]interface{}{
			"count":    len(hits),
			"examples": refs(hits, maxExamples),
		})), true
}

func losses(w window) []Signal {
	lost := filter(w.cases, func(c enrichment.EnrichedCase) bool {
		return c.Impact == enrichment.Negative
	})
	if len(lost) == 0 {
		return nil
	}

	out := []Signal{newSignal(CodeLossesLast24m,
		"Проигранные арбитражные дела",
		fmt.Sprintf("Дел с неблагоприятным исходом за период: %d.", len(lost)),
		SeverityMedium, w.details(map[string]interface{}{
			"count":    len(lost),
			"examples": refs(lost, maxExamples),
		}))}

	asDefendant := filter(lost, func(c enrichment.EnrichedCase) bool {
		return c.TargetRoleGroup == enrichment.DefendantLike
	})
	if len(asDefendant) >= manyLossesThreshold {
		out = append(out, newSignal(CodeManyLosesDefendant,
			"Систематические проигрыши в роли ответчика",
			fmt.Sprintf("Проиграно дел в роли ответчика: %d.", len(asDefendant)),
			SeverityHigh, w.details(map[string]interface{}{
				"count":     len(asDefendant),
				"threshold": manyLossesThreshold,
				"examples":  refs(asDefendant, maxExamples),
			})))
	}
	return out
}

func unknownMany(w window) (Signal, bool) {
	total := len(w.cases)
	if total < unknownMinCases {
		return Signal{}, false
	}
	unknown := filter(w.cases, func(c enrichment.EnrichedCase) bool {
		return c.Outcome.Outcome == outcome.Unknown
	})
	ratio := float64(len(unknown)) / float64(total)
	if ratio < unknownRatioThreshold {
		return Signal{}, false
	}
	return newSignal(CodeOutcomeUnknownMany,
		"Исход большинства дел не определен",
		"Для большей части дел не удалось определить исход по тексту актов.",
		SeverityLow, w.details(map[string]interface{}{
			"unknown": len(unknown),
			"total":   total,
			"ratio":   ratio,
		})), true
}

func manyRecentCases(all []enrichment.EnrichedCase, now time.Time) (Signal, bool) {
	cutoff := now.AddDate(0, -recentMonths, 0)
	recent := filter(all, func(c enrichment.EnrichedCase) bool {
		d := caseDate(c)
		return d != nil && !d.Before(cutoff)
	})
	if len(recent) < manyCasesThreshold {
		return Signal{}, false
	}
	severity := SeverityMedium
	if len(recent) >= manyCasesHighThreshold {
		severity = SeverityHigh
	}
	return newSignal(CodeManyCasesLast12m,
		"Много арбитражных дел за последний год",
		fmt.Sprintf("Дел за последние %d месяцев: %d.", recentMonths, len(recent)),
		severity, map[string]interface{}{
			"count":  len(recent),
			"cutoff": cutoff.Format("2006-01-02"),
		}), true
}

func mostlyDefendant(all []enrichment.EnrichedCase) (Signal, bool) {
	total := len(all)
	if total < mostlyDefendantMinCases {
		return Signal{}, false
	}
	defendant := filter(all, func(c enrichment.EnrichedCase) bool {
		return c.TargetRoleGroup == enrichment.DefendantLike
	})
	ratio := float64(len(defendant)) / float64(total)
	if ratio < mostlyDefendantRatio {
		return Signal{}, false
	}
	return newSignal(CodeMostlyDefendant,
		"Преимущественно в роли ответчика",
		fmt.Sprintf("Участник выступает ответчиком в %.0f%% дел.", ratio*100),
		SeverityMedium, map[string]interface{}{
			"defendant": len(defendant),
			"total":     total,
			"ratio":     ratio,
		}), true
}

func claimCategories(w window) []Signal {
	var out []Signal
	for _, cat := range claims.TrackedForSignals {
		hits := filter(w.cases, func(c enrichment.EnrichedCase) bool {
			for _, x := range c.ClaimCategories {
				if x == cat {
					return true
				}
			}
			return false
		})
		if len(hits) == 0 {
			continue
		}
		meta := claimTitles[cat]
		out = append(out, newSignal(ClaimCode(string(cat)),
			meta.title,
			fmt.Sprintf("Дел по категории: %d.", len(hits)),
			meta.severity, w.details(map[string]interface{}{
				"category": string(cat),
				"count":    len(hits),
				"examples": refs(hits, maxExamples),
			})))
	}
	return out
}

func largeAmounts(w window, threshold float64) (Signal, bool) {
	type example struct {
		c      enrichment.EnrichedCase
		amount claims.Amount
	}
	var found []example
	for _, c := range w.cases {
		for _, a := range c.Amounts {
			if a.Value >= threshold {
				found = append(found, example{c: c, amount: a})
			}
		}
	}
	if len(found) == 0 {
		return Signal{}, false
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].amount.Value > found[j].amount.Value })

	examples := make([]map[string]interface{}, 0, maxAmountExamples)
	for _, e := range found {
		if len(examples) == maxAmountExamples {
			break
		}
		ref := caseRef(e.c)
		ref["amount"] = e.amount.Value
		ref["evidence"] = e.amount.Evidence
		examples = append(examples, ref)
	}

	return newSignal(CodeLargeClaimAmounts,
		"Крупные суммы требований",
		fmt.Sprintf("Максимальная сумма в судебных актах: %.2f руб.", found[0].amount.Value),
		SeverityMedium, w.details(map[string]interface{}{
			"threshold":  threshold,
			"max_amount": found[0].amount.Value,
			"count":      len(found),
			"examples":   examples,
		})), true
}
