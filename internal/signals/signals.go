// Package signals turns enrichment facts into ordered, evidence-bearing
// risk signals.
package signals

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", s)
}

const codePrefix = "kad_arbitr_"

const (
	CodeSourceBlocked       = codePrefix + "source_blocked"
	CodeSourceError         = codePrefix + "source_error"
	CodeNoCases             = codePrefix + "no_cases"
	CodeBankruptcyCases     = codePrefix + "bankruptcy_cases"
	CodeBankruptcyProcedure = codePrefix + "bankruptcy_procedure"
	CodeLossesLast24m       = codePrefix + "losses_last_24m"
	CodeManyLosesDefendant  = codePrefix + "many_loses_as_defendant"
	CodeOutcomeUnknownMany  = codePrefix + "outcome_unknown_many"
	CodeManyCasesLast12m    = codePrefix + "many_cases_last_12m"
	CodeMostlyDefendant     = codePrefix + "mostly_defendant"
	CodeLargeClaimAmounts   = codePrefix + "large_claim_amounts"
	codeClaimsPrefix        = codePrefix + "claims_"
)

// ClaimCode is the signal code for a tracked claim category.
func ClaimCode(category string) string {
	return codeClaimsPrefix + category
}

// Signal is what the downstream scoring consumes. Details carries counts,
// cutoffs and example cases.
type Signal struct {
	Code          string                 `json:"code"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Severity      Severity               `json:"severity"`
	SeverityLabel string                 `json:"severity_label"`
	Details       map[string]interface{} `json:"details"`
}

func newSignal(code, title, description string, severity Severity, details map[string]interface{}) Signal {
	if details == nil {
		details = map[string]interface{}{}
	}
	return Signal{
		Code:          code,
		Title:         title,
		Description:   description,
		Severity:      severity,
		SeverityLabel: severity.String(),
		Details:       details,
	}
}

// Codes lists signal codes in order.
func Codes(list []Signal) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Code)
	}
	return out
}
