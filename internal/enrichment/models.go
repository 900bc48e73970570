package enrichment

import (
	"strings"
	"time"

	"kadrisk/internal/claims"
	"kadrisk/internal/kad"
	"kadrisk/internal/outcome"
)

type RoleGroup string

const (
	DefendantLike RoleGroup = "defendant_like"
	PlaintiffLike RoleGroup = "plaintiff_like"
	OtherGroup    RoleGroup = "other"
)

type Impact string

const (
	Positive      Impact = "positive"
	Negative      Impact = "negative"
	ImpactUnknown Impact = "unknown"
)

// Where claim categories were read from.
const (
	ClaimSourceAct  = "act"
	ClaimSourceCard = "card"
)

type Request struct {
	Participant     string `json:"participant"`
	ParticipantType string `json:"participant_type,omitempty"`
	MaxPages        int    `json:"max_pages,omitempty"`
	MaxCases        int    `json:"max_cases,omitempty"`
}

// CaseOutcome is the outcome attributed to a whole case through its
// latest dated act.
type CaseOutcome struct {
	ActID         string             `json:"act_id,omitempty"`
	ActDate       *time.Time         `json:"act_date,omitempty"`
	Outcome       outcome.Outcome    `json:"outcome"`
	Confidence    outcome.Confidence `json:"confidence"`
	MatchedPhrase string             `json:"matched_phrase,omitempty"`
	Evidence      string             `json:"evidence,omitempty"`
	RuleID        string             `json:"rule_id,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

type EnrichedCase struct {
	CaseID     string     `json:"case_id"`
	CaseNumber string     `json:"case_number,omitempty"`
	Court      string     `json:"court,omitempty"`
	CaseType   string     `json:"case_type,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	CardURL    string     `json:"card_url,omitempty"`

	TargetName      string    `json:"target_name,omitempty"`
	TargetRole      kad.Role  `json:"target_role,omitempty"`
	TargetRoleGroup RoleGroup `json:"target_role_group"`

	Outcome          CaseOutcome        `json:"outcome"`
	FinalAct         *kad.JudicialAct   `json:"final_act,omitempty"`
	Impact           Impact             `json:"impact"`
	ImpactConfidence outcome.Confidence `json:"impact_confidence"`

	ClaimCategories []claims.Category  `json:"claim_categories"`
	ClaimConfidence outcome.Confidence `json:"claim_confidence"`
	ClaimKeywords   []string           `json:"claim_keywords,omitempty"`
	ClaimSource     string             `json:"claim_source,omitempty"`
	Amounts         []claims.Amount    `json:"amounts,omitempty"`
}

// IsBankruptcyCase reports a bankruptcy case type ("Б") on the search row.
func (c EnrichedCase) IsBankruptcyCase() bool {
	t := strings.ToLower(strings.TrimSpace(c.CaseType))
	return t == "б" || t == "b" || strings.Contains(t, "банкрот")
}

type ErrorSample struct {
	CaseID  string `json:"case_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Stats struct {
	CasesFound      int           `json:"cases_found"`
	CasesConsidered int           `json:"cases_considered"`
	CasesDropped    int           `json:"cases_dropped"`
	CasesEnriched   int           `json:"cases_enriched"`
	CasesFailed     int           `json:"cases_failed"`
	PagesFetched    int           `json:"pages_fetched"`
	Errors          []ErrorSample `json:"errors"`
	DurationMs      int64         `json:"duration_ms"`
}

// Facts is the result of one enrichment run. Cases is empty unless
// Status is ok.
type Facts struct {
	Status          string         `json:"status"`
	Participant     string         `json:"participant"`
	ParticipantType string         `json:"participant_type,omitempty"`
	Cases           []EnrichedCase `json:"cases"`
	Stats           Stats          `json:"stats"`
	Error           string         `json:"error,omitempty"`
}
