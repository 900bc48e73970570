package outcome

import (
	"strings"
	"unicode/utf8"

	"kadrisk/internal/kad"
)

// ActOutcome is the classification of one act's text.
type ActOutcome struct {
	ActID string `json:"act_id"`
	Result
}

// ResolveText classifies extracted act text, treating anything shorter
// than minChars as unusable.
func ResolveText(text string, minChars int) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return UnknownResult(ReasonEmptyText)
	}
	if utf8.RuneCountInString(trimmed) < minChars {
		return UnknownResult(ReasonTextTooShort)
	}
	return Classify(trimmed)
}

func ResolveAct(act kad.JudicialAct, text string, minChars int) ActOutcome {
	return ActOutcome{ActID: act.ActID, Result: ResolveText(text, minChars)}
}
