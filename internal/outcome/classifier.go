package outcome

import (
	"regexp"

	"kadrisk/internal/textutil"
)

const (
	ZoneResolution = "resolution"
	ZoneFull       = "full"

	resolutionZoneRunes = 25000
	evidenceRadius      = 240
)

const (
	ReasonEmptyText     = "empty_text"
	ReasonTextTooShort  = "text_too_short"
	ReasonNoRuleMatched = "no_rule_matched"
	ReasonNoAct         = "no_act"
	ReasonNoDocument    = "no_document"
)

var resolutionMarkerRe = regexp.MustCompile(`(?:^|[^\p{L}])(?:решил|определил|постановил)\s*:`)

type Result struct {
	Outcome       Outcome    `json:"outcome"`
	Confidence    Confidence `json:"confidence"`
	MatchedPhrase string     `json:"matched_phrase,omitempty"`
	Evidence      string     `json:"evidence,omitempty"`
	RuleID        string     `json:"rule_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Zone          string     `json:"zone,omitempty"`
}

func UnknownResult(reason string) Result {
	return Result{Outcome: Unknown, Confidence: Low, Reason: reason}
}

// ResolutionZone returns the operative part of a normalized act text: the
// text after the earliest "решил:"/"определил:"/"постановил:", at most
// 25000 runes. ok is false when no marker is present.
func ResolutionZone(norm string) (string, bool) {
	loc := resolutionMarkerRe.FindStringIndex(norm)
	if loc == nil {
		return "", false
	}
	return textutil.RuneWindow(norm, loc[1], resolutionZoneRunes), true
}

// Classify runs the rules over text, resolution zone first. Any non-empty
// text is classified; callers that need a minimum length use ResolveText.
func Classify(text string) Result {
	norm := textutil.Normalize(text)
	if norm == "" {
		return UnknownResult(ReasonEmptyText)
	}

	if zone, ok := ResolutionZone(norm); ok {
		if r, matched := matchRules(zone); matched {
			r.Zone = ZoneResolution
			return r
		}
	}

	if r, matched := matchRules(norm); matched {
		r.Zone = ZoneFull
		return r
	}
	return UnknownResult(ReasonNoRuleMatched)
}

func matchRules(text string) (Result, bool) {
	for _, rule := range Rules {
		if r, ok := matchRule(rule, text); ok {
			return r, true
		}
	}
	return Result{}, false
}

func matchRule(rule Rule, text string) (Result, bool) {
	var loc []int
	for _, p := range rule.Patterns {
		if loc = firstAccepted(rule, p, text); loc != nil {
			break
		}
	}
	if loc == nil {
		return Result{}, false
	}

	for _, n := range rule.Negatives {
		if n.MatchString(text) {
			return Result{}, false
		}
	}

	start, end := loc[2], loc[3]
	return Result{
		Outcome:       rule.Outcome,
		Confidence:    rule.Confidence,
		MatchedPhrase: text[start:end],
		Evidence:      textutil.Snippet(text, start, end, evidenceRadius, 0),
		RuleID:        rule.ID,
	}, true
}

func firstAccepted(rule Rule, p *regexp.Regexp, text string) []int {
	if len(rule.PhraseVetoes) == 0 {
		return p.FindStringSubmatchIndex(text)
	}
next:
	for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
		phrase := text[loc[2]:loc[3]]
		for _, v := range rule.PhraseVetoes {
			if v.MatchString(phrase) {
				continue next
			}
		}
		return loc
	}
	return nil
}
