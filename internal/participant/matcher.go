// Package participant decides which party of a case is the entity a check
// runs for.
package participant

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"kadrisk/internal/kad"
	"kadrisk/internal/textutil"
)

const minSubstringRunes = 6

var (
	innRe         = regexp.MustCompile(`^(?:\d{10}|\d{12})$`)
	punctuationRe = regexp.MustCompile(`[«»"'“”„‘’.,;:()\[\]]+`)
	legalFormRe   = regexp.MustCompile(`^(?:ооо|оао|зао|пао|ао|ип|общество с ограниченной ответственностью|публичное акционерное общество|акционерное общество|индивидуальный предприниматель)\s+`)
)

// IsINN reports whether s is a 10 or 12 digit taxpayer number.
func IsINN(s string) bool {
	return innRe.MatchString(strings.TrimSpace(s))
}

// NormalizeName folds a party name for comparison: lowercase, ё→е, quotes
// and punctuation removed, one leading legal form dropped.
func NormalizeName(name string) string {
	s := textutil.Normalize(name)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = textutil.CollapseSpace(s)
	s = legalFormRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type Matcher struct {
	inn  string
	name string
}

// NewMatcher builds a matcher for a free-text name or an INN.
func NewMatcher(target string) Matcher {
	target = strings.TrimSpace(target)
	if IsINN(target) {
		return Matcher{inn: target}
	}
	return Matcher{name: NormalizeName(target)}
}

func (m Matcher) Matches(p kad.Participant) bool {
	if m.inn != "" {
		return p.INN == m.inn
	}
	if m.name == "" {
		return false
	}

	other := NormalizeName(p.Name)
	if other == "" {
		return false
	}
	if other == m.name {
		return true
	}

	shorter, longer := m.name, other
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	return utf8.RuneCountInString(shorter) >= minSubstringRunes && strings.Contains(longer, shorter)
}

// Mark returns a copy of participants with IsTarget set from m.
func (m Matcher) Mark(participants []kad.Participant) []kad.Participant {
	out := make([]kad.Participant, len(participants))
	for i, p := range participants {
		p.IsTarget = m.Matches(p)
		out[i] = p
	}
	return out
}

func roleRank(r kad.Role) int {
	switch r {
	case kad.RoleDefendant:
		return 0
	case kad.RolePlaintiff:
		return 1
	case kad.RoleThirdParty:
		return 2
	default:
		return 3
	}
}

// TargetRole picks the role of the target among marked participants.
// Defendant beats plaintiff beats third party beats other; ties go to the
// party with an INN, then to the longer name. ok is false when no
// participant is marked.
func TargetRole(participants []kad.Participant) (kad.Participant, bool) {
	var best kad.Participant
	found := false
	for _, p := range participants {
		if !p.IsTarget {
			continue
		}
		if !found || better(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}

func better(a, b kad.Participant) bool {
	if ra, rb := roleRank(a.Role), roleRank(b.Role); ra != rb {
		return ra < rb
	}
	if (a.INN != "") != (b.INN != "") {
		return a.INN != ""
	}
	return utf8.RuneCountInString(a.Name) > utf8.RuneCountInString(b.Name)
}
