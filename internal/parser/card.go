package parser

import (
	"regexp"
	"strings"

	"kadrisk/internal/kad"
)

var (
	caseNumberRe = regexp.MustCompile(`[А-ЯA-Z]\d{1,3}-\d+/\d{4}`)
	innRe        = regexp.MustCompile(`(?i)инн\s*:?\s*(\d{12}|\d{10})(?:\D|$)`)
	ogrnRe       = regexp.MustCompile(`(?i)огрн(?:ип)?\s*:?\s*(\d{15}|\d{13})(?:\D|$)`)
	idLabelRe    = regexp.MustCompile(`(?i)[,;(]?\s*(?:инн|огрн(?:ип)?)\s*:?\s*\d+\)?`)
	roleMarkerRe = regexp.MustCompile(`(?i)^(истц[^\s:]*|истец|ответчик[^\s:]*|трет[^\s:]*\s+лиц[^\s:]*|заявител[^\s:]*|должник[^\s:]*|кредитор[^\s:]*|ины[^\s:]*\s+лиц[^\s:]*)\s*:?\s*(.*)$`)
	// Lines that continue the previous party rather than start a new one.
	continuationRe = regexp.MustCompile(`(?i)^(инн|огрн|адрес|\d{6}|г\.|ул\.|россия)`)
)

// ParseCaseCard extracts case number, court and participants from a case
// card page.
func ParseCaseCard(page string) kad.CaseDetails {
	text := HTMLToText(page)
	lines := Lines(text)

	details := kad.CaseDetails{
		CaseNumber:   caseNumberRe.FindString(text),
		Participants: []kad.Participant{},
	}

	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "арбитражный суд") {
			details.Court = line
			break
		}
	}

	details.Participants = parseParticipants(lines)
	return details
}

// RoleFromMarker maps a role heading to a participant role.
func RoleFromMarker(marker string) kad.Role {
	m := strings.ToLower(marker)
	switch {
	case strings.HasPrefix(m, "истец"), strings.HasPrefix(m, "истц"),
		strings.HasPrefix(m, "заявител"), strings.HasPrefix(m, "кредитор"):
		return kad.RolePlaintiff
	case strings.HasPrefix(m, "ответчик"), strings.HasPrefix(m, "должник"):
		return kad.RoleDefendant
	case strings.HasPrefix(m, "треть"), strings.HasPrefix(m, "трет"):
		return kad.RoleThirdParty
	default:
		return kad.RoleOther
	}
}

type segment struct {
	role  kad.Role
	lines []string
}

func parseParticipants(lines []string) []kad.Participant {
	var segments []segment
	for _, line := range lines {
		if m := roleMarkerRe.FindStringSubmatch(line); m != nil {
			seg := segment{role: RoleFromMarker(m[1])}
			if rest := strings.TrimSpace(m[2]); rest != "" {
				seg.lines = append(seg.lines, rest)
			}
			segments = append(segments, seg)
			continue
		}
		if len(segments) > 0 {
			last := &segments[len(segments)-1]
			last.lines = append(last.lines, line)
		}
	}

	out := make([]kad.Participant, 0)
	for _, seg := range segments {
		out = append(out, segmentParticipants(seg)...)
	}
	return out
}

func segmentParticipants(seg segment) []kad.Participant {
	var (
		out     []kad.Participant
		current *kad.Participant
		blob    strings.Builder
	)

	flush := func() {
		if current == nil {
			return
		}
		text := blob.String()
		if m := innRe.FindStringSubmatch(text); m != nil {
			current.INN = m[1]
		}
		if m := ogrnRe.FindStringSubmatch(text); m != nil {
			current.OGRN = m[1]
		}
		if current.Name != "" || current.INN != "" {
			out = append(out, *current)
		}
		current = nil
		blob.Reset()
	}

	for _, line := range seg.lines {
		if current != nil && continuationRe.MatchString(line) {
			blob.WriteString(" " + line)
			continue
		}
		flush()
		current = &kad.Participant{Role: seg.role, Name: displayName(line)}
		blob.WriteString(line)
	}
	flush()
	return out
}

// displayName keeps the text after a colon when present and drops
// INN/OGRN labels and trailing punctuation.
func displayName(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		prefix := strings.ToLower(line[:i])
		if !strings.Contains(prefix, "инн") && !strings.Contains(prefix, "огрн") {
			if rest := strings.TrimSpace(line[i+1:]); rest != "" {
				line = rest
			}
		}
	}
	name := idLabelRe.ReplaceAllString(line, "")
	return strings.Trim(strings.TrimSpace(name), " ,;:-–")
}
