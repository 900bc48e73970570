package parser

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"kadrisk/internal/constants"
	"kadrisk/internal/kad"
)

const actContextRunes = 200

var (
	pdfLinkRe   = regexp.MustCompile(`(?:https?://[^"'\s<>]+)?/Document/Pdf/[^"'\s<>]+`)
	actKindRe   = regexp.MustCompile(`(?i)(решение|определение|постановление|судебный акт)`)
	docIDRe     = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	ruDateAllRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
)

type anchorInfo struct {
	text  string
	title string
}

// ParseActs lists the judicial acts linked from a case page. caseID is used
// to build document URLs in the line-based fallback and is never taken as
// an act id.
func ParseActs(page, caseID string) []kad.JudicialAct {
	anchors := anchorTitles(page)

	var acts []kad.JudicialAct
	seen := make(map[string]bool)

	for _, loc := range pdfLinkRe.FindAllStringIndex(page, -1) {
		link := html.UnescapeString(page[loc[0]:loc[1]])
		id := ActIDFromURL(link)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		before := HTMLToText(clampBefore(page, loc[0]))
		after := HTMLToText(clampAfter(page, loc[1]))
		a := anchors[id]

		act := kad.JudicialAct{
			ActID:   id,
			PDFURL:  link,
			Title:   firstNonEmpty(a.title, a.text),
			Context: strings.TrimSpace(strings.Join([]string{a.title, a.text, before, after}, " ")),
		}
		act.RawType, act.ActType = actKind(a.title + " " + a.text + "\n" + after + "\n" + before)
		act.Date = actDate(a.title+" "+a.text, before, after)
		acts = append(acts, act)
	}

	if len(acts) > 0 {
		return acts
	}
	return fallbackActs(page, caseID)
}

// ActIDFromURL returns the second path segment after /Document/Pdf/, or
// the first when only one is present.
func ActIDFromURL(link string) string {
	i := strings.Index(link, constants.PathPDF)
	if i < 0 {
		return ""
	}
	rest := link[i+len(constants.PathPDF):]
	if q := strings.IndexAny(rest, "?#"); q >= 0 {
		rest = rest[:q]
	}
	var segs []string
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	switch len(segs) {
	case 0:
		return ""
	case 1:
		return segs[0]
	default:
		return segs[1]
	}
}

func DocumentURL(caseID, actID string) string {
	return constants.PathPDF + caseID + "/" + actID + "/" + constants.PDFStampArgs
}

func anchorTitles(page string) map[string]anchorInfo {
	out := make(map[string]anchorInfo)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return out
	}
	doc.Find(`a[href*="/Document/Pdf/"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		id := ActIDFromURL(href)
		if id == "" {
			return
		}
		if _, ok := out[id]; ok {
			return
		}
		title, _ := s.Attr("title")
		out[id] = anchorInfo{
			text:  strings.Join(strings.Fields(s.Text()), " "),
			title: strings.Join(strings.Fields(title), " "),
		}
	})
	return out
}

func fallbackActs(page, caseID string) []kad.JudicialAct {
	var acts []kad.JudicialAct
	seen := make(map[string]bool)

	for _, raw := range strings.Split(page, "\n") {
		text := HTMLToText(raw)
		if !actKindRe.MatchString(text) {
			continue
		}
		var id string
		for _, candidate := range docIDRe.FindAllString(raw, -1) {
			if !strings.EqualFold(candidate, caseID) {
				id = candidate
				break
			}
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		act := kad.JudicialAct{
			ActID:   id,
			PDFURL:  DocumentURL(caseID, id),
			Title:   text,
			Context: text,
		}
		act.RawType, act.ActType = actKind(text)
		act.Date = kad.FindRuDate(text)
		acts = append(acts, act)
	}
	return acts
}

func actKind(text string) (string, kad.ActType) {
	m := actKindRe.FindString(text)
	switch strings.ToLower(m) {
	case "решение":
		return m, kad.ActDecision
	case "определение":
		return m, kad.ActDetermination
	case "постановление":
		return m, kad.ActResolution
	default:
		return m, kad.ActOther
	}
}

// actDate prefers a date in the anchor itself, then the closest date
// before the link, then the first one after it.
func actDate(anchor, before, after string) *time.Time {
	if d := kad.FindRuDate(anchor); d != nil {
		return d
	}
	dates := ruDateAllRe.FindAllString(before, -1)
	for i := len(dates) - 1; i >= 0; i-- {
		if d := kad.FindRuDate(dates[i]); d != nil {
			return d
		}
	}
	return kad.FindRuDate(after)
}

func clampBefore(s string, pos int) string {
	start := pos
	for i := 0; i < actContextRunes && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:start])
		start -= size
	}
	return s[start:pos]
}

func clampAfter(s string, pos int) string {
	end := pos
	for i := 0; i < actContextRunes && end < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return s[pos:end]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
