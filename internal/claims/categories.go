// Package claims tags a case with coarse claim categories and mines the
// rouble amounts awarded or claimed in an act's text.
package claims

import (
	"regexp"
	"sort"

	"kadrisk/internal/outcome"
	"kadrisk/internal/textutil"
)

type Category string

const (
	Bankruptcy             Category = "bankruptcy"
	DDUPenalty             Category = "ddu_penalty"
	ConstructionQuality    Category = "construction_quality"
	UtilitiesAndManagement Category = "utilities_and_management"
	RentAndLease           Category = "rent_and_lease"
	ContractorDispute      Category = "contractor_dispute"
	DebtCollection         Category = "debt_collection"
	LandAndProperty        Category = "land_and_property"
	CorporateDispute       Category = "corporate_dispute"
	UnknownCategory        Category = "unknown"
)

type group struct {
	category   Category
	confidence outcome.Confidence
	keywords   []*regexp.Regexp
}

func stems(bodies ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(`+b+`)`))
	}
	return out
}

var groups = []group{
	{Bankruptcy, outcome.High, stems(
		`банкрот\p{L}*`,
		`несостоятельн\p{L}*`,
		`конкурсн\p{L}*\s+производств\p{L}*`,
		`конкурсн\p{L}*\s+управляющ\p{L}*`,
		`процедур\p{L}*\s+наблюдени\p{L}*`,
		`реестр\p{L}*\s+требований\s+кредиторов`,
	)},
	{DDUPenalty, outcome.High, stems(
		`долев\p{L}*\s+(?:участи|строительств)\p{L}*`,
		`участник\p{L}*\s+долевого`,
		`214-фз`,
		`дду`,
		`передачи\s+объекта\s+(?:долевого\s+строительства|участнику)`,
	)},
	{ConstructionQuality, outcome.Medium, stems(
		`недостатк\p{L}*\s+(?:выполненных\s+)?(?:работ|квартир|объект|строительств)\p{L}*`,
		`строительн\p{L}*\s+(?:недостатк|дефект)\p{L}*`,
		`дефект\p{L}*`,
		`качеств\p{L}*\s+(?:выполненных\s+)?работ`,
		`гарантийн\p{L}*\s+(?:срок|обязательств)\p{L}*`,
		`стоимост\p{L}*\s+устранения`,
	)},
	{UtilitiesAndManagement, outcome.Medium, stems(
		`коммунальн\p{L}*`,
		`управляющ\p{L}*\s+(?:компани|организаци)\p{L}*`,
		`жкх`,
		`общего\s+имущества\s+(?:в\s+)?многоквартирн\p{L}*`,
		`теплоснабжени\p{L}*`,
		`водоснабжени\p{L}*`,
		`водоотведени\p{L}*`,
		`электрическ\p{L}*\s+энерги\p{L}*`,
		`электроэнерги\p{L}*`,
	)},
	{RentAndLease, outcome.Medium, stems(
		`аренд\p{L}*`,
		`субаренд\p{L}*`,
		`лизинг\p{L}*`,
	)},
	{ContractorDispute, outcome.Medium, stems(
		`(?:строительного\s+)?подряд\p{L}*`,
		`подрядчик\p{L}*`,
		`субподряд\p{L}*`,
		`выполненн\p{L}*\s+работ`,
	)},
	{DebtCollection, outcome.Medium, stems(
		`задолженност\p{L}*`,
		`неосновательн\p{L}*\s+обогащени\p{L}*`,
		`процент\p{L}*\s+за\s+пользование`,
		`(?:основного\s+)?долга`,
		`поставк\p{L}*\s+товар\p{L}*`,
		`оплат\p{L}*\s+(?:поставленного|оказанных|выполненных)`,
	)},
	{LandAndProperty, outcome.Medium, stems(
		`земельн\p{L}*\s+участ\p{L}*`,
		`недвижим\p{L}*`,
		`прав\p{L}*\s+собственности`,
		`кадастров\p{L}*`,
		`самовольн\p{L}*\s+постройк\p{L}*`,
		`нежил\p{L}*\s+помещени\p{L}*`,
	)},
	{CorporateDispute, outcome.Medium, stems(
		`корпоративн\p{L}*`,
		`участник\p{L}*\s+общества`,
		`(?:доли|долю)\s+в\s+уставном`,
		`общего\s+собрания\s+(?:участников|акционеров)`,
		`генеральн\p{L}*\s+директор\p{L}*`,
		`убытк\p{L}*\s+(?:с\s+)?(?:бывшего\s+)?(?:руководител|директор)\p{L}*`,
	)},
}

// TrackedForSignals are the categories that produce a claim signal.
var TrackedForSignals = []Category{
	DDUPenalty,
	ConstructionQuality,
	ContractorDispute,
	UtilitiesAndManagement,
	LandAndProperty,
}

type Match struct {
	Category   Category           `json:"category"`
	Confidence outcome.Confidence `json:"confidence"`
	Keyword    string             `json:"keyword"`
}

type Result struct {
	Categories []Category         `json:"categories"`
	Confidence outcome.Confidence `json:"confidence"`
	Keywords   []string           `json:"keywords,omitempty"`
	Matches    []Match            `json:"matches,omitempty"`
}

func unknownResult() Result {
	return Result{Categories: []Category{UnknownCategory}, Confidence: outcome.Low}
}

// Has reports whether c is among the categories.
func (r Result) Has(c Category) bool {
	for _, x := range r.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// Capped lowers every confidence above ceiling to ceiling.
func (r Result) Capped(ceiling outcome.Confidence) Result {
	if r.Confidence.Rank() < ceiling.Rank() {
		r.Confidence = ceiling
	}
	matches := make([]Match, len(r.Matches))
	for i, m := range r.Matches {
		if m.Confidence.Rank() < ceiling.Rank() {
			m.Confidence = ceiling
		}
		matches[i] = m
	}
	r.Matches = matches
	return r
}

// Classify returns every category whose keywords occur in the text,
// narrowed to the resolution zone when one is present. Higher confidence
// categories come first; ties keep the fixed group order.
func Classify(text string) Result {
	scope := scopeOf(text)
	if scope == "" {
		return unknownResult()
	}

	var matches []Match
	for _, g := range groups {
		for _, re := range g.keywords {
			if loc := re.FindStringSubmatchIndex(scope); loc != nil {
				matches = append(matches, Match{
					Category:   g.category,
					Confidence: g.confidence,
					Keyword:    scope[loc[2]:loc[3]],
				})
				break
			}
		}
	}
	if len(matches) == 0 {
		return unknownResult()
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence.Rank() < matches[j].Confidence.Rank()
	})

	res := Result{Confidence: matches[0].Confidence, Matches: matches}
	for _, m := range matches {
		res.Categories = append(res.Categories, m.Category)
		res.Keywords = append(res.Keywords, m.Keyword)
	}
	return res
}

// scopeOf normalizes text and narrows it to the resolution zone.
func scopeOf(text string) string {
	norm := textutil.Normalize(text)
	if zone, ok := outcome.ResolutionZone(norm); ok {
		return zone
	}
	return norm
}
