// Package outcome infers the legal outcome of a judicial act from its text
// with a priority-ordered list of regex rules.
package outcome

import "regexp"

type Outcome string

const (
	BankruptDeclared         Outcome = "bankruptcy_bankrupt_declared"
	BankruptcyCompetition    Outcome = "bankruptcy_competition"
	BankruptcyObservation    Outcome = "bankruptcy_observation"
	SettlementApproved       Outcome = "settlement_approved"
	PartiallySatisfied       Outcome = "partially_satisfied"
	Satisfied                Outcome = "satisfied"
	Denied                   Outcome = "denied"
	Terminated               Outcome = "terminated"
	LeftWithoutReview        Outcome = "left_without_review"
	LeftWithoutMovement      Outcome = "left_without_movement"
	Returned                 Outcome = "returned"
	AppealLeftUnchanged      Outcome = "appeal_left_unchanged"
	AppealCanceled           Outcome = "appeal_canceled"
	AppealChanged            Outcome = "appeal_changed"
	ComplaintLeftUnsatisfied Outcome = "complaint_left_unsatisfied"
	Unknown                  Outcome = "unknown"
)

// IsBankruptcy reports the bankruptcy procedure outcomes.
func (o Outcome) IsBankruptcy() bool {
	switch o {
	case BankruptDeclared, BankruptcyCompetition, BankruptcyObservation:
		return true
	}
	return false
}

type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Rank orders confidences, high first.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 0
	case Medium:
		return 1
	default:
		return 2
	}
}

// Rule matches when any pattern hits and no negative does. A match whose
// phrase hits one of PhraseVetoes is skipped in favour of the next match.
type Rule struct {
	ID           string
	Outcome      Outcome
	Confidence   Confidence
	Patterns     []*regexp.Regexp
	Negatives    []*regexp.Regexp
	PhraseVetoes []*regexp.Regexp
}

// word compiles a pattern anchored at a word start. Group 1 is the phrase.
func word(body string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(` + body + `)`)
}

func words(bodies ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, word(b))
	}
	return out
}

const (
	gap4  = `(?:\S+\s+){0,4}?`
	gap6  = `(?:\S+\s+){0,6}?`
	gap8  = `(?:\S+\s+){0,8}?`
	gap12 = `(?:\S+\s+){0,12}?`
	act   = `(?:решение|определение|постановление)\s+`

	// clause spans a party name with its INN/OGRN details up to the end of
	// the sentence.
	clause = `[^.;]{0,300}?`
)

var (
	askedToGrant = []string{
		`просил\S*\s+(?:суд\s+)?` + gap4 + `удовлетворить`,
		`(?:истец|заявитель)\s+просит\s+` + gap4 + `удовлетворить`,
	}
	refusal = []string{
		`отказать\s+в\s+удовлетворении`,
		`в\s+удовлетворении\s+` + gap8 + `отказать`,
		`в\s+иске\s+отказать`,
	}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Rules is the fixed priority order; the first unvetoed match wins.
var Rules = []Rule{
	{
		ID: "bankrupt_declared", Outcome: BankruptDeclared, Confidence: High,
		Patterns: words(`признать\s+` + clause + `\(?банкрот`),
		Negatives: words(
			`отказать\s+в\s+признании\s+`+clause+`\(?банкрот`,
			`о\s+признании\s+`+clause+`\(?банкрот[^.;]*?\s`+gap4+`отказать`,
		),
		PhraseVetoes: []*regexp.Regexp{
			regexp.MustCompile(`о\s+признании|обоснованн|заявлени`),
		},
	},
	{
		ID: "bankruptcy_competition", Outcome: BankruptcyCompetition, Confidence: High,
		Patterns: words(`(?:открыть|ввести)\s+` + gap6 + `конкурсное\s+производство`),
	},
	{
		ID: "bankruptcy_observation", Outcome: BankruptcyObservation, Confidence: High,
		Patterns: words(`ввести\s+` + gap6 + `наблюдени`),
	},
	{
		ID: "settlement_approved", Outcome: SettlementApproved, Confidence: High,
		Patterns:  words(`утвердить\s+мировое\s+соглашение`),
		Negatives: words(`отказать\s+в\s+утверждении\s+мирового`),
	},
	{
		ID: "partially_satisfied", Outcome: PartiallySatisfied, Confidence: High,
		Patterns: words(
			`удовлетворить\s+`+gap6+`частично`,
			`частично\s+удовлетворить`,
			`в\s+остальной\s+части\s+`+gap6+`отказать`,
		),
		Negatives: words(askedToGrant...),
	},
	{
		ID: "satisfied", Outcome: Satisfied, Confidence: High,
		Patterns: words(
			`(?:иск|исковые\s+требования|требования|заявление)\s+`+gap6+`удовлетворить`,
			`удовлетворить\s+(?:\S+\s+){0,2}?(?:иск|исков|заявлен|требовани)`,
		),
		Negatives: words(concat(askedToGrant, refusal)...),
	},
	{
		ID: "satisfied_recovery", Outcome: Satisfied, Confidence: Medium,
		Patterns:  words(`взыскать\s+с`),
		Negatives: words(concat(askedToGrant, refusal)...),
	},
	{
		ID: "denied", Outcome: Denied, Confidence: High,
		Patterns:  words(refusal...),
		Negatives: words(`просил\S*\s+(?:суд\s+)?` + gap4 + `отказать`),
	},
	{
		ID: "terminated", Outcome: Terminated, Confidence: High,
		Patterns: words(`прекратить\s+производство\s+по\s+(?:делу|заявлению|жалобе|апелляционной|кассационной)`),
	},
	{
		ID: "left_without_review", Outcome: LeftWithoutReview, Confidence: High,
		Patterns: words(`оставить\s+` + gap6 + `без\s+рассмотрения`),
	},
	{
		ID: "left_without_movement", Outcome: LeftWithoutMovement, Confidence: Medium,
		Patterns: words(`оставить\s+` + gap6 + `без\s+движения`),
	},
	{
		ID: "returned", Outcome: Returned, Confidence: Medium,
		Patterns: words(`возвратить\s+` + gap4 + `(?:исковое\s+заявление|заявление|апелляционную\s+жалобу|кассационную\s+жалобу|жалобу)`),
	},
	{
		ID: "appeal_left_unchanged", Outcome: AppealLeftUnchanged, Confidence: High,
		Patterns: words(act + gap12 + `оставить\s+без\s+изменения`),
	},
	{
		ID: "appeal_canceled", Outcome: AppealCanceled, Confidence: High,
		Patterns:  words(act + gap12 + `отменить`),
		Negatives: words(`отменить\s+(?:обеспечительн|меры\s+по\s+обеспечению)`),
	},
	{
		ID: "appeal_changed", Outcome: AppealChanged, Confidence: Medium,
		Patterns: words(act + gap12 + `изменить`),
	},
	{
		ID: "complaint_left_unsatisfied", Outcome: ComplaintLeftUnsatisfied, Confidence: High,
		Patterns: words(`жалоб\S*\s+` + gap8 + `без\s+удовлетворения`),
	},
}
