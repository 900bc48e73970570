// Package acts picks which of a case's judicial acts speaks for the case.
package acts

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"kadrisk/internal/kad"
	"kadrisk/internal/textutil"
)

var (
	technicalRe = regexp.MustCompile(`оставить без движения|возвратить|принять к производству|назначить (?:судебное )?заседание|отложить|вызвать|истребовать`)
	finalRe     = regexp.MustCompile(`оставить без изменения|отменить|изменить|признать\s+[^.;]{0,300}?\(?банкрот|ввести (?:процедуру )?(?:конкурс|наблюдени)|открыть конкурс|утвердить мировое соглашение`)
	higherRe    = regexp.MustCompile(`кассац|апелляц|надзор`)
)

// Score orders acts; lower is better, compared field by field.
type Score struct {
	GroupPriority int
	FinalBonus    int
	NegDate       int64
	TypeBonus     int
}

func (s Score) Less(o Score) bool {
	if s.GroupPriority != o.GroupPriority {
		return s.GroupPriority < o.GroupPriority
	}
	if s.FinalBonus != o.FinalBonus {
		return s.FinalBonus < o.FinalBonus
	}
	if s.NegDate != o.NegDate {
		return s.NegDate < o.NegDate
	}
	return s.TypeBonus < o.TypeBonus
}

func actText(a kad.JudicialAct) string {
	return textutil.Normalize(a.RawType + " " + a.Title + " " + a.Context)
}

// IsTechnical reports procedural acts that never decide a case.
func IsTechnical(a kad.JudicialAct) bool {
	return technicalRe.MatchString(actText(a))
}

func ScoreAct(a kad.JudicialAct) Score {
	text := actText(a)
	kind := textutil.Normalize(a.RawType + " " + a.Title)

	s := Score{GroupPriority: 50, FinalBonus: 1, TypeBonus: 2}
	switch {
	case higherRe.MatchString(text):
		s.GroupPriority = 10
	case a.ActType == kad.ActResolution || strings.Contains(kind, "постановлени"):
		s.GroupPriority = 20
	case a.ActType == kad.ActDecision || strings.Contains(kind, "решени"):
		s.GroupPriority = 30
	case a.ActType == kad.ActDetermination || strings.Contains(kind, "определени"):
		s.GroupPriority = 40
	}

	if finalRe.MatchString(text) {
		s.FinalBonus = 0
	}
	if a.Date != nil {
		s.NegDate = -dateOrdinal(*a.Date)
	}

	switch {
	case a.ActType == kad.ActDecision || strings.Contains(kind, "резолю"):
		s.TypeBonus = 0
	case a.ActType == kad.ActDetermination:
		s.TypeBonus = 1
	}
	return s
}

// SelectFinalAct returns the most authoritative act, skipping technical
// ones unless nothing else is left. Ties keep input order.
func SelectFinalAct(list []kad.JudicialAct) (kad.JudicialAct, bool) {
	if len(list) == 0 {
		return kad.JudicialAct{}, false
	}

	candidates := make([]kad.JudicialAct, 0, len(list))
	for _, a := range list {
		if !IsTechnical(a) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, list...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return ScoreAct(candidates[i]).Less(ScoreAct(candidates[j]))
	})
	return candidates[0], true
}

// SelectOutcomeAct returns the latest dated act, or the first act when
// none carries a date.
func SelectOutcomeAct(list []kad.JudicialAct) (kad.JudicialAct, bool) {
	if len(list) == 0 {
		return kad.JudicialAct{}, false
	}

	best := -1
	for i, a := range list {
		if a.Date == nil {
			continue
		}
		if best < 0 || a.Date.After(*list[best].Date) {
			best = i
		}
	}
	if best < 0 {
		return list[0], true
	}
	return list[best], true
}

func dateOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
