package claims

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"kadrisk/internal/textutil"
)

const (
	DefaultMaxAmounts = 3
	MinAmount         = 1000

	amountRadius     = 120
	amountMaxSnippet = 300
)

const (
	number   = `(\d{1,3}(?: \d{3})+|\d+)(?:[.,](\d{1,2}))?`
	currency = `(?:руб|р\.|₽)`
)

// Each pattern captures the integer part in group 1 and kopecks in group 2.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|[^\d.,])` + number + `\s*` + currency),
	regexp.MustCompile(`сумм\S*\s+(?:\S+\s+){0,3}?` + number + `\s*(?:\(|` + currency + `)`),
	regexp.MustCompile(`взыскать\s+(?:\S+\s+){0,12}?` + number + `\s*(?:\(|` + currency + `)`),
}

type Amount struct {
	Value    float64 `json:"value"`
	Raw      string  `json:"raw"`
	Evidence string  `json:"evidence"`
}

// ExtractAmounts mines rouble amounts from the resolution zone of text, or
// the whole text without one. Values below MinAmount are dropped, equal
// values collapse to the first occurrence, and the result is sorted
// descending and cut to limit (DefaultMaxAmounts when limit <= 0).
func ExtractAmounts(text string, limit int) []Amount {
	if limit <= 0 {
		limit = DefaultMaxAmounts
	}
	scope := scopeOf(text)
	if scope == "" {
		return nil
	}

	seen := make(map[int64]struct{})
	var out []Amount
	for _, re := range amountPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(scope, -1) {
			raw := scope[loc[2]:loc[3]]
			frac := ""
			if loc[4] >= 0 {
				frac = scope[loc[4]:loc[5]]
			}
			value, ok := parseAmount(raw, frac)
			if !ok || value < MinAmount {
				continue
			}
			cents := int64(value*100 + 0.5)
			if _, dup := seen[cents]; dup {
				continue
			}
			seen[cents] = struct{}{}

			end := loc[3]
			if loc[5] > end {
				end = loc[5]
			}
			out = append(out, Amount{
				Value:    value,
				Raw:      scope[loc[2]:end],
				Evidence: textutil.Snippet(scope, loc[2], end, amountRadius, amountMaxSnippet),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func parseAmount(intPart, frac string) (float64, bool) {
	s := strings.ReplaceAll(intPart, " ", "")
	if frac != "" {
		s += "." + frac
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MaxAmount returns the largest value, or 0.
func MaxAmount(amounts []Amount) float64 {
	var m float64
	for _, a := range amounts {
		if a.Value > m {
			m = a.Value
		}
	}
	return m
}
