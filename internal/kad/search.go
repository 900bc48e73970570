package kad

import (
	"context"
	"strings"
	"time"
)

// Searcher is the part of the client that pagination needs.
type Searcher interface {
	Search(ctx context.Context, payload SearchPayload) (*SearchResponse, error)
}

type Query struct {
	Participant     string
	ParticipantType string
	PageSize        int
	Courts          []string
	DateFrom        *time.Time
	DateTo          *time.Time
	ExactMatch      bool
}

type SearchResult struct {
	Items []CaseRaw
	Total int
	Pages int
	// Fetched is the number of pages actually requested.
	Fetched int
}

// ParticipantTypeCode maps a participant role to the site's Sides[].Type
// filter; unknown roles search across all roles.
func ParticipantTypeCode(participantType string) int {
	switch strings.ToLower(strings.TrimSpace(participantType)) {
	case string(RolePlaintiff):
		return 0
	case string(RoleDefendant):
		return 1
	case string(RoleThirdParty):
		return 2
	case string(RoleOther):
		return 3
	default:
		return -1
	}
}

func BuildPayload(q Query, page int) SearchPayload {
	count := q.PageSize
	if count <= 0 {
		count = 25
	}
	courts := q.Courts
	if courts == nil {
		courts = []string{}
	}

	p := SearchPayload{
		Page:        page,
		Count:       count,
		Courts:      courts,
		CaseNumbers: []string{},
		Sides: []Side{{
			Name:       strings.TrimSpace(q.Participant),
			Type:       ParticipantTypeCode(q.ParticipantType),
			ExactMatch: q.ExactMatch,
		}},
	}
	if q.DateFrom != nil {
		s := FormatDate(*q.DateFrom)
		p.DateFrom = &s
	}
	if q.DateTo != nil {
		s := FormatDate(*q.DateTo)
		p.DateTo = &s
	}
	return p
}

// SearchAll fetches pages in order. Page 1 fixes the page count; later
// pages stop early on an empty page. Rows are deduplicated by case id.
func SearchAll(ctx context.Context, s Searcher, q Query, maxPages int) (*SearchResult, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	first, err := s.Search(ctx, BuildPayload(q, 1))
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Total: first.Total, Pages: first.Pages, Fetched: 1}
	seen := make(map[string]bool)
	add := func(items []CaseRaw) {
		for _, it := range items {
			if it.CaseID == "" || seen[it.CaseID] {
				continue
			}
			seen[it.CaseID] = true
			result.Items = append(result.Items, it)
		}
	}
	add(first.Items)

	last := first.Pages
	if last > maxPages {
		last = maxPages
	}
	for page := 2; page <= last; page++ {
		resp, err := s.Search(ctx, BuildPayload(q, page))
		if err != nil {
			return nil, err
		}
		result.Fetched++
		if len(resp.Items) == 0 {
			break
		}
		add(resp.Items)
	}

	return result, nil
}
