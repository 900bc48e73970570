// Package kad talks to the arbitration court case tracker: search,
// case cards and act PDFs, behind one rate-limited, cached client.
package kad

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RolePlaintiff  Role = "plaintiff"
	RoleDefendant  Role = "defendant"
	RoleThirdParty Role = "third_party"
	RoleOther      Role = "other"
)

type ActType string

const (
	ActDecision      ActType = "decision"
	ActDetermination ActType = "determination"
	ActResolution    ActType = "resolution"
	ActOther         ActType = "other"
)

// Side is one participant filter of a search request.
type Side struct {
	Name       string `json:"Name"`
	Type       int    `json:"Type"`
	ExactMatch bool   `json:"ExactMatch"`
}

// SearchPayload is the body of POST /Kad/SearchInstances.
type SearchPayload struct {
	Page        int      `json:"Page"`
	Count       int      `json:"Count"`
	Courts      []string `json:"Courts"`
	DateFrom    *string  `json:"DateFrom"`
	DateTo      *string  `json:"DateTo"`
	CaseNumbers []string `json:"CaseNumbers"`
	Sides       []Side   `json:"Sides"`
}

type CaseRaw struct {
	CaseID     string `json:"CaseId"`
	CaseNumber string `json:"CaseNumber"`
	CourtName  string `json:"CourtName"`
	CaseType   string `json:"CaseType"`
	Date       string `json:"Date"`
}

// SearchResponse accepts both the flat {Items,Total,Page,Pages} shape and
// the wrapped {Result:{Items,TotalCount,PagesCount}} shape.
type SearchResponse struct {
	Items []CaseRaw `json:"Items"`
	Total int       `json:"Total"`
	Page  int       `json:"Page"`
	Pages int       `json:"Pages"`
}

func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	type flat SearchResponse
	var aux struct {
		flat
		Result *struct {
			Items      []CaseRaw `json:"Items"`
			Page       int       `json:"Page"`
			TotalCount int       `json:"TotalCount"`
			PagesCount int       `json:"PagesCount"`
		} `json:"Result"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = SearchResponse(aux.flat)
	if aux.Result != nil && len(r.Items) == 0 {
		r.Items = aux.Result.Items
		r.Page = aux.Result.Page
		r.Total = aux.Result.TotalCount
		r.Pages = aux.Result.PagesCount
	}
	return nil
}

// CaseNormalized is the domain view of a search row. CaseID is never
// rewritten.
type CaseNormalized struct {
	CaseID          string     `json:"case_id"`
	CaseNumber      string     `json:"case_number,omitempty"`
	Court           string     `json:"court,omitempty"`
	CaseType        string     `json:"case_type,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	ParticipantRole string     `json:"participant_role,omitempty"`
	CardURL         string     `json:"card_url,omitempty"`
}

type Participant struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	INN      string `json:"inn,omitempty"`
	OGRN     string `json:"ogrn,omitempty"`
	IsTarget bool   `json:"is_target"`
}

type CaseDetails struct {
	CaseNumber   string        `json:"case_number,omitempty"`
	Court        string        `json:"court,omitempty"`
	Participants []Participant `json:"participants"`
}

type JudicialAct struct {
	ActID   string     `json:"act_id"`
	ActType ActType    `json:"act_type"`
	RawType string     `json:"raw_type,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
	PDFURL  string     `json:"pdf_url,omitempty"`
	Title   string     `json:"title,omitempty"`
	// Context is the stripped text around the act link, used for marker checks.
	Context string `json:"-"`
}

func NormalizeCase(raw CaseRaw, cardURL, role string) CaseNormalized {
	return CaseNormalized{
		CaseID:          raw.CaseID,
		CaseNumber:      raw.CaseNumber,
		Court:           raw.CourtName,
		CaseType:        raw.CaseType,
		StartDate:       ParseDate(raw.Date),
		ParticipantRole: role,
		CardURL:         cardURL,
	}
}
