package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kadrisk/internal/claims"
	"kadrisk/internal/constants"
	"kadrisk/internal/kad"
	"kadrisk/internal/outcome"
	apperrors "kadrisk/pkg/errors"
)

type stubSite struct {
	items     []kad.CaseRaw
	searchErr error
	search    func(ctx context.Context) error
	cards     map[string]string
	cardErrs  map[string]error
	delay     time.Duration

	inFlight    int32
	maxInFlight int32
	mu          sync.Mutex
	cardCalls   []string
}

func (s *stubSite) Search(ctx context.Context, payload kad.SearchPayload) (*kad.SearchResponse, error) {
	if s.search != nil {
		if err := s.search(ctx); err != nil {
			return nil, err
		}
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if payload.Page > 1 {
		return &kad.SearchResponse{Page: payload.Page, Pages: 1}, nil
	}
	return &kad.SearchResponse{Items: s.items, Total: len(s.items), Page: 1, Pages: 1}, nil
}

func (s *stubSite) GetCaseCardHTML(ctx context.Context, caseID string) (string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxInFlight, m, n) {
			break
		}
	}

	s.mu.Lock()
	s.cardCalls = append(s.cardCalls, caseID)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := s.cardErrs[caseID]; err != nil {
		return "", err
	}
	if page, ok := s.cards[caseID]; ok {
		return page, nil
	}
	return cardFor(caseID), nil
}

func (s *stubSite) GetCaseActsHTML(ctx context.Context, caseID string) (string, error) {
	if err := s.cardErrs[caseID]; err != nil {
		return "", err
	}
	if page, ok := s.cards[caseID]; ok {
		return page, nil
	}
	return cardFor(caseID), nil
}

func (s *stubSite) CardURL(caseID string) string {
	return "https://kad.test/Card/" + caseID
}

type stubText struct {
	texts map[string]string
	errs  map[string]error
	panic map[string]bool
}

func (s *stubText) Text(_ context.Context, url string) (string, error) {
	if s.panic[url] {
		panic("corrupt xref table")
	}
	if err := s.errs[url]; err != nil {
		return "", err
	}
	if t, ok := s.texts[url]; ok {
		return t, nil
	}
	return decisionText, nil
}

var decisionText = strings.Repeat("Суд исследовал материалы дела и доводы сторон. ", 6) +
	"Решил: исковые требования о взыскании задолженности по договору аренды удовлетворить. " +
	"Взыскать с ООО «Ромашка» в пользу ООО «Вектор» 1 500 000 руб. основного долга."

func actURL(caseID string) string {
	return "/Document/Pdf/" + caseID + "/act-" + caseID + "/decision.pdf"
}

func cardFor(caseID string) string {
	return `<html><body><h1>А40-` + caseID + `/2024</h1><p>Арбитражный суд города Москвы</p>
<div><span>12.03.2024</span><a href="` + actURL(caseID) + `">Решение</a></div>
<h3>Истец</h3><ul><li>ООО "Вектор", ИНН 7700000001</li></ul>
<h3>Ответчик</h3><ul><li>ООО "Ромашка", ИНН 7701234567</li></ul>
</body></html>`
}

func raw(id, date string) kad.CaseRaw {
	return kad.CaseRaw{CaseID: id, CaseNumber: "А40-" + id + "/2024", CourtName: "АС г. Москвы", CaseType: "Э", Date: date}
}

func newTestService(site SiteClient, text TextSource, cfg Config) *serviceImpl {
	return NewService(site, text, cfg, nil).(*serviceImpl)
}

func TestEnrichIsolatesCaseFailures(t *testing.T) {
	site := &stubSite{
		items: []kad.CaseRaw{
			raw("c1", "2024-03-01T00:00:00"),
			raw("c2", "2024-02-01T00:00:00"),
			raw("c3", "2024-01-01T00:00:00"),
		},
		cardErrs: map[string]error{"c2": errors.New("connection reset by peer")},
	}
	svc := newTestService(site, &stubText{}, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusOK, facts.Status)
	require.Len(t, facts.Cases, 2)
	assert.Equal(t, "c1", facts.Cases[0].CaseID)
	assert.Equal(t, "c3", facts.Cases[1].CaseID)
	assert.Equal(t, 3, facts.Stats.CasesFound)
	assert.Equal(t, 2, facts.Stats.CasesEnriched)
	assert.Equal(t, 1, facts.Stats.CasesFailed)
	require.Len(t, facts.Stats.Errors, 1)
	assert.Equal(t, ErrorSample{CaseID: "c2", Kind: "*errors.errorString", Message: "connection reset by peer"}, facts.Stats.Errors[0])
}

func TestEnrichRunTimeoutDuringCasesCountsFailures(t *testing.T) {
	site := &stubSite{
		items: []kad.CaseRaw{
			raw("c1", "2024-03-01T00:00:00"),
			raw("c2", "2024-02-01T00:00:00"),
			raw("c3", "2024-01-01T00:00:00"),
		},
		delay: 40 * time.Millisecond,
	}
	svc := newTestService(site, &stubText{}, Config{RunTimeout: 60 * time.Millisecond})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusOK, facts.Status)
	assert.Equal(t, 3, facts.Stats.CasesConsidered)
	assert.GreaterOrEqual(t, facts.Stats.CasesFailed, 1)
	assert.Equal(t, 3, facts.Stats.CasesEnriched+facts.Stats.CasesFailed)
	assert.Len(t, facts.Cases, facts.Stats.CasesEnriched)
	require.NotEmpty(t, facts.Stats.Errors)
	for _, e := range facts.Stats.Errors {
		assert.Equal(t, apperrors.ErrTimeout.Code, e.Kind, "case %s", e.CaseID)
	}
}

func TestEnrichCaseFields(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00")}}
	svc := newTestService(site, &stubText{}, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
	require.Len(t, facts.Cases, 1)
	c := facts.Cases[0]

	assert.Equal(t, "А40-c1/2024", c.CaseNumber)
	assert.Equal(t, "https://kad.test/Card/c1", c.CardURL)
	assert.Equal(t, kad.RoleDefendant, c.TargetRole)
	assert.Equal(t, DefendantLike, c.TargetRoleGroup)
	assert.Equal(t, `ООО "Ромашка"`, c.TargetName)

	assert.Equal(t, "act-c1", c.Outcome.ActID)
	assert.Equal(t, outcome.Satisfied, c.Outcome.Outcome)
	assert.Equal(t, outcome.High, c.Outcome.Confidence)
	assert.NotEmpty(t, c.Outcome.Evidence)
	require.NotNil(t, c.FinalAct)
	assert.Equal(t, "act-c1", c.FinalAct.ActID)

	assert.Equal(t, Negative, c.Impact)
	assert.Equal(t, outcome.High, c.ImpactConfidence)

	assert.Equal(t, ClaimSourceAct, c.ClaimSource)
	assert.Contains(t, c.ClaimCategories, claims.RentAndLease)
	assert.Contains(t, c.ClaimCategories, claims.DebtCollection)
	require.Len(t, c.Amounts, 1)
	assert.Equal(t, float64(1500000), c.Amounts[0].Value)
}

func TestEnrichBlockedCaseAbortsRun(t *testing.T) {
	site := &stubSite{
		items: []kad.CaseRaw{
			raw("c1", "2024-03-01T00:00:00"),
			raw("c2", "2024-02-01T00:00:00"),
			raw("c3", "2024-01-01T00:00:00"),
		},
		cardErrs: map[string]error{"c2": apperrors.ErrBlocked},
	}
	svc := newTestService(site, &stubText{}, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusBlocked, facts.Status)
	assert.Empty(t, facts.Cases)
	assert.NotEmpty(t, facts.Error)
	assert.NotContains(t, site.cardCalls, "c3")
}

func TestEnrichBlockedPDFAbortsRun(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00")}}
	text := &stubText{errs: map[string]error{actURL("c1"): apperrors.ErrBlocked.WithMessage("403 on pdf")}}
	svc := newTestService(site, text, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusBlocked, facts.Status)
	assert.Empty(t, facts.Cases)
}

func TestEnrichSearchFailures(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		svc := newTestService(&stubSite{searchErr: apperrors.ErrBlocked}, &stubText{}, Config{})
		facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
		assert.Equal(t, constants.StatusBlocked, facts.Status)
		assert.Empty(t, facts.Cases)
	})

	t.Run("unexpected response", func(t *testing.T) {
		svc := newTestService(&stubSite{searchErr: apperrors.ErrUnexpectedResponse}, &stubText{}, Config{})
		facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
		assert.Equal(t, constants.StatusError, facts.Status)
		assert.Empty(t, facts.Cases)
	})

	t.Run("run timeout during search", func(t *testing.T) {
		site := &stubSite{search: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		svc := newTestService(site, &stubText{}, Config{RunTimeout: 20 * time.Millisecond})
		facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
		assert.Equal(t, constants.StatusError, facts.Status)
	})

	t.Run("missing participant", func(t *testing.T) {
		svc := newTestService(&stubSite{}, &stubText{}, Config{})
		facts := svc.Enrich(context.Background(), Request{Participant: "  "})
		assert.Equal(t, constants.StatusError, facts.Status)
	})
}

func TestEnrichNoCases(t *testing.T) {
	svc := newTestService(&stubSite{}, &stubText{}, Config{})
	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusOK, facts.Status)
	assert.NotNil(t, facts.Cases)
	assert.Empty(t, facts.Cases)
	assert.Zero(t, facts.Stats.CasesFound)
}

func TestEnrichCapsCasesByRecency(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{
		raw("old", "2022-01-01T00:00:00"),
		raw("undated", ""),
		raw("new", "2024-05-01T00:00:00"),
		raw("mid", "2023-06-01T00:00:00"),
	}}
	svc := newTestService(site, &stubText{}, Config{MaxCases: 2})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	require.Len(t, facts.Cases, 2)
	assert.Equal(t, "new", facts.Cases[0].CaseID)
	assert.Equal(t, "mid", facts.Cases[1].CaseID)
	assert.Equal(t, 4, facts.Stats.CasesFound)
	assert.Equal(t, 2, facts.Stats.CasesConsidered)
	assert.Equal(t, 2, facts.Stats.CasesDropped)

	all := newTestService(site, &stubText{}, Config{}).Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
	require.Len(t, all.Cases, 4)
	assert.Equal(t, "undated", all.Cases[3].CaseID)
}

func TestEnrichBoundedPool(t *testing.T) {
	var items []kad.CaseRaw
	for i := 0; i < 8; i++ {
		items = append(items, raw(fmt.Sprintf("c%d", i), fmt.Sprintf("2024-01-%02dT00:00:00", 28-i)))
	}
	site := &stubSite{items: items, delay: 15 * time.Millisecond}
	svc := newTestService(site, &stubText{}, Config{Workers: 2})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	require.Len(t, facts.Cases, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&site.maxInFlight), int32(2))
	for i, c := range facts.Cases {
		assert.Equal(t, fmt.Sprintf("c%d", i), c.CaseID)
	}
}

func TestEnrichSequentialByDefault(t *testing.T) {
	site := &stubSite{
		items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00"), raw("c2", "2024-02-01T00:00:00")},
		delay: 5 * time.Millisecond,
	}
	newTestService(site, &stubText{}, Config{}).Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, int32(1), atomic.LoadInt32(&site.maxInFlight))
	assert.Equal(t, []string{"c1", "c2"}, site.cardCalls)
}

func TestEnrichRecoversPanics(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00"), raw("c2", "2024-02-01T00:00:00")}}
	text := &stubText{panic: map[string]bool{actURL("c1"): true}}
	svc := newTestService(site, text, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusOK, facts.Status)
	require.Len(t, facts.Cases, 1)
	assert.Equal(t, 1, facts.Stats.CasesFailed)
	assert.Equal(t, apperrors.ErrInternal.Code, facts.Stats.Errors[0].Kind)
}

func TestEnrichSamplesAtMostThreeErrors(t *testing.T) {
	var items []kad.CaseRaw
	errs := map[string]error{}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("c%d", i)
		items = append(items, raw(id, fmt.Sprintf("2024-01-%02dT00:00:00", 10-i)))
		errs[id] = apperrors.ErrUnexpectedResponse
	}
	svc := newTestService(&stubSite{items: items, cardErrs: errs}, &stubText{}, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})

	assert.Equal(t, constants.StatusOK, facts.Status)
	assert.Equal(t, 5, facts.Stats.CasesFailed)
	require.Len(t, facts.Stats.Errors, 3)
	assert.Equal(t, "UNEXPECTED_RESPONSE", facts.Stats.Errors[0].Kind)
}

func TestEnrichUnusableTextFallsBackToCard(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00")}}
	site.cards = map[string]string{"c1": strings.Replace(cardFor("c1"),
		"<h3>Истец</h3>", "<p>О взыскании задолженности по договору аренды</p><h3>Истец</h3>", 1)}
	text := &stubText{texts: map[string]string{actURL("c1"): "Решил: иск удовлетворить."}}
	svc := newTestService(site, text, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
	require.Len(t, facts.Cases, 1)
	c := facts.Cases[0]

	assert.Equal(t, outcome.Unknown, c.Outcome.Outcome)
	assert.Equal(t, outcome.ReasonTextTooShort, c.Outcome.Reason)
	assert.Equal(t, ImpactUnknown, c.Impact)
	assert.Equal(t, ClaimSourceCard, c.ClaimSource)
	assert.Contains(t, c.ClaimCategories, claims.RentAndLease)
	assert.Equal(t, outcome.Medium, c.ClaimConfidence)
	assert.Empty(t, c.Amounts)
}

func TestEnrichWithoutActs(t *testing.T) {
	site := &stubSite{
		items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00")},
		cards: map[string]string{"c1": `<h1>А40-1/2024</h1><h3>Ответчик</h3><ul><li>ООО "Ромашка"</li></ul>`},
	}
	svc := newTestService(site, &stubText{}, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
	require.Len(t, facts.Cases, 1)
	c := facts.Cases[0]

	assert.Equal(t, outcome.Unknown, c.Outcome.Outcome)
	assert.Equal(t, outcome.ReasonNoAct, c.Outcome.Reason)
	assert.Nil(t, c.FinalAct)
	assert.Equal(t, []claims.Category{claims.UnknownCategory}, c.ClaimCategories)
}

func TestEnrichNoDocument(t *testing.T) {
	site := &stubSite{items: []kad.CaseRaw{raw("c1", "2024-03-01T00:00:00")}}
	text := &stubText{errs: map[string]error{actURL("c1"): apperrors.ErrNotSupported}}
	svc := newTestService(site, text, Config{})

	facts := svc.Enrich(context.Background(), Request{Participant: "ООО Ромашка"})
	require.Len(t, facts.Cases, 1)
	assert.Equal(t, outcome.ReasonNoDocument, facts.Cases[0].Outcome.Reason)
	assert.Zero(t, facts.Stats.CasesFailed)
}
