package kad

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"kadrisk/internal/cache"
	"kadrisk/internal/constants"
	"kadrisk/internal/logger"
	"kadrisk/pkg/circuitbreaker"
	apperrors "kadrisk/pkg/errors"
	"kadrisk/pkg/metrics"
	"kadrisk/pkg/ratelimit"
	"kadrisk/pkg/retry"
	"kadrisk/pkg/tracing"
)

const (
	minPageChars       = 200
	defaultMaxPDFBytes = 30 << 20
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	VerifySSL   bool
	UserAgent   string
	Retry       retry.Policy
	Gate        *ratelimit.Gate
	Cache       cache.Store
	Breaker     *circuitbreaker.Wrapper
	Logger      logger.Logger
	MaxPDFBytes int64
	// HTTPClient overrides the transport; its Jar is replaced when nil.
	HTTPClient *http.Client
}

// Client is the single process-wide gateway to the site. Every request
// passes the shared Gate, and search/card/PDF text results are cached.
type Client struct {
	baseURL     string
	http        *http.Client
	gate        *ratelimit.Gate
	cache       cache.Store
	breaker     *circuitbreaker.Wrapper
	policy      retry.Policy
	log         logger.Logger
	userAgent   string
	sessionID   string
	maxPDFBytes int64

	warmMu sync.Mutex
	warmed bool
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !opts.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	if opts.Cache == nil {
		opts.Cache = cache.NewMemory(512, 30*time.Minute)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.MaxPDFBytes <= 0 {
		opts.MaxPDFBytes = defaultMaxPDFBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}

	return &Client{
		baseURL:     base,
		http:        httpClient,
		gate:        opts.Gate,
		cache:       opts.Cache,
		breaker:     opts.Breaker,
		policy:      opts.Retry,
		log:         opts.Logger,
		userAgent:   opts.UserAgent,
		sessionID:   uuid.NewString(),
		maxPDFBytes: opts.MaxPDFBytes,
	}, nil
}

func (c *Client) CardURL(caseID string) string {
	return c.baseURL + constants.PathCard + caseID
}

// Search posts one page of a case search.
func (c *Client) Search(ctx context.Context, payload SearchPayload) (*SearchResponse, error) {
	body, err := cache.CanonicalJSON(payload)
	if err != nil {
		return nil, apperrors.ErrValidation.WithCause(err)
	}
	key := cache.SearchKey(body)

	var cached SearchResponse
	if ok, err := cache.GetJSON(ctx, c.cache, constants.KindSearch, key, &cached); err == nil && ok {
		return &cached, nil
	}

	raw, err := c.fetch(ctx, constants.KindSearch, http.MethodPost, c.baseURL+constants.PathSearch, body, validateJSON)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.ErrUnexpectedResponse.
			WithMessage("search response is not valid JSON").
			WithCause(err).
			AsFatal()
	}

	if err := cache.SetJSON(ctx, c.cache, key, resp); err != nil {
		c.log.WarnwCtx(ctx, "cache set failed", "kind", constants.KindSearch, "error", err)
	}
	return &resp, nil
}

// GetCaseCardHTML returns the case card page.
func (c *Client) GetCaseCardHTML(ctx context.Context, caseID string) (string, error) {
	if caseID == "" {
		return "", apperrors.ErrNotSupported.WithMessage("case has no id")
	}
	key := cache.CardKey(caseID)

	if html, ok, err := cache.GetString(ctx, c.cache, constants.KindCard, key); err == nil && ok {
		return html, nil
	}

	raw, err := c.fetch(ctx, constants.KindCard, http.MethodGet, c.CardURL(caseID), nil, validatePage)
	if err != nil {
		return "", err
	}

	html := string(raw)
	if err := cache.SetString(ctx, c.cache, key, html); err != nil {
		c.log.WarnwCtx(ctx, "cache set failed", "kind", constants.KindCard, "error", err)
	}
	return html, nil
}

// GetCaseActsHTML returns the page listing the case's acts. The card page
// carries the listing, so it shares the card cache entry.
func (c *Client) GetCaseActsHTML(ctx context.Context, caseID string) (string, error) {
	return c.GetCaseCardHTML(ctx, caseID)
}

// FetchPDF downloads a document. Relative URLs are resolved against the base.
func (c *Client) FetchPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	if pdfURL == "" {
		return nil, apperrors.ErrNotSupported.WithMessage("act has no pdf url")
	}
	return c.fetch(ctx, constants.KindPDF, http.MethodGet, c.ResolveURL(pdfURL), nil, validatePDF)
}

func (c *Client) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

type bodyValidator func(body []byte) error

func (c *Client) fetch(ctx context.Context, kind, method, target string, body []byte, validate bodyValidator) ([]byte, error) {
	if err := c.warmUp(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	run := func() (interface{}, error) {
		return c.fetchWithRetry(ctx, kind, method, target, body, validate)
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(ctx, run)
		if circuitbreaker.Rejected(err) {
			err = apperrors.ErrBlocked.WithMessage("site circuit breaker is open").WithCause(err)
		}
	} else {
		out, err = run()
	}

	metrics.ObserveSiteRequest(kind, resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, kind, method, target string, body []byte, validate bodyValidator) ([]byte, error) {
	var result []byte
	attempt := 0

	err := retry.RetryWithCallback(ctx, c.policy, func() error {
		attempt++
		raw, status, err := c.doOnce(ctx, kind, method, target, body)
		c.log.DebugwCtx(ctx, "site request",
			"kind", kind,
			"url", target,
			"attempt", attempt,
			"status", status,
			"error", err,
		)
		if err != nil {
			return err
		}
		if err := validate(raw); err != nil {
			return err
		}
		result = raw
		return nil
	}, func(attempt int, err error, next time.Duration) {
		metrics.IncSiteRetry(kind)
		c.log.DebugwCtx(ctx, "retrying site request", "kind", kind, "attempt", attempt, "delay", next, "error", err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doOnce(ctx context.Context, kind, method, target string, body []byte) (raw []byte, status int, err error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, apperrors.ErrValidation.WithCause(err).AsFatal()
	}
	c.setHeaders(req, kind)

	spanCtx, span := tracing.StartSiteSpan(ctx, kind, req)
	defer func() {
		tracing.SetHTTPStatus(span, status)
		tracing.EndSpan(span, err)
	}()
	req = req.WithContext(spanCtx)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%s request failed: %w", kind, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, err.WithDetail("url", target)
	}

	limit := c.maxPDFBytes
	raw, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s body: %w", kind, err)
	}
	if int64(len(raw)) > limit {
		return nil, resp.StatusCode, apperrors.ErrUnexpectedResponse.
			WithMessage(fmt.Sprintf("%s body exceeds %d bytes", kind, limit)).
			AsFatal()
	}
	return raw, resp.StatusCode, nil
}

func classifyStatus(status int) *apperrors.Error {
	switch {
	case status == http.StatusForbidden:
		return apperrors.ErrBlocked.
			WithMessage("site answered 403").
			WithDetail("status", status)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.ErrUnexpectedResponse.
			WithMessage(fmt.Sprintf("site answered %d", status)).
			WithDetail("status", status).
			AsRetryable()
	case status < 200 || status >= 300:
		return apperrors.ErrUnexpectedResponse.
			WithMessage(fmt.Sprintf("site answered %d", status)).
			WithDetail("status", status).
			AsFatal()
	}
	return nil
}

// warmUp opens the session with one GET of the site root. It runs at most
// once per client; only a 403 is reported to the caller.
func (c *Client) warmUp(ctx context.Context) error {
	c.warmMu.Lock()
	defer c.warmMu.Unlock()

	if c.warmed {
		return nil
	}
	c.warmed = true

	start := time.Now()
	_, _, err := c.doOnce(ctx, constants.KindWarmup, http.MethodGet, c.baseURL+"/", nil)
	metrics.ObserveSiteRequest(constants.KindWarmup, resultLabel(err), time.Since(start))
	if err == nil {
		return nil
	}
	if apperrors.IsBlocked(err) {
		return err
	}
	c.log.WarnwCtx(ctx, "session warm-up failed", "error", err)
	return nil
}

func validateJSON(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return apperrors.ErrUnexpectedResponse.WithMessage("empty response where JSON was expected")
	}
	if trimmed[0] == '<' {
		return apperrors.ErrUnexpectedResponse.WithMessage("HTML where JSON was expected")
	}
	return nil
}

func validatePage(body []byte) error {
	if n := utf8.RuneCount(bytes.TrimSpace(body)); n < minPageChars {
		return apperrors.ErrUnexpectedResponse.
			WithMessage(fmt.Sprintf("page too short (%d chars)", n))
	}
	return nil
}

func validatePDF(body []byte) error {
	if !bytes.HasPrefix(bytes.TrimLeft(body, "\r\n\t "), []byte("%PDF")) {
		return apperrors.ErrUnexpectedResponse.WithMessage("document is not a PDF")
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsBlocked(err):
		return "blocked"
	case apperrors.IsUnexpectedResponse(err):
		return "unexpected"
	default:
		return "error"
	}
}
