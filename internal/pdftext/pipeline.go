// Package pdftext turns act PDFs into plain text: download through the site
// client, then a primary and a fallback extractor, memoized per URL.
package pdftext

import (
	"context"
	"strings"
	"unicode/utf8"

	"kadrisk/internal/cache"
	"kadrisk/internal/constants"
	"kadrisk/internal/logger"
	apperrors "kadrisk/pkg/errors"
	"kadrisk/pkg/metrics"
)

const cacheKind = "pdf_text"

// Extractor pulls plain text out of PDF bytes.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, pdf []byte) (string, error)
}

type Fetcher interface {
	FetchPDF(ctx context.Context, url string) ([]byte, error)
}

type Pipeline struct {
	fetcher    Fetcher
	cache      cache.Store
	extractors []Extractor
	minChars   int
	log        logger.Logger
}

// NewPipeline tries extractors in order. A nil store disables memoization.
func NewPipeline(fetcher Fetcher, store cache.Store, minChars int, log logger.Logger, extractors ...Extractor) *Pipeline {
	if minChars <= 0 {
		minChars = constants.MinUsableTextChars
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Pipeline{
		fetcher:    fetcher,
		cache:      store,
		extractors: extractors,
		minChars:   minChars,
		log:        log,
	}
}

// Text returns the extracted text of the document at url. Fetch errors are
// returned as is; extraction failures yield empty text, which is not cached.
func (p *Pipeline) Text(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", apperrors.ErrNotSupported.WithMessage("act has no pdf url")
	}

	key := cache.PDFTextKey(url)
	if p.cache != nil {
		text, ok, err := cache.GetString(ctx, p.cache, cacheKind, key)
		if err != nil {
			p.log.WarnwCtx(ctx, "PDF text cache read failed", "url", url, "error", err)
		} else if ok {
			return text, nil
		}
	}

	data, err := p.fetcher.FetchPDF(ctx, url)
	if err != nil {
		return "", err
	}

	text := p.ExtractText(ctx, data)

	// An empty result is not memoized so the next run extracts again.
	if p.cache != nil && text != "" {
		if err := cache.SetString(ctx, p.cache, key, text); err != nil {
			p.log.WarnwCtx(ctx, "PDF text cache write failed", "url", url, "error", err)
		}
	}
	return text, nil
}

// ExtractText returns the first extractor result with at least minChars
// runes, otherwise the longest result seen (possibly empty).
func (p *Pipeline) ExtractText(ctx context.Context, data []byte) string {
	best, bestName := "", "none"
	bestLen := 0

	for _, e := range p.extractors {
		if ctx.Err() != nil {
			break
		}
		text, err := e.Extract(ctx, data)
		if err != nil {
			p.log.DebugwCtx(ctx, "PDF extractor failed", "extractor", e.Name(), "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		n := utf8.RuneCountInString(text)
		if n >= p.minChars {
			metrics.IncPDFExtraction(e.Name())
			return text
		}
		if n > bestLen {
			best, bestName, bestLen = text, e.Name(), n
		}
	}

	metrics.IncPDFExtraction(bestName)
	return best
}
