package pdftext

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kadrisk/internal/cache"
	apperrors "kadrisk/pkg/errors"
)

type fakeExtractor struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchPDF(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestExtractTextPrimaryWins(t *testing.T) {
	primary := &fakeExtractor{name: "primary", text: strings.Repeat("а", 250)}
	fallback := &fakeExtractor{name: "fallback", text: strings.Repeat("б", 500)}
	p := NewPipeline(&fakeFetcher{}, nil, 200, nil, primary, fallback)

	text := p.ExtractText(context.Background(), []byte("%PDF"))

	assert.Equal(t, primary.text, text)
	assert.Equal(t, 0, fallback.calls)
}

func TestExtractTextFallback(t *testing.T) {
	primary := &fakeExtractor{name: "primary", text: "коротко"}
	fallback := &fakeExtractor{name: "fallback", text: strings.Repeat("б", 300)}
	p := NewPipeline(&fakeFetcher{}, nil, 200, nil, primary, fallback)

	assert.Equal(t, fallback.text, p.ExtractText(context.Background(), nil))
}

func TestExtractTextLongestWhenAllShort(t *testing.T) {
	primary := &fakeExtractor{name: "primary", err: errors.New("broken xref")}
	second := &fakeExtractor{name: "second", text: "  текст из ста знаков  "}
	third := &fakeExtractor{name: "third", text: "текст"}
	p := NewPipeline(&fakeFetcher{}, nil, 200, nil, primary, second, third)

	assert.Equal(t, "текст из ста знаков", p.ExtractText(context.Background(), nil))
}

func TestExtractTextNothing(t *testing.T) {
	p := NewPipeline(&fakeFetcher{}, nil, 200, nil, &fakeExtractor{name: "x", err: errors.New("no")})
	assert.Empty(t, p.ExtractText(context.Background(), nil))
}

func TestTextCachesByURL(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF-1.4")}
	extractor := &fakeExtractor{name: "primary", text: strings.Repeat("решил ", 50)}
	store := cache.NewMemory(16, time.Minute)
	p := NewPipeline(fetcher, store, 200, nil, extractor)
	ctx := context.Background()

	first, err := p.Text(ctx, "/Document/Pdf/c/a/x.pdf")
	require.NoError(t, err)
	second, err := p.Text(ctx, "/Document/Pdf/c/a/x.pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, extractor.calls)

	cached, ok, err := store.Get(ctx, cache.PDFTextKey("/Document/Pdf/c/a/x.pdf"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, string(cached))
}

func TestTextEmptyResultNotCached(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("%PDF-1.4")}
	extractor := &fakeExtractor{name: "primary", err: errors.New("broken xref")}
	store := cache.NewMemory(16, time.Minute)
	p := NewPipeline(fetcher, store, 200, nil, extractor)
	ctx := context.Background()

	text, err := p.Text(ctx, "/Document/Pdf/c/a/x.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)

	_, ok, err := store.Get(ctx, cache.PDFTextKey("/Document/Pdf/c/a/x.pdf"))
	require.NoError(t, err)
	assert.False(t, ok)

	extractor.err = nil
	extractor.text = strings.Repeat("решил ", 50)
	text, err = p.Text(ctx, "/Document/Pdf/c/a/x.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Equal(t, 2, fetcher.calls)
}

func TestTextFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: apperrors.ErrBlocked}
	p := NewPipeline(fetcher, cache.NewMemory(16, time.Minute), 200, nil, &fakeExtractor{name: "x"})

	_, err := p.Text(context.Background(), "/Document/Pdf/c/a")
	assert.True(t, apperrors.IsBlocked(err))
}

func TestTextEmptyURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := NewPipeline(fetcher, nil, 200, nil)

	_, err := p.Text(context.Background(), "")
	assert.True(t, apperrors.IsNotSupported(err))
	assert.Equal(t, 0, fetcher.calls)
}

func TestNativeExtractorRejectsGarbage(t *testing.T) {
	_, err := NewNativeExtractor().Extract(context.Background(), []byte("not a pdf at all"))
	assert.Error(t, err)
}

func TestCommandExtractorMissingBinary(t *testing.T) {
	e := NewCommandExtractor("/nonexistent/pdftotext-binary")
	assert.False(t, e.Available())

	_, err := e.Extract(context.Background(), []byte("%PDF"))
	assert.Error(t, err)
}
