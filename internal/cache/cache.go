// Package cache provides the bounded response cache shared by every
// outbound site call: an in-process LRU with TTL and an optional Redis tier.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"kadrisk/internal/constants"
	"kadrisk/pkg/metrics"
)

// Store is a byte-oriented cache. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

func SearchKey(canonicalBody []byte) string {
	return constants.CacheKeySearch + string(canonicalBody)
}

func CardKey(caseID string) string {
	return constants.CacheKeyCard + caseID
}

func PDFTextKey(url string) string {
	return constants.CacheKeyPDFText + url
}

// CanonicalJSON marshals v with sorted map keys and no HTML escaping, so
// equal payloads always produce equal keys.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// GetJSON decodes a cached JSON value into dst. kind labels the metric.
func GetJSON(ctx context.Context, s Store, kind, key string, dst interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	metrics.IncCacheLookup(kind, ok)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

func GetString(ctx context.Context, s Store, kind, key string) (string, bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	metrics.IncCacheLookup(kind, ok)
	return string(raw), ok, nil
}

func SetString(ctx context.Context, s Store, key, value string) error {
	return s.Set(ctx, key, []byte(value))
}
