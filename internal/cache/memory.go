package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a bounded in-process LRU whose entries expire after ttl.
// It is safe for concurrent use.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(maxItems int, ttl time.Duration) *Memory {
	if maxItems <= 0 {
		maxItems = 1
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.lru.Add(key, cp)
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
