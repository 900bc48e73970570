package cache

import (
	"context"

	"kadrisk/internal/logger"
)

// Tiered reads through a fast local tier and a shared remote tier.
// Remote failures degrade to a miss; the local tier is authoritative.
type Tiered struct {
	local  Store
	remote Store
	log    logger.Logger
}

func NewTiered(local, remote Store, log logger.Logger) *Tiered {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Tiered{local: local, remote: remote, log: log}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.local.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	if t.remote == nil {
		return nil, false, nil
	}

	v, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		t.log.WarnwCtx(ctx, "remote cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	_ = t.local.Set(ctx, key, v)
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	if err := t.local.Set(ctx, key, value); err != nil {
		return err
	}
	if t.remote == nil {
		return nil
	}
	if err := t.remote.Set(ctx, key, value); err != nil {
		t.log.WarnwCtx(ctx, "remote cache set failed", "key", key, "error", err)
	}
	return nil
}
