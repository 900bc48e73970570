package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithCheckID(ctx, "chk-1")
	ctx = WithCaseID(ctx, "case-7")
	ctx = WithTraceID(ctx, "tr")

	fields := GetLogFields(ctx)
	assert.Equal(t, []interface{}{"trace_id", "tr", "check_id", "chk-1", "case_id", "case-7"}, fields)
	assert.Equal(t, "chk-1", GetCheckID(ctx))
	assert.Equal(t, "case-7", GetCaseID(ctx))
	assert.Equal(t, "", GetServiceName(ctx))
}

func TestEarlyLogFatalExits(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	l := &EarlyLog{out: &buf, err: &buf, exit: func(c int) { code = c }}

	l.Info("loading %s", "config.yaml")
	l.Fatal("broken: %d", 3)

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "INFO: loading config.yaml")
	assert.Contains(t, buf.String(), "FATAL: broken: 3")
}
