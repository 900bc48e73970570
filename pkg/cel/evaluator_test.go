package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() map[string]interface{} {
	return map[string]interface{}{
		"cases_total":     int64(60),
		"cases_window":    int64(12),
		"negative_window": int64(6),
		"defendant_ratio": 0.95,
		"unknown_ratio":   0.1,
		"max_amount":      250000000.0,
		"categories": map[string]interface{}{
			"construction_quality": int64(4),
		},
	}
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateRuleExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "numeric comparison", expr: `stats.cases_total > 10`},
		{name: "status check", expr: `status == "ok"`},
		{name: "string result", expr: `status + "x"`, wantError: true},
		{name: "invalid syntax", expr: `stats.cases_total >>> 1`, wantError: true},
		{name: "undefined variable", expr: `facts.cases > 1`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateRuleExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleExpressionExamplesAllMatch(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range RuleExpressionExamples {
		t.Run(name, func(t *testing.T) {
			ok, err := eval.Evaluate(context.Background(), expr, "ok", sampleStats())
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestEvaluateRuleFalse(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileExpression(`stats.cases_total > 100`)
	require.NoError(t, err)

	ok, err := eval.EvaluateRule(context.Background(), program, "ok", sampleStats())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateMissingKeyErrors(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.Evaluate(context.Background(), `stats.nope > 1`, "ok", sampleStats())
	assert.Error(t, err)
}

func TestEvaluateMixedNumericTypes(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	ok, err := eval.Evaluate(context.Background(), `stats.max_amount > 1000000 && stats.cases_window >= 12.0`, "ok", sampleStats())
	require.NoError(t, err)
	assert.True(t, ok)
}
