package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and runs boolean rule expressions over aggregated
// case statistics. Expressions see two variables: `stats` (map) and
// `status` (run status string).
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("status", cel.StringType),
		cel.Variable("stats", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// ValidateRuleExpression compiles expression and requires a bool result.
func (e *Evaluator) ValidateRuleExpression(expression string) error {
	ast, err := e.compile(expression)
	if err != nil {
		return err
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}
	return nil
}

func (e *Evaluator) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return ast, nil
}

func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	if err := e.ValidateRuleExpression(expression); err != nil {
		return nil, err
	}
	ast, _ := e.env.Compile(expression)

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// EvaluateRule runs a compiled rule. Non-bool results are an error.
func (e *Evaluator) EvaluateRule(ctx context.Context, program cel.Program, status string, stats map[string]interface{}) (bool, error) {
	vars := map[string]interface{}{
		"status": status,
		"stats":  stats,
	}

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, expression, status string, stats map[string]interface{}) (bool, error) {
	program, err := e.CompileExpression(expression)
	if err != nil {
		return false, err
	}
	return e.EvaluateRule(ctx, program, status, stats)
}
