package cleaning

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/lamii21/Etl/table"
)

// ruleEvaluator compiles validation expressions once and evaluates
// them per row. Each row is exposed to the expression as a "row" map
// keyed by column header.
type ruleEvaluator struct {
	cache sync.Map // expression string → compiled *vm.Program
}

func (e *ruleEvaluator) holds(rule string, env map[string]any) (bool, error) {
	program, err := e.compile(rule, env)
	if err != nil {
		return false, fmt.Errorf("compile rule %q: %w", rule, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate rule %q: %w", rule, err)
	}
	if result == nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("rule %q evaluated to %T, expected bool", rule, result)
	}
	return b, nil
}

func (e *ruleEvaluator) compile(rule string, env map[string]any) (*vm.Program, error) {
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(rule, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache.Store(rule, program)
	return program, nil
}

// rowEnv builds the expression environment for the i-th row: cell
// values as string/float64/bool, missing cells as nil.
func rowEnv(t *table.Table, row int) map[string]any {
	values := make(map[string]any, t.ColumnCount())
	for c, h := range t.Headers() {
		values[h] = t.Cell(row, c).Value()
	}
	return map[string]any{"row": values}
}
