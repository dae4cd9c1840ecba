package rules

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition evaluates a boolean expression against an environment map.
// It backs the `expression` operator and workflow step conditions.
type Condition interface {
	Evaluate(expression string, env map[string]interface{}) (bool, error)
}

// ExprCondition is a Condition built on expr-lang/expr with a compiled
// program cache keyed by expression text.
type ExprCondition struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// NewExprCondition creates an ExprCondition with an initialized cache.
func NewExprCondition() *ExprCondition {
	return &ExprCondition{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate compiles (or reuses) the expression and runs it against env.
// The expression must evaluate to a boolean; anything else is an error.
func (c *ExprCondition) Evaluate(expression string, env map[string]interface{}) (bool, error) {
	c.mu.RLock()
	program, ok := c.cache[expression]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		if program, ok = c.cache[expression]; !ok {
			var err error
			program, err = expr.Compile(expression, expr.AllowUndefinedVariables())
			if err != nil {
				c.mu.Unlock()
				return false, err
			}
			c.cache[expression] = program
		}
		c.mu.Unlock()
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	if b, ok := result.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expression '%s' did not evaluate to a boolean, got %T", expression, result)
}
