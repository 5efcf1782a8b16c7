/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/streamopt/utils/cast"
)

// Condition is a compiled predicate.
type Condition interface {
	// Evaluate reports whether env satisfies the predicate. Runtime errors
	// count as false.
	Evaluate(env interface{}) bool
	// EvaluateE is Evaluate with the runtime error surfaced.
	EvaluateE(env interface{}) (bool, error)
	// String returns the source expression.
	String() string
}

type ExprCondition struct {
	source  string
	program *vm.Program
}

func NewExprCondition(expression string) (Condition, error) {
	options := []expr.Option{
		expr.Function("like_match", func(params ...any) (any, error) {
			if len(params) != 2 {
				return false, fmt.Errorf("like_match function requires 2 parameters")
			}
			text, ok1 := params[0].(string)
			pattern, ok2 := params[1].(string)
			if !ok1 || !ok2 {
				return false, nil
			}
			return matchesLikePattern(text, pattern), nil
		}),
		expr.Function("is_null", func(params ...any) (any, error) {
			if len(params) != 1 {
				return false, fmt.Errorf("is_null function requires 1 parameter")
			}
			return params[0] == nil, nil
		}),
		expr.Function("is_not_null", func(params ...any) (any, error) {
			if len(params) != 1 {
				return false, fmt.Errorf("is_not_null function requires 1 parameter")
			}
			return params[0] != nil, nil
		}),
		expr.Function("num", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("num function requires 1 parameter")
			}
			if f, ok := cast.ToFloat(params[0]); ok {
				return f, nil
			}
			return nil, nil
		}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	return &ExprCondition{source: expression, program: program}, nil
}

func (ec *ExprCondition) Evaluate(env interface{}) bool {
	ok, err := ec.EvaluateE(env)
	return err == nil && ok
}

func (ec *ExprCondition) EvaluateE(env interface{}) (bool, error) {
	result, err := expr.Run(ec.program, env)
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}

func (ec *ExprCondition) String() string {
	return ec.source
}

// matchesLikePattern implements LIKE matching where % matches any run of
// characters and _ matches exactly one.
func matchesLikePattern(text, pattern string) bool {
	t, p := []rune(text), []rune(pattern)
	// classic two pointer match with backtracking to the last %
	ti, pi := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == t[ti]):
			ti++
			pi++
		case pi < len(p) && p[pi] == '%':
			star, mark = pi, ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
