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

/*
Package condition compiles boolean row predicates with expr-lang.

Predicates are evaluated against a record (map of column name to value) and
are used by the columnar optimizer's predicate option to drop rows before
projection. Undefined columns evaluate to nil rather than failing, so a
predicate over a sparse file stays valid.

Helper functions available in expressions:

	like_match(text, pattern)  SQL LIKE with % and _ wildcards
	is_null(value)             true when value is nil
	is_not_null(value)         true when value is not nil
	num(value)                 numeric view of a value, nil when not numeric

Example:

	cond, err := condition.NewExprCondition("amount > 100 && like_match(region, 'EU%')")
	if err != nil {
		return err
	}
	keep := cond.Evaluate(row)
*/
package condition
