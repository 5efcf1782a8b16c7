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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExprCondition(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{"comparison", "amount > 100", false},
		{"logic", "amount > 100 && region == 'EU'", false},
		{"null check", "is_null(region)", false},
		{"like", "like_match(name, 'John%')", false},
		{"invalid", "amount >", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := NewExprCondition(tt.expression)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cond)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expression, cond.String())
		})
	}
}

func TestExprCondition_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		row        map[string]interface{}
		expected   bool
	}{
		{"greater", "amount > 100", map[string]interface{}{"amount": int64(150)}, true},
		{"float", "amount > 100", map[string]interface{}{"amount": 99.5}, false},
		{"and", "amount > 100 && region == 'EU'", map[string]interface{}{"amount": int64(150), "region": "EU"}, true},
		{"missing column is nil", "is_null(region)", map[string]interface{}{"amount": 1}, true},
		{"not null", "is_not_null(region)", map[string]interface{}{"region": "US"}, true},
		{"like prefix", "like_match(name, 'Jo%')", map[string]interface{}{"name": "John"}, true},
		{"like single", "like_match(name, 'J_hn')", map[string]interface{}{"name": "John"}, true},
		{"like miss", "like_match(name, '%x%')", map[string]interface{}{"name": "John"}, false},
		{"like non string", "like_match(name, 'J%')", map[string]interface{}{"name": 12}, false},
		{"num of string", "num(amount) >= 10", map[string]interface{}{"amount": "12"}, true},
		{"type mismatch is false", "amount > 100", map[string]interface{}{"amount": "abc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := NewExprCondition(tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cond.Evaluate(tt.row))
		})
	}
}

func TestEvaluateESurfacesRuntimeErrors(t *testing.T) {
	cond, err := NewExprCondition("amount > 100")
	require.NoError(t, err)
	_, err = cond.EvaluateE(map[string]interface{}{"amount": "abc"})
	assert.Error(t, err)
}

func TestMatchesLikePattern(t *testing.T) {
	assert.True(t, matchesLikePattern("", "%"))
	assert.True(t, matchesLikePattern("abc", "a%c"))
	assert.True(t, matchesLikePattern("abbbc", "a%b%c"))
	assert.False(t, matchesLikePattern("abc", "a_"))
	assert.True(t, matchesLikePattern("héllo", "h_llo"))
	assert.False(t, matchesLikePattern("", "_"))
}
