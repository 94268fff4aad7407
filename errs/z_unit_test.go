// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindLevels(t *testing.T) {
	tests := []struct {
		kind Kind
		lv   ErrLevel
		name string
	}{
		{KindInvalidDistribution, Warn, "invalid distribution"},
		{KindInvalidWeight, Warn, "invalid weight"},
		{KindConversionDivergence, Fatal, "conversion divergence"},
		{KindArithmeticUnderflow, Fatal, "arithmetic underflow"},
		{KindStructuralInvariant, Fatal, "structural invariant violation"},
		{Kind(200), Fatal, ""},
	}
	for _, tt := range tests {
		e := Newk(tt.kind, "x")
		assert.Equal(t, tt.lv, e.ErrLv, tt.name)
		assert.Equal(t, tt.name, tt.kind.String())
	}
	assert.Equal(t, "warn", ErrLv(Warn))
	assert.Equal(t, "", ErrLv(ErrLevel(99)))
}

func TestErrorFormat(t *testing.T) {
	e := Kindf(KindInvalidWeight, "weight %d", 3)
	assert.Equal(t, "errlv=warn [invalid weight] weight 3", e.Error())

	w := WrapWithExtra(e, "build failed", "index=3")
	assert.Equal(t, "errlv=warn [invalid weight] build failed | extra: index=3 (cause: "+e.Error()+")", w.Error())
	assert.Equal(t, "errlv=fatal boom", NewFatal("boom").Error())
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(Newk(KindArithmeticUnderflow, "a<b"), "sub"))
	assert.True(t, errors.Is(err, ErrArithmeticUnderflow))
	assert.False(t, errors.Is(err, ErrInvalidWeight))
	assert.Equal(t, KindArithmeticUnderflow, KindOf(err))
	assert.Equal(t, KindNone, KindOf(errors.New("plain")))

	// 無類別的 *E 不會誤判為任何哨兵
	assert.False(t, errors.Is(NewWarn("x"), &E{}))
}

func TestWrapLevel(t *testing.T) {
	w := Wrap(NewWarn("bad input"), "ctx")
	assert.Equal(t, Warn, w.ErrLv)

	w = Wrap(context.Canceled, "sim")
	assert.Equal(t, Fatal, w.ErrLv)
	assert.True(t, errors.Is(w, context.Canceled))

	e, ok := AsErr(fmt.Errorf("x: %w", w))
	require.True(t, ok)
	assert.Equal(t, "sim", e.Message)
	_, ok = AsErr(errors.New("plain"))
	assert.False(t, ok)
}
