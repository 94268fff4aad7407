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

package exact

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/bitarr"
)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func testValues() []float64 {
	xs := append(linspace(0, 1, 100), linspace(1, 10, 100)...)
	for i := 0; i < 10; i++ {
		xs = append(xs, float64(i))
	}
	xs = append(xs,
		0.1, 1.0/3.0, 0.25, 0.13, 1.12, 1e-300, 1e300,
		math.SmallestNonzeroFloat64, math.MaxFloat64, 4503599627370497,
	)
	return xs
}

// TestFromFloat64Exact 驗證分數與 double 的精確值完全相等
func TestFromFloat64Exact(t *testing.T) {
	for _, x := range testValues() {
		f, err := FromFloat64(x)
		require.NoError(t, err, "x=%v", x)

		want := new(big.Rat)
		want.SetFloat64(x)
		assert.Equal(t, 0, want.Cmp(f.Rat()), "x=%v got %s", x, f.Rat().String())

		// Offset 與 Exponent 至多一個非零
		assert.False(t, f.Offset != 0 && f.Exponent != 0, "x=%v", x)
		assert.Equal(t, len(f.Mantissa), f.Width)
	}
}

func TestFromFloat64Shapes(t *testing.T) {
	f, err := FromFloat64(0)
	require.NoError(t, err)
	assert.True(t, f.IsZero())
	assert.Equal(t, Fraction{}, f)

	f, err = FromFloat64(0.25)
	require.NoError(t, err)
	assert.Equal(t, bitarr.Bits{1}, f.Mantissa)
	assert.Equal(t, 2, f.Exponent)
	assert.Equal(t, 0, f.Offset)

	f, err = FromFloat64(8)
	require.NoError(t, err)
	assert.Equal(t, bitarr.Bits{1}, f.Mantissa)
	assert.Equal(t, 3, f.Offset)
	assert.Equal(t, 0, f.Exponent)

	f, err = FromFloat64(3)
	require.NoError(t, err)
	assert.Equal(t, bitarr.Bits{1, 1}, f.Mantissa)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, 0, f.Exponent)
	assert.Equal(t, bitarr.Bits{1, 1}, f.Bits())
}

func TestFromFloat64Invalid(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, -1e-9} {
		_, err := FromFloat64(x)
		require.Error(t, err, "x=%v", x)
		assert.True(t, errors.Is(err, errs.ErrInvalidWeight), "x=%v", x)
	}

	_, err := FromFloats([]float64{1, 2, math.NaN()})
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidWeight, errs.KindOf(err))
	assert.Contains(t, err.Error(), "index=2")
}

// TestNormalizePreservesValues 驗證對齊後數值不變且共享同一個 Exponent
func TestNormalizePreservesValues(t *testing.T) {
	xs := testValues()
	fs, err := FromFloats(xs)
	require.NoError(t, err)

	norm := Normalize(fs)
	require.Len(t, norm, len(fs))
	e := norm[0].Exponent
	for i, f := range norm {
		assert.Equal(t, e, f.Exponent)
		assert.Equal(t, 0, fs[i].Rat().Cmp(f.Rat()), "i=%d x=%v", i, xs[i])
	}
}

func TestAlignSumsToTotal(t *testing.T) {
	xs := []float64{0.25, 0.13, 1.12}
	fs, err := FromFloats(xs)
	require.NoError(t, err)

	nums, e := Align(fs)
	require.Len(t, nums, 3)

	sum := bitarr.Sum(nums...)
	got := new(big.Rat).SetFrac(sum.Big(), new(big.Int).Lsh(big.NewInt(1), uint(e)))

	want := new(big.Rat)
	for _, x := range xs {
		want.Add(want, new(big.Rat).SetFloat64(x))
	}
	assert.Equal(t, 0, want.Cmp(got), "want %s got %s", want, got)

	// 原分數不受 Normalize 影響
	f, _ := FromFloat64(0.25)
	assert.Equal(t, f, fs[0])
}

func TestAlignAllIntegers(t *testing.T) {
	fs, err := FromFloats([]float64{1, 1, 2, 3, 1})
	require.NoError(t, err)
	nums, e := Align(fs)
	assert.Equal(t, 0, e)
	assert.Equal(t, bitarr.Bits{1, 0, 0, 0}, bitarr.Sum(nums...))
}
