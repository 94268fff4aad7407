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

// Package exact 將有限的 IEEE double 無損轉換為「整數 / 2 的冪次」分數，
// 並把一組分數對齊到同一個分母，讓浮點權重可以用整數的方式建表。
//
// 轉換流程：
//  1. frexp 拆成尾數 ∈ [0.5, 1) 與二進位指數。
//  2. 尾數不是整數時就乘 2、指數減 1（乘 2 在 double 中是精確運算）。
//  3. 尾數成為整數後轉為位元陣列；剩餘指數為正代表尾端補 0（Offset），
//     否則其絕對值為分母的冪次（Exponent）。
//
// 對齊：E = max(Exponent_i)，每個分數尾端再補 (E - Exponent_i) 個 0。
// 這是乘上 2 的冪次，不會有任何捨入。
package exact

import (
	"math"
	"math/big"
	"strconv"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/bitarr"
)

// MaxDoublings 為尾數倍增次數上限。任何有限 double 的二進位小數位數都遠小於此值
// （次正規數最多 1074 位，但 frexp 已先正規化，實際最多 53 次）。
const MaxDoublings = 1024

// Fraction 為一個權重的精確二進位分數表示。
//
//	value = bitsToInt(Mantissa) * 2^Offset / 2^Exponent
//
// 對齊前 Offset 與 Exponent 至多一個非零；對齊後所有分數共享同一個 Exponent。
type Fraction struct {
	Mantissa bitarr.Bits // MSB 在前、無前導 0；零為 nil
	Width    int         // Mantissa 的有效位數
	Offset   int         // 尾端補 0 的個數
	Exponent int         // 分母 2 的冪次
}

// FromFloat64 將 x 轉為精確分數。
//
// 錯誤：
//   - x 為 NaN、±Inf 或負數：ErrInvalidWeight 類別。
//   - 倍增超過 MaxDoublings：ErrConversionDivergence 類別（有限 double 不應發生）。
func FromFloat64(x float64) (Fraction, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Fraction{}, errs.Kindf(errs.KindInvalidWeight, "weight must be finite, got %v", x)
	}
	if x < 0 {
		return Fraction{}, errs.Kindf(errs.KindInvalidWeight, "weight must be non-negative, got %v", x)
	}
	if x == 0 {
		return Fraction{}, nil
	}

	frac, exp := math.Frexp(x)
	i := 0
	for frac != math.Floor(frac) {
		if i >= MaxDoublings {
			return Fraction{}, errs.Kindf(errs.KindConversionDivergence,
				"%v did not become integral after %d doublings", x, MaxDoublings)
		}
		frac *= 2
		exp--
		i++
	}

	// frac 此時為 [1, 2^53] 內的整數，可以精確轉為 uint64
	mantissa := bitarr.FromUint64(uint64(frac))
	f := Fraction{Mantissa: mantissa, Width: len(mantissa)}
	if exp > 0 {
		f.Offset = exp
	} else {
		f.Exponent = -exp
	}
	return f, nil
}

// IsZero 判斷分數是否為零。
func (f Fraction) IsZero() bool {
	return f.Width == 0
}

// Bits 回傳分子：Mantissa 後接 Offset 個 0，長度 Width+Offset。
func (f Fraction) Bits() bitarr.Bits {
	out := make(bitarr.Bits, f.Width+f.Offset)
	copy(out, f.Mantissa)
	return out
}

// Rat 回傳精確的有理數值。
func (f Fraction) Rat() *big.Rat {
	num := f.Mantissa.Big()
	num.Lsh(num, uint(f.Offset))
	den := new(big.Int).Lsh(big.NewInt(1), uint(f.Exponent))
	return new(big.Rat).SetFrac(num, den)
}

// Normalize 將所有分數對齊到共同分母 2^E，E = max(Exponent_i)，回傳新的切片。
func Normalize(fs []Fraction) []Fraction {
	e := 0
	for _, f := range fs {
		e = max(e, f.Exponent)
	}
	out := make([]Fraction, len(fs))
	for i, f := range fs {
		out[i] = Fraction{
			Mantissa: f.Mantissa.Clone(),
			Width:    f.Width,
			Offset:   f.Offset + (e - f.Exponent),
			Exponent: e,
		}
	}
	return out
}

// Align 對齊後回傳每個分數的分子位元陣列與共同的分母冪次 E。
// 所有分子都以 2^E 為分母，因此可以直接相加。
func Align(fs []Fraction) ([]bitarr.Bits, int) {
	norm := Normalize(fs)
	out := make([]bitarr.Bits, len(norm))
	e := 0
	for i, f := range norm {
		out[i] = f.Bits()
		e = f.Exponent
	}
	return out, e
}

// FromFloats 依序轉換所有權重，遇到第一個錯誤即停止，錯誤帶上索引。
func FromFloats(xs []float64) ([]Fraction, error) {
	out := make([]Fraction, len(xs))
	for i, x := range xs {
		f, err := FromFloat64(x)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "convert weight failed", "index="+strconv.Itoa(i))
		}
		out[i] = f
	}
	return out, nil
}
