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

// Package bitarr 提供任意長度的無號二進位整數（位元陣列）加減法。
//
// 表示法：
//   - Bits 由最高位 (MSB) 開始排列，每個元素為 0 或 1。
//   - 長度不固定，兩個運算元的長度可以不同，一律以最低位對齊。
//   - 運算結果一律為「修剪後」形式：沒有前導 0；零以單一元素 [0] 表示，不會是空陣列。
//
// 所有運算都是純函數：永遠配置新的輸出，不修改輸入。
// DDG 建表會重複讀取同一個權重陣列，因此這個保證是必要的。
package bitarr

import (
	"math/big"
	"math/bits"
	"strings"

	"github.com/zintix-labs/fldr/errs"
)

// Bits 為 MSB 在前的位元陣列，視為無號大端整數。
type Bits []uint8

// Zero 回傳零的標準表示 [0]。
func Zero() Bits {
	return Bits{0}
}

// Pow2 回傳 2^k，長度為 k+1。
func Pow2(k int) Bits {
	if k < 0 {
		panic("bitarr: negative exponent")
	}
	x := make(Bits, k+1)
	x[0] = 1
	return x
}

// FromUint64 將 v 轉為修剪後的位元陣列。
func FromUint64(v uint64) Bits {
	n := bits.Len64(v)
	if n == 0 {
		return Zero()
	}
	x := make(Bits, n)
	for i := 0; i < n; i++ {
		x[n-1-i] = uint8((v >> uint(i)) & 1)
	}
	return x
}

// FromBig 將非負的 big.Int 轉為位元陣列；負數會 panic。
func FromBig(v *big.Int) Bits {
	if v.Sign() < 0 {
		panic("bitarr: negative big.Int")
	}
	n := v.BitLen()
	if n == 0 {
		return Zero()
	}
	x := make(Bits, n)
	for i := 0; i < n; i++ {
		x[n-1-i] = uint8(v.Bit(i))
	}
	return x
}

// Parse 解析 "1 0 1" 或 "101" 形式的字串，空字串得到空陣列。
// 解析結果不做修剪，保留原始寬度。
func Parse(s string) (Bits, error) {
	s = strings.Join(strings.Fields(s), "")
	x := make(Bits, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
		case '1':
			x[i] = 1
		default:
			return nil, errs.Warnf("bitarr: invalid digit %q at %d", s[i], i)
		}
	}
	return x, nil
}

// Trim 去除前導 0；全零或空陣列得到 [0]。
func Trim(x Bits) Bits {
	j := 0
	for j < len(x) && x[j] == 0 {
		j++
	}
	if j == len(x) {
		return Zero()
	}
	out := make(Bits, len(x)-j)
	copy(out, x[j:])
	return out
}

// Add 以最低位對齊做漣波進位加法，結果寬度先取 max(len(a),len(b))+1 再修剪。
func Add(a, b Bits) Bits {
	la, lb := len(a), len(b)
	l := max(la, lb)
	out := make(Bits, l+1)
	var c uint8
	for i := 1; i <= l; i++ {
		ai := a.digit(la - i)
		bi := b.digit(lb - i)
		out[l+1-i] = ai ^ bi ^ c
		c = (ai & bi) | (ai & c) | (bi & c)
	}
	out[0] = c
	return trimOwned(out)
}

// Sum 由左至右累加所有運算元；沒有運算元時回傳 [0]。
func Sum(xs ...Bits) Bits {
	if len(xs) == 0 {
		return Zero()
	}
	acc := Trim(xs[0])
	for _, x := range xs[1:] {
		acc = Add(acc, x)
	}
	return acc
}

// Sub 以漣波借位計算 a-b。前置條件 value(a) >= value(b)，
// 違反時回傳 ErrArithmeticUnderflow 類別的錯誤。
func Sub(a, b Bits) (Bits, error) {
	la, lb := len(a), len(b)
	l := max(la, lb)
	out := make(Bits, l)
	var borrow uint8
	for i := 1; i <= l; i++ {
		ai := a.digit(la - i)
		bi := b.digit(lb - i)
		out[l-i] = ai ^ bi ^ borrow
		borrow = ((ai ^ 1) & bi) | ((ai ^ bi ^ 1) & borrow)
	}
	if borrow != 0 {
		return nil, errs.Kindf(errs.KindArithmeticUnderflow, "subtract %s - %s", a, b)
	}
	return trimOwned(out), nil
}

// Cmp 比較兩者的數值大小（忽略前導 0），回傳 -1、0、+1。
func Cmp(a, b Bits) int {
	a, b = a.significant(), b.significant()
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// At 回傳 x 對齊到 k 位寬時第 j 個位元（j=0 為最高位）。
//
// 對齊位置為 idx = j - (k - len(x))；idx < 0 代表虛擬的前導 0。
// 用這個方式定址可以避免為每個權重實際配置 k 位寬的補零陣列。
func (x Bits) At(j, k int) uint8 {
	idx := j - (k - len(x))
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx] & 1
}

// BitLen 回傳有效位數（不含前導 0），零為 0。
func (x Bits) BitLen() int {
	return len(x.significant())
}

// IsZero 判斷數值是否為零（空陣列也視為零）。
func (x Bits) IsZero() bool {
	for _, b := range x {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsPowerOfTwo 判斷數值是否恰有一個位元為 1。
func (x Bits) IsPowerOfTwo() bool {
	ones := 0
	for _, b := range x {
		ones += int(b & 1)
	}
	return ones == 1
}

// Uint64 在數值可以用 uint64 表示時回傳 (v, true)。
func (x Bits) Uint64() (uint64, bool) {
	s := x.significant()
	if len(s) > 64 {
		return 0, false
	}
	var v uint64
	for _, b := range s {
		v = v<<1 | uint64(b&1)
	}
	return v, true
}

// Big 回傳對應的 big.Int。
func (x Bits) Big() *big.Int {
	v := new(big.Int)
	for _, b := range x {
		v.Lsh(v, 1)
		if b&1 == 1 {
			v.SetBit(v, 0, 1)
		}
	}
	return v
}

// Clone 回傳複本，nil 仍為 nil。
func (x Bits) Clone() Bits {
	if x == nil {
		return nil
	}
	out := make(Bits, len(x))
	copy(out, x)
	return out
}

// Ints 以 []int 形式回傳，供序列化使用。
func (x Bits) Ints() []int {
	out := make([]int, len(x))
	for i, b := range x {
		out[i] = int(b)
	}
	return out
}

// String 回傳 "101" 形式；空陣列為 ""。
func (x Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(x))
	for _, b := range x {
		sb.WriteByte('0' + (b & 1))
	}
	return sb.String()
}

func (x Bits) digit(i int) uint8 {
	if i < 0 {
		return 0
	}
	return x[i] & 1
}

func (x Bits) significant() Bits {
	j := 0
	for j < len(x) && x[j] == 0 {
		j++
	}
	return x[j:]
}

// trimOwned 修剪由本包新配置的陣列，可直接回傳子切片。
func trimOwned(x Bits) Bits {
	j := 0
	for j < len(x) && x[j] == 0 {
		j++
	}
	if j == len(x) {
		return Zero()
	}
	return x[j:]
}
