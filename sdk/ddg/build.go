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

package ddg

import (
	"math"
	"math/bits"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/bitarr"
	"github.com/zintix-labs/fldr/sdk/exact"
)

// BuildInt 以非負整數權重建立 DDG 表（整數路徑）。
//
// 錯誤（ErrInvalidDistribution 類別，不會產生部分建好的表）：
//   - 權重列表為空。
//   - 任一權重為負。
//   - 權重總和為 0，或超出 uint64 範圍。
//
// 建表流程：
//  1. m = sum(w)，k = ceil(log2(m)) = bits.Len64(m-1)，r = 2^k - m。
//  2. 由最高位 (j=0) 到最低位 (j=k-1)，依索引順序檢查每個權重的第 (k-1-j) 位，
//     為 1 就把索引放到第 j 欄下一個空位，最後以同樣方式檢查 r，放入拒絕值 n。
func BuildInt[T Integers](w []T) (*Table, error) {
	n := len(w)
	if n == 0 {
		return nil, errs.Newk(errs.KindInvalidDistribution, "distribution is empty")
	}

	ws := make([]uint64, n)
	var m uint64
	for i, v := range w {
		if v < 0 {
			return nil, errs.Kindf(errs.KindInvalidDistribution, "negative weight %v at index %d", v, i)
		}
		uv := uint64(v)
		if m > math.MaxUint64-uv {
			return nil, errs.Kindf(errs.KindInvalidDistribution, "total weight overflows uint64 at index %d", i)
		}
		m += uv
		ws[i] = uv
	}
	if m == 0 {
		return nil, errs.Newk(errs.KindInvalidDistribution, "all weights are zero")
	}

	k := bits.Len64(m - 1)
	// k == 64 時 1<<k 溢位為 0，無號減法恰好得到 2^64 - m
	r := uint64(1)<<uint(k) - m

	t := newTable(PathInt, n, k)
	t.fill(
		func(i, j int) bool { return (ws[i]>>uint(k-1-j))&1 == 1 },
		func(j int) bool { return (r>>uint(k-1-j))&1 == 1 },
	)
	t.M = bitarr.FromUint64(m)
	if r != 0 {
		t.R = bitarr.FromUint64(r)
	}
	t.m, t.r, t.fits = m, r, true
	if t.cells == 0 {
		t.sole = soleIndex(n, func(i int) bool { return ws[i] != 0 })
	}
	return t, nil
}

// BuildFloat 以有限非負浮點權重建立 DDG 表（浮點路徑）。
//
// 每個權重先精確轉為二進位分數 (exact.FromFloat64)，對齊到共同分母後交給 BuildBits，
// 結果與「把權重乘上 2^E 後走整數路徑」完全一致。
//
// 錯誤：
//   - 空列表、負權重、全為 0：ErrInvalidDistribution 類別。
//   - NaN / ±Inf：ErrInvalidWeight 類別。
func BuildFloat[T Floaters](w []T) (*Table, error) {
	if len(w) == 0 {
		return nil, errs.Newk(errs.KindInvalidDistribution, "distribution is empty")
	}
	xs := make([]float64, len(w))
	for i, v := range w {
		x := float64(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, errs.Kindf(errs.KindInvalidWeight, "weight must be finite, got %v at index %d", x, i)
		}
		if x < 0 {
			return nil, errs.Kindf(errs.KindInvalidDistribution, "negative weight %v at index %d", x, i)
		}
		xs[i] = x
	}

	fs, err := exact.FromFloats(xs)
	if err != nil {
		return nil, err
	}
	nums, _ := exact.Align(fs)

	t, err := BuildBits(nums)
	if err != nil {
		return nil, err
	}
	t.Path = PathFloat
	return t, nil
}

// BuildBits 以同分母的位元陣列權重建立 DDG 表。
//
// m = Sum(w)；m 為 2 的冪次時 k = len(m)-1 且 r 為空，
// 否則 k = len(m)、r = 2^k - m。
// 權重的位元陣列長度可以不同，以對齊位置 j - (k - len) 讀取，不實際補 0。
func BuildBits(w []bitarr.Bits) (*Table, error) {
	n := len(w)
	if n == 0 {
		return nil, errs.Newk(errs.KindInvalidDistribution, "distribution is empty")
	}
	m := bitarr.Sum(w...)
	if m.IsZero() {
		return nil, errs.Newk(errs.KindInvalidDistribution, "all weights are zero")
	}

	var (
		k int
		r bitarr.Bits
	)
	if m.IsPowerOfTwo() {
		k = len(m) - 1
	} else {
		k = len(m)
		var err error
		r, err = bitarr.Sub(bitarr.Pow2(k), m)
		if err != nil {
			return nil, errs.Wrap(err, "compute reject mass failed")
		}
	}

	t := newTable(PathInt, n, k)
	t.fill(
		func(i, j int) bool { return w[i].At(j, k) == 1 },
		func(j int) bool { return r.At(j, k) == 1 },
	)
	t.M = m
	t.R = r
	t.setMassInt()
	if t.cells == 0 {
		t.sole = soleIndex(n, func(i int) bool { return !w[i].IsZero() })
	}
	return t, nil
}

func newTable(path Path, n, k int) *Table {
	t := &Table{
		Path:   path,
		N:      n,
		K:      k,
		H:      make([]int, k),
		Leaves: make([][]int, n+1),
		sole:   -1,
	}
	for d := range t.Leaves {
		row := make([]int, k)
		for j := range row {
			row[j] = Unused
		}
		t.Leaves[d] = row
	}
	return t
}

// fill 依層填入葉節點；item(i, j) / reject(j) 回傳該值在第 j 層是否為 1。
func (t *Table) fill(item func(i, j int) bool, reject func(j int) bool) {
	for j := 0; j < t.K; j++ {
		d := 0
		for i := 0; i < t.N; i++ {
			if item(i, j) {
				t.Leaves[d][j] = i
				d++
			}
		}
		if reject(j) {
			t.Leaves[d][j] = t.N
			d++
		}
		t.H[j] = d
		t.cells += d
	}
}

// soleIndex 回傳唯一有質量的物品；n == 1 時不需要記錄。
func soleIndex(n int, nonzero func(i int) bool) int {
	if n == 1 {
		return -1
	}
	for i := 0; i < n; i++ {
		if nonzero(i) {
			return i
		}
	}
	return -1
}
