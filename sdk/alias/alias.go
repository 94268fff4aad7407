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

// Package alias 為 Vose Alias Method 的整數版本，作為 DDG 抽樣的對照組。
//
// 與 DDG 相同，亂數只來自 core.BitSource 的位元；均勻整數以拒絕法取得，
// 因此兩者的 Flips 計數可以直接比較（每次抽樣消耗的亂數位元數）。
//
// 實作細節：
//   - 採用全整數運算 (Integer Scaling)，抽樣結果的機率與權重完全一致。
//   - 建表時檢查 n*total 是否溢位 uint64。
package alias

import (
	"math/bits"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
)

// Table 是 O(1) 加權抽樣結構。
//
// 結構欄位說明：
//   - Prob: 每個槽位的「調整後機率」，分母為 Total。
//   - Aliases: 別名索引，Prob 不足的部分由別名補足。
//   - Size: 槽位數量，即元素數量。
//   - Total: 權重總和。
//
// 抽樣時先以均勻整數選槽位，再以 [0, Total) 的均勻整數決定是自己還是別名。
type Table struct {
	Prob    []uint64
	Aliases []int
	Size    int
	Total   uint64
}

// Build 根據非負整數權重建表，權重不需事先正規化。
//
// 處理流程：
//  1. 將每個權重乘以 n 做整數 scaling。
//  2. 依 scaled 權重與 total 的大小分到 small 或 large。
//  3. 從兩桶各取一個 s, l，把 l 指派為 s 的 alias，l 扣掉補給 s 的部分後重新分類。
//  4. 重複直到任一桶為空；剩下的槽位機率恰為 total。
func Build(weights []int64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, errs.Kindf(errs.KindInvalidDistribution, "alias: no weights")
	}
	var total uint64
	for i, w := range weights {
		if w < 0 {
			return nil, errs.Kindf(errs.KindInvalidDistribution, "alias: negative weight %d at index %d", w, i)
		}
		var carry uint64
		total, carry = bits.Add64(total, uint64(w), 0)
		if carry != 0 {
			return nil, errs.Kindf(errs.KindInvalidDistribution, "alias: total weight overflows uint64")
		}
	}
	if total == 0 {
		return nil, errs.Kindf(errs.KindInvalidDistribution, "alias: all weights are zero")
	}
	if hi, _ := bits.Mul64(total, uint64(n)); hi != 0 {
		return nil, errs.Kindf(errs.KindInvalidDistribution, "alias: weights too large for %d items", n)
	}

	prob := make([]uint64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		prob[i] = uint64(w) * uint64(n)
		aliases[i] = i
		if prob[i] < total {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		// 維持 sum(prob) = total * n
		prob[l] = prob[l] - (total - prob[s])
		if prob[l] < total {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	for _, i := range append(small, large...) {
		prob[i] = total
	}

	return &Table{Prob: prob, Aliases: aliases, Size: n, Total: total}, nil
}

// Pick 抽取一個索引。
func (t *Table) Pick(src core.BitSource) int {
	idx := int(Uniform(src, uint64(t.Size)))
	if Uniform(src, t.Total) < t.Prob[idx] {
		return idx
	}
	return t.Aliases[idx]
}

// Uniform 以拒絕法回傳 [0, n) 的均勻整數：每輪取 bitlen(n-1) 個位元，超出範圍就重抽。
// n 為 1 時不消耗位元；n 為 0 會 panic。
func Uniform(src core.BitSource, n uint64) uint64 {
	if n == 0 {
		panic("alias: uniform over empty range")
	}
	k := bits.Len64(n - 1)
	for {
		var v uint64
		for i := 0; i < k; i++ {
			v = v<<1 | uint64(src.Flip())
		}
		if v < n {
			return v
		}
	}
}
