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
	"context"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
)

// Sample 沿 DDG 樹走訪，回傳 [0, N) 內的物品索引，機率恰為 weight_i / M。
//
// 走訪規則：
//   - 狀態 (d, c) 由 (0, 0) 開始，每次取一個位元 b，d = 2d + (1 - b)。
//   - d < H[c]：到達葉節點 z = Leaves[d][c]。z < N 即為結果；z == N 為拒絕，重設 (0, 0)。
//   - 否則 d -= H[c]，c++ 繼續往下一層。
//
// N == 1 直接回傳 0，不消耗任何位元。
// 表格損壞導致 c 超過 K-1 時 panic（*errs.E，ErrStructuralInvariant 類別）。
//
// Table 本身唯讀；多個 goroutine 同時抽樣時，每個 goroutine 需使用自己的 src。
func (t *Table) Sample(src core.BitSource) int {
	z, err := t.walk(context.Background(), src)
	if err != nil {
		panic(err)
	}
	return z
}

// TrySample 與 Sample 相同，但每次拒絕重來前檢查 ctx，
// 並以錯誤回傳結構不變量的違反，不會 panic。
func (t *Table) TrySample(ctx context.Context, src core.BitSource) (int, error) {
	return t.walk(ctx, src)
}

// SampleN 連續抽樣 count 次。
func (t *Table) SampleN(src core.BitSource, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = t.Sample(src)
	}
	return out
}

func (t *Table) walk(ctx context.Context, src core.BitSource) (int, error) {
	if t.N == 1 {
		return 0, nil
	}
	if t.sole >= 0 {
		return t.sole, nil
	}

	n, k, h, leaves := t.N, t.K, t.H, t.Leaves
	if k == 0 || len(h) < k {
		return -1, errs.Kindf(errs.KindStructuralInvariant, "table with n=%d has no levels", n)
	}
	d, c := 0, 0
	for {
		b := int(src.Flip() & 1)
		d = 2*d + (1 - b)
		if d < h[c] {
			z := leaves[d][c]
			if z < n {
				return z, nil
			}
			d, c = 0, 0
			if err := ctx.Err(); err != nil {
				return -1, errs.Wrap(err, "sample cancelled")
			}
			continue
		}
		d -= h[c]
		c++
		if c >= k {
			return -1, errs.Kindf(errs.KindStructuralInvariant,
				"descent passed level k-1=%d without reaching a leaf", k-1)
		}
	}
}
