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
	"math/big"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/bitarr"
)

// Path 標示建表路徑
type Path uint8

const (
	PathInt Path = iota
	PathFloat
)

var pathName = map[Path]string{
	PathInt:   "int",
	PathFloat: "float",
}

func (p Path) String() string {
	if s, ok := pathName[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePath 解析 "int" / "float"，空字串視為 "int"。
func ParsePath(s string) (Path, error) {
	switch s {
	case "", "int":
		return PathInt, nil
	case "float":
		return PathFloat, nil
	}
	return 0, errs.Warnf("unknown path %q (want int|float)", s)
}

// Unused 為 Leaves 中未使用格子的佔位值，抽樣時永遠不會讀到。
const Unused = -1

// Table 為 DDG 預處理結果，建好後不可變，可被任意多個抽樣者同時讀取。
//
// 欄位：
//   - N：物品數量；Leaves 中的值 N 代表「拒絕，從頭再走」。
//   - K：DDG 樹的層數，K = ceil(log2(M))。
//   - M：權重總和（浮點路徑為對齊到共同分母後的分子總和）。
//   - R：拒絕質量 2^K - M；M 為 2 的冪次時為 nil。
//   - H：長度 K，H[j] 為第 j 層（由最高位算起）的葉節點數。
//   - Leaves：(N+1) × K，第 j 欄的前 H[j] 列依序放入物品索引或 N，其餘為 Unused。
//
// Leaves[d][j] 以「列 = 深度、欄 = 層」定址，與交換格式的列輸出順序一致。
type Table struct {
	Path   Path
	N      int
	K      int
	M      bitarr.Bits
	R      bitarr.Bits
	H      []int
	Leaves [][]int

	m, r  uint64 // M、R 可以用 uint64 表示時的值
	fits  bool
	sole  int // 單一物品佔有 2^K 全部質量時，表中沒有任何物品葉節點，直接回傳此索引
	cells int // sum(H)
}

// MassInt 在 M、R 都可以用 uint64 表示時回傳 (m, r, true)，整數路徑一定成立。
func (t *Table) MassInt() (m, r uint64, ok bool) {
	return t.m, t.r, t.fits
}

// Cells 回傳有值的格子總數 sum(H)。
func (t *Table) Cells() int {
	return t.cells
}

// Degenerate 回傳單一物品佔有全部質量、且該質量恰為 2^K 時的物品索引。
// 此時 DDG 樹沒有任何物品葉節點，抽樣不消耗位元。其他情況回傳 (-1, false)。
func (t *Table) Degenerate() (int, bool) {
	return t.sole, t.sole >= 0
}

// Weights 由 Leaves 還原每個物品的整數權重（以 M 為總和的分子）。
func (t *Table) Weights() []bitarr.Bits {
	acc := t.columnMass()
	out := make([]bitarr.Bits, t.N)
	for i := 0; i < t.N; i++ {
		out[i] = bitarr.FromBig(acc[i])
	}
	if t.sole >= 0 {
		out[t.sole] = bitarr.Trim(t.M)
	} else if t.N == 1 {
		out[0] = bitarr.Trim(t.M)
	}
	return out
}

// Probs 回傳每個物品的機率 weight_i / M（轉為 float64，僅供統計與顯示用）。
func (t *Table) Probs() []float64 {
	m := t.M.Big()
	out := make([]float64, t.N)
	for i, w := range t.Weights() {
		out[i], _ = new(big.Rat).SetFrac(w.Big(), m).Float64()
	}
	return out
}

// columnMass 依 Leaves 累加每個值 (0..N) 在各層的質量：第 j 層貢獻 2^(K-1-j)。
func (t *Table) columnMass() []*big.Int {
	acc := make([]*big.Int, t.N+1)
	for i := range acc {
		acc[i] = new(big.Int)
	}
	for j := 0; j < t.K; j++ {
		for d := 0; d < t.H[j] && d < len(t.Leaves); d++ {
			v := t.Leaves[d][j]
			if v < 0 || v > t.N {
				continue
			}
			acc[v].SetBit(acc[v], t.K-1-j, 1)
		}
	}
	return acc
}

// Validate 重新檢查結構不變量，用於解碼外部表格之後。
//
// 檢查項目：
//   - 維度：len(H) == K，Leaves 為 (N+1) × K。
//   - M 非零；M 為 2 的冪次時 K = len(M)-1 且 R 為空，否則 K = len(M) 且 M + R = 2^K。
//   - 每一欄前 H[j] 列為 [0, N] 內嚴格遞增的值，其餘列為 Unused。
//   - 由 Leaves 還原的物品質量總和等於 M，拒絕質量等於 R。
func (t *Table) Validate() error {
	if t.N < 1 {
		return errs.Kindf(errs.KindStructuralInvariant, "n must be >= 1, got %d", t.N)
	}
	if t.K < 0 || len(t.H) != t.K {
		return errs.Kindf(errs.KindStructuralInvariant, "len(h)=%d does not match k=%d", len(t.H), t.K)
	}
	if len(t.Leaves) != t.N+1 {
		return errs.Kindf(errs.KindStructuralInvariant, "leaves has %d rows, want %d", len(t.Leaves), t.N+1)
	}
	for d, row := range t.Leaves {
		if len(row) != t.K {
			return errs.Kindf(errs.KindStructuralInvariant, "leaves row %d has %d columns, want %d", d, len(row), t.K)
		}
	}

	m := bitarr.Trim(t.M)
	if m.IsZero() {
		return errs.Kindf(errs.KindStructuralInvariant, "total mass is zero")
	}
	if m.IsPowerOfTwo() {
		if t.K != len(m)-1 || !t.R.IsZero() {
			return errs.Kindf(errs.KindStructuralInvariant, "m=%s is a power of two: want k=%d and empty r", m, len(m)-1)
		}
	} else {
		if t.K != len(m) {
			return errs.Kindf(errs.KindStructuralInvariant, "k=%d does not match len(m)=%d", t.K, len(m))
		}
		if bitarr.Cmp(bitarr.Add(m, t.R), bitarr.Pow2(t.K)) != 0 {
			return errs.Kindf(errs.KindStructuralInvariant, "m + r != 2^k (m=%s r=%s k=%d)", m, t.R, t.K)
		}
	}

	cells := 0
	for j := 0; j < t.K; j++ {
		if t.H[j] < 0 || t.H[j] > t.N+1 {
			return errs.Kindf(errs.KindStructuralInvariant, "h[%d]=%d out of range", j, t.H[j])
		}
		prev := -1
		for d := 0; d <= t.N; d++ {
			v := t.Leaves[d][j]
			if d >= t.H[j] {
				if v != Unused {
					return errs.Kindf(errs.KindStructuralInvariant, "leaves[%d][%d]=%d beyond h[%d]", d, j, v, j)
				}
				continue
			}
			if v < 0 || v > t.N || v <= prev {
				return errs.Kindf(errs.KindStructuralInvariant, "leaves[%d][%d]=%d is not an increasing index in [0,%d]", d, j, v, t.N)
			}
			prev = v
		}
		cells += t.H[j]
	}

	acc := t.columnMass()
	if cells == 0 {
		// 單一物品質量為 2^K：表中沒有任何葉節點
		if t.N > 1 && (t.sole < 0 || t.sole >= t.N) {
			return errs.Kindf(errs.KindStructuralInvariant, "table has no leaves and no recorded sole item")
		}
	} else {
		items := new(big.Int)
		for i := 0; i < t.N; i++ {
			items.Add(items, acc[i])
		}
		if items.Cmp(m.Big()) != 0 {
			return errs.Kindf(errs.KindStructuralInvariant, "leaves carry mass %s, want m=%s", items, m.Big())
		}
		if acc[t.N].Cmp(t.R.Big()) != 0 {
			return errs.Kindf(errs.KindStructuralInvariant, "reject leaves carry mass %s, want r=%s", acc[t.N], t.R.Big())
		}
	}
	return nil
}

// Assemble 以外部提供的欄位組出 Table（例如由交換格式解碼），並執行 Validate。
//
// 單一物品佔有 2^K 全部質量的退化表沒有任何葉節點，無法從欄位判斷是哪個物品，
// N > 1 時回傳 ErrInvalidDistribution 類別錯誤。
func Assemble(path Path, n, k int, m, r bitarr.Bits, h []int, leaves [][]int) (*Table, error) {
	t := &Table{
		Path:   path,
		N:      n,
		K:      k,
		M:      bitarr.Trim(m),
		H:      append([]int(nil), h...),
		Leaves: make([][]int, len(leaves)),
		sole:   -1,
	}
	if !r.IsZero() {
		t.R = bitarr.Trim(r)
	}
	for i, row := range leaves {
		t.Leaves[i] = append([]int(nil), row...)
	}
	for _, c := range h {
		t.cells += c
	}
	if t.cells == 0 && n > 1 {
		return nil, errs.Kindf(errs.KindInvalidDistribution,
			"table with n=%d has no leaves; the item holding all mass is not recorded", n)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.setMassInt()
	return t, nil
}

func (t *Table) setMassInt() {
	m, okm := t.M.Uint64()
	r, okr := t.R.Uint64()
	t.m, t.r, t.fits = m, r, okm && okr
}
