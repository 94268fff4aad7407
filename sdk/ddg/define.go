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

// Package ddg 實作 Fast Loaded Dice Roller (FLDR)：把一組離散權重編譯成 DDG 表，
// 再用一串無偏的隨機位元沿著 DDG 樹走訪，取得與權重完全一致的抽樣結果。
//
// 本檔案 (define.go) 定義建表函數共用的泛型約束。
//
// 兩條建表路徑：
//   - 整數路徑 (BuildInt)：權重為非負整數，總和以 uint64 表示。
//   - 浮點路徑 (BuildFloat)：權重為有限非負浮點數，先精確轉為同分母的二進位分數，
//     再以任意長度位元陣列建表 (BuildBits)，全程沒有捨入誤差。

package ddg

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floaters 定義所有底層實現為浮點數型別的集合
type Floaters interface {
	~float32 | ~float64
}

// Numbers 定義所有底層實現為數值型別的集合（整數與浮點數）
type Numbers interface {
	Integers | Floaters
}
