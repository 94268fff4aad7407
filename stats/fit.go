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

package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha 為適合度檢定的顯著水準。
const DefaultAlpha = 0.01

// FlipSlack 為 FLDR 平均翻轉次數相對熵的上界差距：E[flips] < H + 6。
const FlipSlack = 6.0

// Fit 為 Pearson 卡方適合度檢定結果。
type Fit struct {
	ChiSq  float64 `json:"ChiSq"  yaml:"ChiSq"`
	DF     int     `json:"DF"     yaml:"DF"`
	PValue float64 `json:"PValue" yaml:"PValue"`
	Alpha  float64 `json:"Alpha"  yaml:"Alpha"`
	Pass   bool    `json:"Pass"   yaml:"Pass"`
}

// GoodnessOfFit 以觀測次數與理論機率做卡方檢定。
//
// 機率為 0 的格子不列入自由度；若這種格子出現觀測值，代表抽樣器產生了不可能的結果，
// 直接回傳 ChiSq=+Inf、PValue=0。
func GoodnessOfFit(counts []int, probs []float64, alpha float64) Fit {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	f := Fit{Alpha: alpha}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 || len(counts) != len(probs) {
		f.PValue = 0
		return f
	}

	obs := make([]float64, 0, len(counts))
	exp := make([]float64, 0, len(counts))
	for i, p := range probs {
		if p <= 0 {
			if counts[i] != 0 {
				f.ChiSq = math.Inf(1)
				return f
			}
			continue
		}
		obs = append(obs, float64(counts[i]))
		exp = append(exp, p*float64(total))
	}

	f.DF = len(obs) - 1
	if f.DF <= 0 {
		// 只有一個可能結果，觀測必然吻合
		f.PValue = 1
		f.Pass = true
		return f
	}
	f.ChiSq = stat.ChiSquare(obs, exp)
	f.PValue = distuv.ChiSquared{K: float64(f.DF)}.Survival(f.ChiSq)
	f.Pass = f.PValue >= alpha
	return f
}

// EntropyBits 回傳分布的 Shannon 熵（以 bit 為單位）。
func EntropyBits(probs []float64) float64 {
	return stat.Entropy(probs) / math.Ln2
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}
