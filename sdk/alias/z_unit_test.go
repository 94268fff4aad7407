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

package alias

import (
	"math"
	"testing"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
)

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, name string, weights []int64, samples []int, tolerance float64) {
	t.Helper()
	var totalW int64
	for _, w := range weights {
		totalW += w
	}
	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Errorf("[%s] expected 0 samples for index %d (weight 0), got %d", name, i, counts[i])
			}
			continue
		}
		expected := float64(w) / float64(totalW)
		actual := float64(counts[i]) / float64(len(samples))
		if diff := math.Abs(expected - actual); diff > tolerance {
			t.Errorf("[%s] index %d: expected prob %.3f, got %.3f (diff %.3f > tol %.3f)",
				name, i, expected, actual, diff, tolerance)
		}
	}
}

// TestBuildExactMass 驗證每個元素在所有槽位上分到的質量恰為 w*n
func TestBuildExactMass(t *testing.T) {
	cases := map[string][]int64{
		"uniform":  {1, 1, 1, 1},
		"skewed":   {1, 1, 2, 3, 1},
		"zeros":    {0, 5, 0, 3},
		"single":   {7},
		"big":      {1 << 40, 3, 1<<20 + 1},
		"one-huge": {1, 1, 1, 1000000},
	}
	for name, w := range cases {
		tb, err := Build(w)
		if err != nil {
			t.Fatalf("[%s] build: %v", name, err)
		}
		mass := make([]uint64, len(w))
		for j := 0; j < tb.Size; j++ {
			if tb.Prob[j] > tb.Total {
				t.Fatalf("[%s] slot %d prob %d > total %d", name, j, tb.Prob[j], tb.Total)
			}
			mass[j] += tb.Prob[j]
			mass[tb.Aliases[j]] += tb.Total - tb.Prob[j]
		}
		for i := range w {
			if want := uint64(w[i]) * uint64(len(w)); mass[i] != want {
				t.Errorf("[%s] index %d: mass %d want %d", name, i, mass[i], want)
			}
		}
	}
}

func TestBuildInvalid(t *testing.T) {
	cases := []struct {
		name string
		w    []int64
		kind errs.Kind
	}{
		{"empty", nil, errs.KindInvalidDistribution},
		{"all zero", []int64{0, 0}, errs.KindInvalidDistribution},
		{"negative", []int64{1, -1}, errs.KindInvalidDistribution},
		{"sum overflow", []int64{math.MaxInt64, math.MaxInt64, 2}, errs.KindInvalidDistribution},
		{"scale overflow", []int64{math.MaxInt64, 1}, errs.KindInvalidDistribution},
	}
	for _, c := range cases {
		_, err := Build(c.w)
		if err == nil {
			t.Fatalf("[%s] expected error", c.name)
		}
		if errs.KindOf(err) != c.kind {
			t.Errorf("[%s] kind %v want %v (%v)", c.name, errs.KindOf(err), c.kind, err)
		}
	}
}

func TestPickMatchesWeights(t *testing.T) {
	w := []int64{1, 0, 2, 3, 10}
	tb, err := Build(w)
	if err != nil {
		t.Fatal(err)
	}
	c := core.New(core.Default().New(42))
	samples := make([]int, 100000)
	for i := range samples {
		samples[i] = tb.Pick(c)
	}
	checkDistribution(t, "pick", w, samples, 0.01)
}

func TestUniform(t *testing.T) {
	c := core.New(core.Default().New(1))
	if Uniform(c, 1) != 0 || c.Flips() != 0 {
		t.Fatalf("uniform(1) should be free, flips=%d", c.Flips())
	}
	counts := make([]int, 6)
	for i := 0; i < 60000; i++ {
		v := Uniform(c, 6)
		if v >= 6 {
			t.Fatalf("out of range %d", v)
		}
		counts[v]++
	}
	for i, n := range counts {
		if n < 9500 || n > 10500 {
			t.Errorf("bucket %d: %d", i, n)
		}
	}

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for n=0")
		}
	}()
	Uniform(c, 0)
}

// TestDDGUsesFewerFlips 比較同一組權重下兩種方法每次抽樣平均消耗的位元數
func TestDDGUsesFewerFlips(t *testing.T) {
	w := []int64{1, 1, 2, 3, 1}
	at, err := Build(w)
	if err != nil {
		t.Fatal(err)
	}
	dt, err := ddg.BuildInt(w)
	if err != nil {
		t.Fatal(err)
	}
	const rounds = 20000
	ca := core.New(core.Default().New(3))
	cd := core.New(core.Default().New(3))
	for i := 0; i < rounds; i++ {
		at.Pick(ca)
		dt.Sample(cd)
	}
	a := float64(ca.Flips()) / rounds
	d := float64(cd.Flips()) / rounds
	if d >= a {
		t.Fatalf("ddg flips/sample %.3f not below alias %.3f", d, a)
	}
}

func BenchmarkPick(b *testing.B) {
	tb, _ := Build([]int64{1, 1, 2, 3, 1})
	c := core.New(core.Default().New(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Pick(c)
	}
}

func BenchmarkDDGSample(b *testing.B) {
	tb, _ := ddg.BuildInt([]int64{1, 1, 2, 3, 1})
	c := core.New(core.Default().New(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb.Sample(c)
	}
}
