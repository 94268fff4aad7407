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

package fldr

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/fldr/corefmt"
	"github.com/zintix-labs/fldr/demo/demo_configs"
	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
)

func newDemoLab(t *testing.T) *Lab {
	t.Helper()
	lab, err := NewAuto(core.Default(), Configs(demo_configs.FS))
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	return lab
}

func TestNewRequiresInputs(t *testing.T) {
	if _, err := New(nil, Configs(demo_configs.FS)); err == nil {
		t.Fatalf("expected error for nil factory")
	}
	if _, err := New(core.Default(), nil); err == nil {
		t.Fatalf("expected error for missing configs")
	}
}

func TestRegisterAllAndSummary(t *testing.T) {
	lab := newDemoLab(t)
	ids := lab.IDs()
	if len(ids) != 7 {
		t.Fatalf("expected 7 dists, got %v", ids)
	}
	sum, err := lab.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if sum[0].Name != "loaded-die" || sum[0].Items != 5 || sum[0].K != 3 || sum[0].Path != "int" {
		t.Fatalf("unexpected summary %+v", sum[0])
	}
	e, ok := lab.EntryByName("  Float-Skew ")
	if !ok || e.ID != 3 {
		t.Fatalf("lookup by name failed: %+v %v", e, ok)
	}
	tb, err := lab.TableByName("float-skew")
	if err != nil {
		t.Fatal(err)
	}
	if tb.N != 3 || tb.Path.String() != "float" {
		t.Fatalf("unexpected float table n=%d path=%s", tb.N, tb.Path)
	}
	// 同一個分布只建一次表
	again, _ := lab.Table(3)
	if again != tb {
		t.Fatalf("table not cached")
	}
}

func TestRegisterAllFailFast(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"dup id": {
			"a.yaml": {Data: []byte("id: 1\nname: a\nints: [1, 2]\n")},
			"b.yaml": {Data: []byte("id: 1\nname: b\nints: [1, 2]\n")},
		},
		"dup name": {
			"a.yaml": {Data: []byte("id: 1\nname: same\nints: [1, 2]\n")},
			"b.json": {Data: []byte(`{"id": 2, "name": "SAME", "ints": [1, 2]}`)},
		},
		"zero id": {
			"a.yaml": {Data: []byte("name: a\nints: [1, 2]\n")},
		},
		"all zero weights": {
			"a.yaml": {Data: []byte("id: 1\nname: a\nints: [0, 0]\n")},
		},
		"nothing": {
			"README.md": {Data: []byte("# none")},
		},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			lab, err := New(core.Default(), Configs(src))
			if err != nil {
				t.Fatal(err)
			}
			if err := lab.RegisterAll(); err == nil {
				t.Fatalf("expected register error")
			}
			if len(lab.IDs()) != 0 {
				t.Fatalf("catalog partially registered: %v", lab.IDs())
			}
		})
	}

	lab, _ := New(core.Default(), Configs(fstest.MapFS{
		"a.yaml": {Data: []byte("id: 1\nname: a\nints: [0, 0]\n")},
	}))
	err := lab.RegisterAll()
	if !errors.Is(err, errs.ErrInvalidDistribution) {
		t.Fatalf("expected invalid distribution, got %v", err)
	}
}

func TestNotFrozen(t *testing.T) {
	lab, err := New(core.Default(), Configs(demo_configs.FS))
	if err != nil {
		t.Fatal(err)
	}
	if err := lab.RegisterAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := lab.NewSampler(1); err == nil {
		t.Fatalf("expected error before freeze")
	}
	if _, err := lab.Summary(); err == nil {
		t.Fatalf("expected error before freeze")
	}
}

func TestSamplerDeterministic(t *testing.T) {
	lab := newDemoLab(t)
	a, err := lab.NewSamplerWithSeed(1, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := lab.NewSamplerWithSeed(1, 42)
	for i := 0; i < 1000; i++ {
		x, y := a.SampleInternal(), b.SampleInternal()
		if x != y {
			t.Fatalf("diverged at %d: %d vs %d", i, x, y)
		}
		if x < 0 || x >= 5 {
			t.Fatalf("index out of range: %d", x)
		}
	}
	if a.Flips() != b.Flips() || a.InitSeed() != 42 {
		t.Fatalf("flip count mismatch")
	}
}

// TestSamplerReplay 驗證帶起始快照的請求可完整重現，且不影響 Sampler 自己的串流
func TestSamplerReplay(t *testing.T) {
	lab := newDemoLab(t)
	s, _ := lab.NewSamplerWithSeed(1, 7)
	ctx := context.Background()

	first, err := s.Sample(ctx, &dto.Order{DistId: 1, Count: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Labels) != 20 || first.Flips == 0 {
		t.Fatalf("unexpected result %+v", first)
	}
	start, err := corefmt.DecodeBase64URL(first.State.StartCoreSnapB64U)
	if err != nil {
		t.Fatal(err)
	}

	cur, _ := s.SnapshotCore()
	replay, err := s.Sample(ctx, &dto.Order{DistName: "loaded-die", Count: 20, StartCoreSnap: start})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first.Samples, replay.Samples) || first.Flips != replay.Flips {
		t.Fatalf("replay mismatch: %v vs %v", first.Samples, replay.Samples)
	}
	if replay.State.AfterCoreSnapB64U != first.State.AfterCoreSnapB64U {
		t.Fatalf("after snapshot mismatch")
	}
	back, _ := s.SnapshotCore()
	if !slices.Equal(cur, back) {
		t.Fatalf("replay changed sampler stream")
	}
}

func TestSamplerRejectsBadOrder(t *testing.T) {
	lab := newDemoLab(t)
	s, _ := lab.NewSamplerWithSeed(2, 1)
	ctx := context.Background()
	for name, o := range map[string]*dto.Order{
		"nil":       nil,
		"wrong id":  {DistId: 9, Count: 1},
		"wrong nm":  {DistName: "loaded-die", Count: 1},
		"zero":      {DistId: 2},
		"bad state": {DistId: 2, Count: 1, StartCoreSnap: []byte{1, 2, 3}},
	} {
		_, err := s.Sample(ctx, o)
		e, ok := errs.AsErr(err)
		if !ok || e.ErrLv != errs.Warn {
			t.Fatalf("%s: expected warn error, got %v", name, err)
		}
	}
}

func TestSureThingUsesNoFlips(t *testing.T) {
	lab := newDemoLab(t)
	s, _ := lab.NewSamplerWithSeed(7, 3)
	res, err := s.Sample(context.Background(), &dto.Order{DistId: 7, Count: 50})
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range res.Samples {
		if x != 1 {
			t.Fatalf("expected only index 1, got %d", x)
		}
	}
	if res.Flips != 0 {
		t.Fatalf("expected no flips, got %d", res.Flips)
	}
}

func TestSimMatchesWeights(t *testing.T) {
	lab := newDemoLab(t)
	for _, id := range lab.IDs() {
		sim, err := lab.NewSimulatorWithSeed(id, 2025)
		if err != nil {
			t.Fatal(err)
		}
		rep, _, err := sim.Sim(200000, false)
		if err != nil {
			t.Fatal(err)
		}
		if rep.Summary.Samples != 200000 {
			t.Fatalf("id %d: samples %d", id, rep.Summary.Samples)
		}
		for _, it := range rep.Items {
			if math.Abs(it.Observed-it.Expected) > 0.01 {
				t.Fatalf("id %d item %d: observed %.4f expected %.4f", id, it.Index, it.Observed, it.Expected)
			}
		}
		if !rep.Summary.WithinBound {
			t.Fatalf("id %d: avg flips %.3f above bound %.3f", id, rep.Summary.AvgFlips, rep.Summary.FlipBound)
		}
	}
}

func TestSimMP(t *testing.T) {
	lab := newDemoLab(t)
	sim, _ := lab.NewSimulatorWithSeed(4, 99)
	rep, _, err := sim.SimMP(5000, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Samples != 20000 {
		t.Fatalf("expected 20000 samples, got %d", rep.Summary.Samples)
	}
	if rep.Summary.Flips == 0 {
		t.Fatalf("flips not recorded")
	}
	// 重複呼叫不會累積上一次的紀錄
	rep2, _, err := sim.SimMP(100, 2, false)
	if err != nil || rep2.Summary.Samples != 200 {
		t.Fatalf("unexpected second run: %v %+v", err, rep2.Summary)
	}
	if _, _, err := sim.SimMP(10, 0, false); err == nil {
		t.Fatalf("expected error for zero workers")
	}
	if _, _, err := sim.Sim(0, false); err == nil {
		t.Fatalf("expected error for zero rounds")
	}
}

func TestSimulatorByJSON(t *testing.T) {
	lab := newDemoLab(t)
	sim, err := lab.NewSimulatorByJSON([]byte(`{"name": "adhoc", "path": "float", "floats": [0.5, 0.25, 0.25]}`), 5)
	if err != nil {
		t.Fatal(err)
	}
	rep, _, err := sim.Sim(1000, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Items) != 3 || rep.Summary.DistName != "adhoc" {
		t.Fatalf("unexpected report %+v", rep.Summary)
	}
	if _, err := lab.NewSimulatorByYAML([]byte("name: bad\nints: [-1, 2]\n"), 1); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}

func TestRuntime(t *testing.T) {
	lab := newDemoLab(t)
	rt, err := lab.BuildRuntime(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	res, err := rt.Sample(ctx, &dto.Order{DistName: "fair-coin", Count: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.DistId != 2 || len(res.Samples) != 10 || len(res.Labels) != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := rt.Sample(ctx, &dto.Order{DistId: 1, DistName: "fair-coin", Count: 1}); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if _, err := rt.Sample(ctx, &dto.Order{DistId: 99, Count: 1}); err == nil {
		t.Fatalf("expected not found error")
	}

	for _, m := range rt.Metrics() {
		if m.Available != 2 || m.Inflight != 0 {
			t.Fatalf("sampler not returned: %+v", m)
		}
		if m.DistID == 2 && m.Samples != 10 {
			t.Fatalf("samples not counted: %+v", m)
		}
	}

	rt.Close()
	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "closed" {
		t.Fatalf("runtime not closed")
	}
	_, err = rt.Sample(ctx, &dto.Order{DistId: 2, Count: 1})
	if e, ok := errs.AsErr(err); !ok || e.ErrLv != errs.Fatal {
		t.Fatalf("expected fatal after close, got %v", err)
	}
}

func TestTablePoolCanceled(t *testing.T) {
	lab := newDemoLab(t)
	b, err := lab.load(1)
	if err != nil {
		t.Fatal(err)
	}
	p := newTablePool(1, b.ds, b.t, core.Default(), 1)

	// 借走唯一的 Sampler，讓下一個請求只能等到逾時
	s := <-p.pool
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Sample(ctx, &dto.Order{DistId: 1, Count: 1}); err == nil {
		t.Fatalf("expected cancel error")
	}
	p.pool <- s

	if _, err := p.Sample(context.Background(), &dto.Order{DistId: 1, Count: 0}); err == nil {
		t.Fatalf("expected validation error")
	}
	if p.Available() != 1 || p.ReBuild() != 0 {
		t.Fatalf("warn error must not retire sampler")
	}
	p.Close()
	m := p.Metrics()
	if !m.Closed || m.CloseAvail != 1 || m.CloseInflight != 0 {
		t.Fatalf("unexpected close snapshot %+v", m)
	}
}

func TestSeedMakerUnique(t *testing.T) {
	sm := newSeedMaker(123)
	seen := map[int64]struct{}{}
	for i := 0; i < 10000; i++ {
		v := sm.next()
		if v < 0 {
			t.Fatalf("negative seed")
		}
		if _, ok := seen[v]; ok {
			t.Fatalf("duplicate seed at %d", i)
		}
		seen[v] = struct{}{}
	}
}

func TestSimContextCanceled(t *testing.T) {
	lab := newDemoLab(t)
	sim, err := lab.NewSimulatorWithSeed(1, 7)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := sim.SimContext(ctx, 1_000_000, 3, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// 同一個 seed 與 worker 數可重現
	a, _ := lab.NewSimulatorWithSeed(1, 7)
	b, _ := lab.NewSimulatorWithSeed(1, 7)
	ra, _, err := a.SimContext(context.Background(), 3000, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	rb, _, _ := b.SimContext(context.Background(), 3000, 3, false)
	if !slices.Equal(ra.Counts(), rb.Counts()) || ra.Summary.Flips != rb.Summary.Flips {
		t.Fatalf("same seed diverged: %v vs %v", ra.Counts(), rb.Counts())
	}
}
