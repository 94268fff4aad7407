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
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/recorder"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
	"github.com/zintix-labs/fldr/stats"
)

// simBatch 為 worker 檢查取消與推進進度條的間隔（抽樣次數）。
const simBatch = 4096

// Simulator 以大量抽樣驗證一張表：記錄每個結果的次數與消耗的位元數，產出統計報告。
//
// 所有 worker 共用同一張唯讀表，各自持有獨立 seed 的 Sampler 與 SampleRecorder。
// 第 0 個 worker 使用初始 seed，其餘由 seedMaker 依序派生，因此同一個 seed 與
// worker 數的結果可完整重現。Simulator 本身不是併發安全的。
type Simulator struct {
	DistName  string
	DistId    spec.DID
	ds        *spec.DistSetting
	table     *ddg.Table
	cf        core.PRNGFactory
	initSeed  int64
	seedmaker *seedMaker
	workers   []*Sampler // 跨次模擬保留，繼續同一串亂數
}

func newSimulator(ds *spec.DistSetting, t *ddg.Table, cf core.PRNGFactory) (*Simulator, error) {
	seed, err := core.NewSeed()
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ds, t, cf, seed), nil
}

func newSimulatorWithSeed(ds *spec.DistSetting, t *ddg.Table, cf core.PRNGFactory, seed int64) *Simulator {
	return &Simulator{
		DistName:  ds.Name,
		DistId:    ds.ID,
		ds:        ds,
		table:     t,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		workers:   []*Sampler{newSamplerWithSeed(ds, t, cf, seed)},
	}
}

// Sim 單線模擬：以初始 seed 的 Sampler 連續抽 rounds 次，回傳統計報告與用時。
func (s *Simulator) Sim(rounds int, showpb bool) (*stats.Report, time.Duration, error) {
	return s.SimContext(context.Background(), rounds, 1, showpb)
}

// SimMP 平行執行 mp 個 Sampler，每個抽 rounds 次，合併後回傳統計報告與用時。
func (s *Simulator) SimMP(rounds int, mp int, showpb bool) (*stats.Report, time.Duration, error) {
	return s.SimContext(context.Background(), rounds, mp, showpb)
}

// SimContext 為 Sim / SimMP 的共同實作；每個 worker 每 simBatch 次抽樣檢查一次 ctx，
// ctx 結束時回傳其錯誤（已抽的結果捨棄）。
func (s *Simulator) SimContext(ctx context.Context, rounds, workers int, showpb bool) (*stats.Report, time.Duration, error) {
	if workers <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if rounds < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	for len(s.workers) < workers {
		s.workers = append(s.workers, newSamplerWithSeed(s.ds, s.table, s.cf, s.seedmaker.next()))
	}
	recs := make([]*recorder.SampleRecorder, workers)
	for i := range recs {
		r, err := s.newRecorder()
		if err != nil {
			return nil, 0, err
		}
		recs[i] = r
	}

	bar := pb.StartNew(rounds * workers)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(sp *Sampler, rec *recorder.SampleRecorder) {
			defer wg.Done()
			before := sp.Flips()
			defer func() { rec.AddFlips(sp.Flips() - before) }()
			for done := 0; done < rounds; {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}
				n := min(simBatch, rounds-done)
				for j := 0; j < n; j++ {
					rec.Record(sp.SampleInternal())
				}
				done += n
				bar.Add(n)
			}
		}(s.workers[i], recs[i])
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	select {
	case err := <-errCh:
		return nil, used, errs.Wrap(err, "simulation interrupted")
	default:
	}
	rec, err := recorder.MergeSampleRecorder(recs)
	if err != nil {
		return nil, 0, err
	}
	return rec.Done(), used, nil
}

// InitSeed 回傳模擬器的初始 seed。
func (s *Simulator) InitSeed() int64 {
	return s.initSeed
}

func (s *Simulator) newRecorder() (*recorder.SampleRecorder, error) {
	return recorder.NewSampleRecorder(s.DistName, s.DistId, s.table.Path.String(), s.table.K, s.table.Probs(), s.ds.Labels)
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state，再用可逆 mix63 打散。
//
// 可能被多個 goroutine 同時呼叫（SimMP / TablePool 重建），state 以 CAS 迴圈推進，
// 每次呼叫都取得唯一的下一個 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用可逆的 bit 操作與乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
