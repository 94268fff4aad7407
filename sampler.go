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
	"sync"

	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
)

// Sampler 把一張唯讀的 DDG 表與一顆專屬的 RNG 核心綁在一起。
//
// 表本身可被任意多個 Sampler 共用；核心則不可共用，因此同一個 Sampler 不應被多 goroutine 同時使用
// （Sample 有鎖保護，SampleInternal 沒有）。併發情境請建立多個 Sampler，
// 或交給 TablePool 管理。
//
// initseed 用於記錄出生時的 seed（追溯/重現的基礎資訊）；完整審計仍以 Core 的 Snapshot/Restore 為準。
type Sampler struct {
	distName string            // 分布名稱（主要用於觀測/日誌）
	distId   spec.DID          // 分布 ID（Catalog 內唯一；ad-hoc 分布為 0）
	ds       *spec.DistSetting // 設定（labels 等顯示資訊）
	table    *ddg.Table        // 共用唯讀表
	core     *core.Core        // RNG 核心
	mu       sync.Mutex        // 保護核心狀態
	initseed int64
}

// newSampler 以 crypto seed 建立 Sampler；對外服務情境避免可預測的 RNG。
func newSampler(ds *spec.DistSetting, t *ddg.Table, cf core.PRNGFactory) (*Sampler, error) {
	seed, err := core.NewSeed()
	if err != nil {
		return nil, err
	}
	return newSamplerWithSeed(ds, t, cf, seed), nil
}

// newSamplerWithSeed 以指定 seed 建立 Sampler。同一張表 + 同一個 seed 得到相同的抽樣序列。
func newSamplerWithSeed(ds *spec.DistSetting, t *ddg.Table, cf core.PRNGFactory, seed int64) *Sampler {
	return &Sampler{
		distName: ds.Name,
		distId:   ds.ID,
		ds:       ds,
		table:    t,
		core:     core.New(cf.New(seed)),
		initseed: seed,
	}
}

// Sample 為主要公開入口：驗證請求、依需要還原核心快照、抽樣並回傳結果與前後快照。
//
// 帶 StartCoreSnap 的請求為回放/續抽：抽完後核心會還原回請求前的狀態，
// 不影響這個 Sampler 自己的串流。
func (s *Sampler) Sample(ctx context.Context, o *dto.Order) (dto.SampleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.valid(o); err != nil {
		return dto.SampleResult{}, err
	}

	startsnap, err := s.SnapshotCore()
	if err != nil {
		return dto.SampleResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}
	rem := startsnap
	replay := len(o.StartCoreSnap) != 0
	if replay {
		startsnap = o.StartCoreSnap
		if err := s.RestoreCore(o.StartCoreSnap); err != nil {
			if e := s.RestoreCore(rem); e != nil {
				return dto.SampleResult{}, errs.NewFatal("fall back err " + e.Error())
			}
			return dto.SampleResult{}, errs.NewWarn("restore core err " + err.Error())
		}
	}

	before := s.core.Flips()
	out := make([]int, o.Count)
	for i := range out {
		idx, err := s.table.TrySample(ctx, s.core)
		if err != nil {
			if replay {
				_ = s.RestoreCore(rem)
			}
			return dto.SampleResult{}, err
		}
		out[i] = idx
	}
	flips := s.core.Flips() - before

	aftersnap, err := s.SnapshotCore()
	if err != nil {
		if e := s.RestoreCore(rem); e != nil {
			return dto.SampleResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.SampleResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}

	if replay {
		if err := s.RestoreCore(rem); err != nil {
			return dto.SampleResult{}, errs.NewFatal("restore core back err " + err.Error())
		}
	}
	return dto.NewSampleResult(s.ds, out, flips, startsnap, aftersnap), nil
}

// Next 抽一個樣本，帶 context 讓呼叫端可以設定逾時。
func (s *Sampler) Next(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.TrySample(ctx, s.core)
}

// SampleInternal 直接走表抽樣，不上鎖、不檢查；常用於模擬器或測試。
//
// 表結構損壞時會 panic（*errs.E）。
func (s *Sampler) SampleInternal() int {
	return s.table.Sample(s.core)
}

func (s *Sampler) valid(o *dto.Order) error {
	if o == nil {
		return errs.NewWarn("nil sample order")
	}
	if o.DistId != 0 && o.DistId != s.distId {
		return errs.NewWarn("dist id is not matched")
	}
	if o.DistName != "" && o.DistName != s.distName {
		return errs.NewWarn("dist name is not matched")
	}
	if o.Count < 1 {
		return errs.NewWarn("count must be positive")
	}
	return nil
}

// Flips 回傳核心自建立或上次還原以來發出的位元數。
func (s *Sampler) Flips() uint64 {
	return s.core.Flips()
}

func (s *Sampler) Table() *ddg.Table {
	return s.table
}

func (s *Sampler) Setting() *spec.DistSetting {
	return s.ds
}

func (s *Sampler) InitSeed() int64 {
	return s.initseed
}

// SnapshotCore 取得核心狀態（含尚未發出的緩衝位元）。
func (s *Sampler) SnapshotCore() ([]byte, error) {
	return s.core.Snapshot()
}

// RestoreCore 還原核心狀態。
func (s *Sampler) RestoreCore(src []byte) error {
	return s.core.Restore(src)
}
