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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
)

// TablePool 管理「某一個分布」的所有 Sampler。
//
// 表只建一次、所有 Sampler 共用；池子實際出借的是各自獨立的 RNG 核心。
//  1. pool：可出借的 Sampler。
//  2. broken：抽樣時 panic 或回報 Fatal 的 Sampler，移出後補上一個新 seed 的 Sampler。
//
// broken 滿代表短時間內連續故障，池子會進入關閉狀態交給上層處理。
type TablePool struct {
	distName      string
	distId        spec.DID
	ds            *spec.DistSetting
	table         *ddg.Table
	cf            core.PRNGFactory
	initSeed      int64
	seedMaker     *seedMaker
	pool          chan *Sampler
	broken        chan *Sampler
	done          chan struct{} // 關閉後不再允許出借/歸還/補充
	closeOnce     sync.Once
	poolsize      int
	rebuild       atomic.Int32 // 補充次數
	inflight      atomic.Int32 // 出借中
	panics        atomic.Int32
	fatals        atomic.Int32
	flips         atomic.Uint64 // 累計消耗位元
	samples       atomic.Uint64 // 累計樣本數
	closeReason   atomic.Value  // string
	closeInflight atomic.Int32  // 關閉當下 inflight（快照）
	closeAvail    atomic.Int32  // 關閉當下 len(pool)
	closeBroken   atomic.Int32  // 關閉當下 len(broken)
}

// newTablePool 建立指定分布的抽樣池，n 至少為 1。
func newTablePool(n int, ds *spec.DistSetting, t *ddg.Table, cf core.PRNGFactory, seed int64) *TablePool {
	n = max(1, n)
	p := &TablePool{
		distName:  ds.Name,
		distId:    ds.ID,
		ds:        ds,
		table:     t,
		cf:        cf,
		initSeed:  seed,
		seedMaker: newSeedMaker(seed),
		pool:      make(chan *Sampler, n),
		broken:    make(chan *Sampler, 100),
		done:      make(chan struct{}),
		poolsize:  n,
	}

	p.closeReason.Store("")
	p.closeInflight.Store(-1)
	p.closeAvail.Store(-1)
	p.closeBroken.Store(-1)

	for i := 0; i < n; i++ {
		p.pool <- newSamplerWithSeed(ds, t, cf, p.seedMaker.next())
	}
	return p
}

// Close 進入關閉狀態，之後的 Sample 直接回錯誤。
func (p *TablePool) Close() {
	p.closeWithReason("closed")
}

func (p *TablePool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeWithReason 進入關閉狀態並記錄原因，reason 只會被寫入一次。
func (p *TablePool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		p.closeInflight.Store(p.inflight.Load())
		p.closeAvail.Store(int32(len(p.pool)))
		p.closeBroken.Store(int32(len(p.broken)))
		close(p.done)
	})
}

// isFatalErr 判斷錯誤是否代表 Sampler 狀態不可信。
// 請求類錯誤（Warn）與逾時不淘汰 Sampler。
func isFatalErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if e, ok := errs.AsErr(err); ok {
		return e.ErrLv == errs.Fatal
	}
	return false
}

// Sample 借出一個 Sampler 執行抽樣，結束後歸還或淘汰。
func (p *TablePool) Sample(ctx context.Context, o *dto.Order) (res dto.SampleResult, err error) {
	var s *Sampler
	borrowed := false
	select {
	case <-p.done:
		return res, errs.NewFatal("table pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return res, errs.NewWarn("sample canceled/timeout: " + ctx.Err().Error())
	case s = <-p.pool:
		borrowed = true
		p.inflight.Add(1)
	}

	if s == nil {
		return res, errs.NewFatal("table pool got nil sampler")
	}

	var isPanic bool

	defer func() {
		if borrowed {
			p.inflight.Add(-1)
		}
		if r := recover(); r != nil {
			isPanic = true
			p.panics.Add(1)
			err = errs.NewFatal(fmt.Sprintf("sampler %s panic : %v", p.distName, r))
		}

		if p.Closed() {
			return
		}

		if isPanic || isFatalErr(err) {
			if !isPanic {
				p.fatals.Add(1)
			}
			select {
			case p.broken <- s:
			default:
				p.closeWithReason("overwhelmed_by_failures")
				if err == nil {
					err = errs.NewFatal("table pool overwhelmed by failures")
				}
				return
			}

			fresh := newSamplerWithSeed(p.ds, p.table, p.cf, p.seedMaker.next())
			p.rebuild.Add(1)
			select {
			case <-p.done:
			case p.pool <- fresh:
			}
			return
		}

		// 非致命錯誤：Sampler 仍健康，歸還並原樣回傳 err
		select {
		case <-p.done:
		case p.pool <- s:
		}
	}()

	out, sErr := s.Sample(ctx, o)
	if sErr != nil {
		err = sErr
		return
	}
	p.flips.Add(out.Flips)
	p.samples.Add(uint64(len(out.Samples)))
	res = out
	return
}

func (p *TablePool) PoolSize() int {
	return p.poolsize
}

func (p *TablePool) Inflight() int {
	return int(p.inflight.Load())
}

func (p *TablePool) ReBuild() int {
	return int(p.rebuild.Load())
}

func (p *TablePool) ClosedReason() string {
	if v := p.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (p *TablePool) Panics() int {
	return int(p.panics.Load())
}

func (p *TablePool) Fatals() int {
	return int(p.fatals.Load())
}

// Available 回傳當下可出借的 Sampler 數。高併發下為近似值。
func (p *TablePool) Available() int {
	return len(p.pool)
}

// TablePoolMetrics 為拉取式的觀測快照，不綁任何 metrics SDK。
//
// Available 與 BrokenBacklog 來自 len(chan)，高併發下是近似值。
// Close* 欄位只在關閉時寫入一次，尚未關閉為 -1。
type TablePoolMetrics struct {
	DistName string   `json:"dist_name"`
	DistID   spec.DID `json:"dist_id"`

	PoolSize      int     `json:"pool_size"`
	Available     int     `json:"available"`
	Inflight      int     `json:"inflight"`
	BrokenBacklog int     `json:"broken_backlog"`
	Rebuild       int     `json:"rebuild"`
	Panics        int     `json:"panics"`
	Fatals        int     `json:"fatals"`
	Samples       uint64  `json:"samples"`
	Flips         uint64  `json:"flips"`
	AvgFlips      float64 `json:"avg_flips"`
	Closed        bool    `json:"closed"`
	CloseReason   string  `json:"close_reason"`

	CloseInflight int `json:"close_inflight"`
	CloseAvail    int `json:"close_avail"`
	CloseBroken   int `json:"close_broken"`
}

func (p *TablePool) Metrics() TablePoolMetrics {
	m := TablePoolMetrics{
		DistName:      p.distName,
		DistID:        p.distId,
		PoolSize:      p.poolsize,
		Available:     len(p.pool),
		Inflight:      int(p.inflight.Load()),
		BrokenBacklog: len(p.broken),
		Rebuild:       int(p.rebuild.Load()),
		Panics:        int(p.panics.Load()),
		Fatals:        int(p.fatals.Load()),
		Samples:       p.samples.Load(),
		Flips:         p.flips.Load(),
		Closed:        p.Closed(),
		CloseReason:   p.ClosedReason(),
		CloseInflight: int(p.closeInflight.Load()),
		CloseAvail:    int(p.closeAvail.Load()),
		CloseBroken:   int(p.closeBroken.Load()),
	}
	if m.Samples > 0 {
		m.AvgFlips = float64(m.Flips) / float64(m.Samples)
	}
	return m
}
