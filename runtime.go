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
	"sync/atomic"

	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/spec"
)

// Runtime 為對外服務的資料平面：每個已註冊的分布各一個 TablePool。
type Runtime struct {
	lab *Lab // 只讀引用，用於名稱解析

	pools map[spec.DID]*TablePool
	ids   []spec.DID // 固定順序，用於觀測/列舉

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	poolSize int
}

// Sample 依 Order 的 DistId（或 DistName）找到對應的池並抽樣。
// 兩者都有時必須指向同一個分布。
func (rt *Runtime) Sample(ctx context.Context, o *dto.Order) (dto.SampleResult, error) {
	select {
	case <-ctx.Done():
		return dto.SampleResult{}, errs.NewWarn("sample canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		rt.closed.Store(true)
		return dto.SampleResult{}, errs.NewFatal("runtime closed: " + rt.ClosedReason())
	default:
	}
	if o == nil {
		return dto.SampleResult{}, errs.NewWarn("nil sample order")
	}

	id := o.DistId
	if o.DistName != "" {
		ent, ok := rt.lab.EntryByName(o.DistName)
		if !ok {
			return dto.SampleResult{}, errs.NewWarn("dist name not found")
		}
		if id != 0 && id != ent.ID {
			return dto.SampleResult{}, errs.NewWarn("dist id is not matched dist name")
		}
		id = ent.ID
	}

	p, ok := rt.pools[id]
	if !ok {
		return dto.SampleResult{}, errs.NewWarn("dist id not found")
	}
	return p.Sample(ctx, o)
}

// Metrics 依 ID 順序回傳每個池的觀測快照。
func (rt *Runtime) Metrics() []TablePoolMetrics {
	out := make([]TablePoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		out = append(out, rt.pools[id].Metrics())
	}
	return out
}

func (rt *Runtime) PoolSize() int {
	return rt.poolSize
}

// Close 關閉 runtime 與所有池，可重複呼叫。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
		for _, p := range rt.pools {
			p.closeWithReason(reason)
		}
	})
}

func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
