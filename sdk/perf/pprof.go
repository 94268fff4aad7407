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

// Package perf 包裝 runtime/pprof，供 cmd/run 量測建表與抽樣的熱點。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/fldr/errs"
)

// Dir 為 pprof 檔案寫入路徑。
var Dir = "build/profiling"

// RunPProf 依 mode 決定執行哪種 Profiling："" 直接執行，其餘為 cpu、heap、allocs。
func RunPProf(exe func(), mode string) error {
	switch mode {
	case "":
		exe()
		return nil
	case "cpu":
		return PProfCPU(exe)
	case "heap":
		return PProfHeap(exe)
	case "allocs":
		return PProfAllocs(exe)
	default:
		return errs.Warnf("unknown pprof mode %q (want cpu, heap, allocs)", mode)
	}
}

// PProfCPU 在 exe() 執行期間做 CPU profiling，輸出 cpu.pprof。
//
// 可以作性能分析，也可以拿來做構建時給pgo的優化blueprint
//
// Usage like:
//
//	go run ./cmd/run -in weights.txt -n 1000000 -p cpu
func PProfCPU(exe func()) error {
	f, err := create("cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "failed to start pprof")
	}
	defer pprof.StopCPUProfile()

	exe()
	return nil
}

// PProfHeap 會在 exe() 執行完後，寫出一次 Heap Snapshot（in-use memory）。
// 寫出前先呼叫 runtime.GC()，快照才會貼近 Live Objects。
// 輸出檔：heap.pprof
func PProfHeap(exe func()) error {
	exe()
	runtime.GC()

	f, err := create("heap.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errs.Wrap(err, "failed to write heap profile")
	}
	return nil
}

// PProfAllocs 會在 exe() 後寫出「累積配置」(allocs) Profile，
// 建表時 bitarr 的配置熱點要看這份（搭配 -alloc_space / -alloc_objects）。
func PProfAllocs(exe func()) error {
	exe()

	f, err := create("allocs.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if prof := pprof.Lookup("allocs"); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "failed to write allocs profile")
		}
	}
	return nil
}

func create(name string) (*os.File, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "failed to create pprof dir")
	}
	f, err := os.Create(filepath.Join(Dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "failed to create "+name)
	}
	return f, nil
}
