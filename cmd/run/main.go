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

// Command run 為 FLDR 的命令列驅動：讀取權重檔或內建分布，輸出樣本或模擬報告。
//
//	run -n 20 -in weights.txt              # 整數權重，輸出 20 個樣本
//	run -n 20 -in weights.txt -float -write # 浮點權重，並寫出 weights.txt.fldrf
//	run -dist loaded-die -sim -n 1000000 -workers 4
//	run -dist 1 -n 5 -state core.bin       # 從 core.bin 續抽，結束後寫回
//	run -dist loaded-die -n 100000 -cmp     # 與 alias method 比較位元消耗
package main

import (
	"log"

	"github.com/zintix-labs/fldr/sdk/perf"
)

func main() {
	bindVar()
	if err := perf.RunPProf(execute, cfg.pprofmode); err != nil {
		log.Fatal(err)
	}
}
