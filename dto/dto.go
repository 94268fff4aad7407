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

package dto

import (
	"github.com/zintix-labs/fldr/corefmt"
	"github.com/zintix-labs/fldr/spec"
)

type SampleResult struct {
	DistName string      `json:"dist"`             // 分布名稱
	DistId   spec.DID    `json:"id"`               // 分布編號
	Samples  []int       `json:"samples"`          // 抽樣結果（結果索引）
	Labels   []string    `json:"labels,omitempty"` // 對應 Samples 的顯示名稱（設定檔有 labels 時才有）
	Flips    uint64      `json:"flips"`            // 本次消耗的隨機位元數
	State    SampleState `json:"sample_state"`     // RNG 狀態
}

type SampleState struct {
	StartCoreSnapB64U string `json:"start_b64u"` // 必回
	AfterCoreSnapB64U string `json:"after_b64u"` // 必回
}

// NewSampleResult 組出回應。samples 不會被複製，呼叫端交出所有權。
func NewSampleResult(ds *spec.DistSetting, samples []int, flips uint64, start, after []byte) SampleResult {
	res := SampleResult{
		DistName: ds.Name,
		DistId:   ds.ID,
		Samples:  samples,
		Flips:    flips,
		State: SampleState{
			StartCoreSnapB64U: corefmt.EncodeBase64URL(start),
			AfterCoreSnapB64U: corefmt.EncodeBase64URL(after),
		},
	}
	if len(ds.Labels) != 0 {
		res.Labels = make([]string, len(samples))
		for i, s := range samples {
			res.Labels[i] = ds.Label(s)
		}
	}
	return res
}
