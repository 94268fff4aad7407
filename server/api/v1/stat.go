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

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/server/httperr"
	"github.com/zintix-labs/fldr/stats"
)

// ObservedStat 為外部抽樣結果的統計請求：理論機率與每個結果的觀測次數。
type ObservedStat struct {
	Name   string    `json:"name"`
	Probs  []float64 `json:"probs"`
	Counts []int     `json:"counts"`
	Labels []string  `json:"labels,omitempty"`
	Flips  uint64    `json:"flips"`
	Alpha  float64   `json:"alpha,omitempty"`
}

// Stat 處理 POST /v1/stat：對外部收集的計數做卡方適合度檢定並回傳報告。
func Stat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	dst := new(ObservedStat)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}
	if len(dst.Probs) == 0 || len(dst.Probs) != len(dst.Counts) {
		httperr.Errs(w, errs.NewWarn("probs and counts must have the same non-zero length"))
		return
	}
	if len(dst.Labels) != 0 && len(dst.Labels) != len(dst.Probs) {
		httperr.Errs(w, errs.NewWarn("labels must match probs"))
		return
	}
	for _, c := range dst.Counts {
		if c < 0 {
			httperr.Errs(w, errs.NewWarn("counts must be non-negative"))
			return
		}
	}

	rep := stats.NewReport(dst.Name, 0, "", 0, dst.Probs, dst.Labels)
	rep.Add(dst.Counts, dst.Flips)
	rep.Done()
	if dst.Alpha > 0 {
		rep.Fit = stats.GoodnessOfFit(dst.Counts, dst.Probs, dst.Alpha)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		httperr.Errs(w, err)
	}
}
