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

package recorder

import (
	"fmt"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/spec"
	"github.com/zintix-labs/fldr/stats"
)

// SampleRecorder 抽樣紀錄員
//
// SampleRecorder 只累加整數計數（熱路徑），透過 Done 輸出統計報表。
// 每個 worker 持有自己的 SampleRecorder，結束後以 MergeSampleRecorder 合併。
type SampleRecorder struct {
	DistName string
	DistId   spec.DID
	Path     string
	K        int
	Probs    []float64
	Labels   []string
	Counts   []int
	Flips    uint64
	Samples  int
}

func NewSampleRecorder(name string, id spec.DID, path string, k int, probs []float64, labels []string) (*SampleRecorder, error) {
	s := new(SampleRecorder)
	if len(probs) == 0 {
		return s, errs.NewFatal("sample recorder err : empty probabilities")
	}
	if len(labels) != 0 && len(labels) != len(probs) {
		return s, errs.NewFatal(fmt.Sprintf("sample recorder err : %d labels for %d items", len(labels), len(probs)))
	}
	s.DistName = name
	s.DistId = id
	s.Path = path
	s.K = k
	s.Probs = probs
	s.Labels = labels
	s.Counts = make([]int, len(probs))
	return s, nil
}

func MergeSampleRecorder(r []*SampleRecorder) (*SampleRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge sample record err : nothing to merge")
	}
	r0 := r[0]
	s, err := NewSampleRecorder(r0.DistName, r0.DistId, r0.Path, r0.K, r0.Probs, r0.Labels)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.DistName != r0.DistName || v.DistId != r0.DistId {
			return s, errs.NewFatal("merge sample record err : different distribution")
		}
		if len(v.Counts) != len(s.Counts) {
			return s, errs.NewFatal("merge sample record err : different item count")
		}
		for i, c := range v.Counts {
			s.Counts[i] += c
		}
		s.Flips += v.Flips
		s.Samples += v.Samples
	}
	return s, nil
}

// Record 紀錄一次抽樣結果；索引越界代表抽樣器缺陷，直接 panic。
func (s *SampleRecorder) Record(idx int) {
	s.Counts[idx]++
	s.Samples++
}

// AddFlips 累加本批抽樣消耗的隨機位元數。
func (s *SampleRecorder) AddFlips(n uint64) {
	s.Flips += n
}

func (s *SampleRecorder) Done() *stats.Report {
	report := stats.NewReport(s.DistName, s.DistId, s.Path, s.K, s.Probs, s.Labels)
	report.Add(s.Counts, s.Flips)
	report.Done()
	return report
}
