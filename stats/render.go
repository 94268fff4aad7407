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

package stats

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ReportRender 將報告寫成某種外部格式。
type ReportRender interface {
	Write(w io.Writer, r *Report) error
}

// RenderFunc 讓一般函數滿足 ReportRender。
type RenderFunc func(w io.Writer, r *Report) error

func (f RenderFunc) Write(w io.Writer, r *Report) error { return f(w, r) }

var renders = map[string]ReportRender{
	"json": RenderFunc(writeJSON),
	"yaml": RenderFunc(writeYAML),
	"yml":  RenderFunc(writeYAML),
	"csv":  RenderFunc(writeCSV),
}

// RenderByName 依名稱取得渲染器：json | yaml | csv，未知名稱回傳 nil。
func RenderByName(name string) ReportRender {
	return renders[name]
}

func writeJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// writeYAML 讓純量序列（例如 CI 或機率列）以 [a, b] 的 flow style 輸出，
// 含有 mapping 或子序列的序列維持區塊展開。
func writeYAML(w io.Writer, r *Report) error {
	var root yaml.Node
	if err := root.Encode(r); err != nil {
		return err
	}
	flowScalarSeqs(&root)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return err
	}
	return enc.Close()
}

func flowScalarSeqs(n *yaml.Node) {
	scalarOnly := true
	for _, c := range n.Content {
		flowScalarSeqs(c)
		if c.Kind != yaml.ScalarNode {
			scalarOnly = false
		}
	}
	if n.Kind == yaml.SequenceNode && scalarOnly {
		n.Style = yaml.FlowStyle
	}
}

var csvHeader = []string{"index", "label", "expected", "count", "observed", "ci_lo", "ci_hi"}

// writeCSV 只輸出每個結果的一列統計，摘要與檢定請用 json / yaml。
func writeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, it := range r.Items {
		row := []string{
			strconv.Itoa(it.Index), it.Label, f(it.Expected),
			strconv.Itoa(it.Count), f(it.Observed), f(it.CI.Lo), f(it.CI.Hi),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
