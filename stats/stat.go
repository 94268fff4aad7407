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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/fldr/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// Confidence 為每個結果的觀測比例信賴水準。
const Confidence = 0.95

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// Report 抽樣模擬報告
type Report struct {
	Summary *SummaryReport `json:"Summary"`
	Items   []ItemReport   `json:"Items"`
	Fit     Fit            `json:"Fit"`
	isDone  bool
}

type SummaryReport struct {
	DistName    string   `json:"DistName"`
	DistId      spec.DID `json:"DistId"`
	Path        string   `json:"Path"`
	K           int      `json:"K"`
	Samples     int      `json:"Samples"`
	Flips       uint64   `json:"Flips"`
	AvgFlips    float64  `json:"AvgFlips"`
	Entropy     float64  `json:"Entropy"`
	FlipBound   float64  `json:"FlipBound"`
	WithinBound bool     `json:"WithinBound"`
}

// ItemReport 單一結果的觀測統計
//
// 紀錄時只累加 Count，Done() 才會換算比例與信賴區間
type ItemReport struct {
	Index    int     `json:"Index"`
	Label    string  `json:"Label"`
	Expected float64 `json:"Expected"`
	Count    int     `json:"Count"`
	Observed float64 `json:"Observed"`
	CI       CI      `json:"CI" yaml:"ci,flow"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// NewReport 以理論機率建立空報告，labels 可為 nil。
func NewReport(name string, id spec.DID, path string, k int, probs []float64, labels []string) *Report {
	items := make([]ItemReport, len(probs))
	for i, p := range probs {
		label := fmt.Sprintf("%d", i)
		if i < len(labels) {
			label = labels[i]
		}
		items[i] = ItemReport{Index: i, Label: label, Expected: p}
	}
	return &Report{
		Summary: &SummaryReport{DistName: name, DistId: id, Path: path, K: k},
		Items:   items,
	}
}

// Add 累加一批觀測結果，counts 長度需與結果數相同。
func (s *Report) Add(counts []int, flips uint64) {
	for i, c := range counts {
		if i < len(s.Items) {
			s.Items[i].Count += c
			s.Summary.Samples += c
		}
	}
	s.Summary.Flips += flips
}

// Counts 回傳每個結果的觀測次數。
func (s *Report) Counts() []int {
	out := make([]int, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Count
	}
	return out
}

// Probs 回傳每個結果的理論機率。
func (s *Report) Probs() []float64 {
	out := make([]float64, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Expected
	}
	return out
}

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 紀錄過程只處理整數計數，請在紀錄完成後呼叫 Done 一次性計算比例、
// 信賴區間、熵與卡方檢定。
func (s *Report) Done() {
	if s.isDone {
		return
	}
	n := s.Summary.Samples
	for i := range s.Items {
		it := &s.Items[i]
		it.Observed, it.CI = proportionCICP(it.Count, n, Confidence)
	}
	probs := s.Probs()
	s.Summary.Entropy = EntropyBits(probs)
	s.Summary.FlipBound = s.Summary.Entropy + FlipSlack
	if n > 0 {
		s.Summary.AvgFlips = float64(s.Summary.Flips) / float64(n)
	}
	s.Summary.WithinBound = s.Summary.AvgFlips < s.Summary.FlipBound
	s.Fit = GoodnessOfFit(s.Counts(), probs, DefaultAlpha)
	s.isDone = true
}

func (s *Report) WriteWith(w io.Writer, rep ReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 將用時與報告表格印到標準輸出。
func (s *Report) StdOut(ut time.Duration) {
	s.Fprint(os.Stdout, ut)
}

// Fprint 以對齊的文字表格輸出報告；ut 為模擬用時，用來計算每秒抽樣數。
func (s *Report) Fprint(w io.Writer, ut time.Duration) {
	s.Done()
	p := message.NewPrinter(lang)
	p.Fprint(w, fmtUsed(p, ut, s.Summary.Samples))
	p.Fprintln(w, renderTable(s.Summary.DistName, s.summaryRows(p)))
	p.Fprintln(w, renderTable("Items", s.itemRows(p)))
}

// ============================================================
// ** 內部方法 **
// ============================================================

type row struct{ key, val string }

func fmtUsed(p *message.Printer, d time.Duration, samples int) string {
	d = d.Abs()
	sec := max(d.Seconds(), 1e-9)
	sps := int(float64(samples) / sec)
	var used string
	switch {
	case d < time.Minute:
		used = p.Sprintf("%.2f seconds", sec)
	case d < time.Hour:
		used = p.Sprintf("%dm %ds", int(d.Minutes()), int(sec)%60)
	default:
		used = p.Sprintf("%dh:%dm:%ds", int(d.Hours()), int(d.Minutes())%60, int(sec)%60)
	}
	return p.Sprintf("used: %s\nsps : %d samples/sec\n", used, sps)
}

func (s *Report) summaryRows(p *message.Printer) []row {
	sm, fit := s.Summary, s.Fit
	return []row{
		{"Dist Name", sm.DistName},
		{"Dist ID", strconv.FormatUint(uint64(sm.DistId), 10)},
		{"Path", sm.Path},
		{"Depth (k)", p.Sprint(sm.K)},
		{"Total Samples", p.Sprint(sm.Samples)},
		{"Total Flips", p.Sprint(sm.Flips)},
		{"Avg Flips", p.Sprintf("%.4f", sm.AvgFlips)},
		{"Entropy", p.Sprintf("%.4f bits", sm.Entropy)},
		{"Flip Bound", p.Sprintf("< %.4f (%t)", sm.FlipBound, sm.WithinBound)},
		{"Chi-Square", p.Sprintf("%.3f (df=%d)", fit.ChiSq, fit.DF)},
		{"P-Value", p.Sprintf("%.4f (pass=%t)", fit.PValue, fit.Pass)},
	}
}

func (s *Report) itemRows(p *message.Printer) []row {
	rows := make([]row, len(s.Items))
	for i, it := range s.Items {
		key := it.Label
		if idx := strconv.Itoa(it.Index); key != idx {
			key = idx + " " + key
		}
		rows[i] = row{key, p.Sprintf("%d  %.4f%% [%.4f%%,%.4f%%] exp %.4f%%",
			it.Count, 100*it.Observed, 100*it.CI.Lo, 100*it.CI.Hi, 100*it.Expected)}
	}
	return rows
}

// renderTable 以顯示寬度（runewidth）對齊兩欄表格，標題置中。
func renderTable(title string, rows []row) string {
	kw, vw := 0, 0
	for _, r := range rows {
		kw = max(kw, runewidth.StringWidth(r.key))
		vw = max(vw, runewidth.StringWidth(r.val))
	}
	inner := kw + vw + 5
	if tw := runewidth.StringWidth(title); tw > inner {
		vw += tw - inner
		inner = tw
	}
	divider := "+" + strings.Repeat("-", kw+2) + "+" + strings.Repeat("-", vw+2) + "+\n"

	var sb strings.Builder
	sb.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	pad := inner - runewidth.StringWidth(title)
	sb.WriteString("|" + strings.Repeat(" ", pad/2) + title + strings.Repeat(" ", pad-pad/2) + "|\n")
	sb.WriteString(divider)
	for _, r := range rows {
		sb.WriteString("| " + runewidth.FillRight(r.key, kw) + " | " + runewidth.FillRight(r.val, vw) + " |\n")
	}
	sb.WriteString(divider)
	return sb.String()
}
