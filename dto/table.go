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
	"io"
	"net/http"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
)

// Table 為 DDG 表的 JSON 視圖。M、R 以十進位字串輸出，避免超過 JSON 數字精度。
type Table struct {
	Path   string    `json:"path"`
	N      int       `json:"n"`
	K      int       `json:"k"`
	M      string    `json:"m"`
	R      string    `json:"r"`
	H      []int     `json:"h"`
	Leaves [][]int   `json:"leaves"`
	Probs  []float64 `json:"probs"`
	Sole   *int      `json:"sole,omitempty"` // 退化表：單一結果佔全部質量
}

func NewTable(t *ddg.Table) Table {
	out := Table{
		Path:   t.Path.String(),
		N:      t.N,
		K:      t.K,
		M:      t.M.Big().String(),
		R:      "0",
		H:      t.H,
		Leaves: t.Leaves,
		Probs:  t.Probs(),
	}
	if len(t.R) != 0 {
		out.R = t.R.Big().String()
	}
	if i, ok := t.Degenerate(); ok {
		out.Sole = &i
	}
	return out
}

// DecodeDistSetting 讀取 POST body 中的分布設定（JSON），未知欄位會被忽略，
// 讓同一個 body 可以夾帶其他參數（例如 count、seed）。
func DecodeDistSetting(r *http.Request) (*spec.DistSetting, []byte, error) {
	if r == nil || r.Method != http.MethodPost {
		return nil, nil, errs.NewWarn("method not allowed")
	}
	const maxBody = 5 << 20
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, nil, errs.NewWarn("read body failed: " + err.Error())
	}
	ds, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		if errs.KindOf(err) == errs.KindNone {
			return nil, raw, errs.NewWarn(err.Error())
		}
		return nil, raw, err
	}
	return ds, raw, nil
}
