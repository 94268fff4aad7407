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
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/fldr/ddgfmt"
	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/server/httperr"
)

// Preprocess 處理 POST /v1/preprocess：依上傳的權重建表。
//
// 預設回傳 JSON（dto.Table）；?format=text 回傳 DDG 交換格式的文字表。
func Preprocess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ds, _, err := dto.DecodeDistSetting(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	t, err := ds.Build()
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(dto.NewTable(t)); err != nil {
			httperr.Errs(w, err)
		}
	case "text":
		// 先寫入記憶體，避免寫到一半才出錯
		var b bytes.Buffer
		if err := ddgfmt.Encode(&b, t); err != nil {
			httperr.Errs(w, err)
			return
		}
		name := ds.Name
		if name == "" {
			name = "table"
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="`+name+ddgfmt.Ext(t.Path)+`"`)
		_, _ = w.Write(b.Bytes())
	default:
		http.Error(w, "format must be json or text", http.StatusBadRequest)
	}
}
