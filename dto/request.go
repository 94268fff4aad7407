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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/fldr/corefmt"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/spec"
)

// MaxCount 為單次請求可抽樣的上限。
const MaxCount = 100000

type SampleRequest struct {
	UID        string      `json:"uid"`                   // 唯一識別碼
	DistName   string      `json:"dist"`                  // 分布名稱（與 id 擇一）
	DistId     spec.DID    `json:"id"`                    // 分布編號
	Count      int         `json:"count"`                 // 抽樣次數，省略視為 1
	StartState *StartState `json:"start_state,omitempty"` // 可選：由業務端帶入的 RNG 狀態（nil=新串流）
}

// DecodeSampleRequest 會把 HTTP 請求解碼成 SampleRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（uid/dist/id/count/start_b64u）。
//   - POST：從 JSON body 反序列化（支援 start_state）。
//
// StartState（start_state）語意：
//   - 缺省 / 為 null / 為空物件：由池中的核心接續抽樣。
//   - start_state.start_b64u 有值：從該快照 restore 後抽樣，可用於回放或續抽
//     （把上一次回應的 after_b64u 當作下一次的 start_b64u）。
//
// 注意：
//   - 這裡只負責解碼與基本型別轉換；分布是否存在由 Runtime 決定。
//   - POST 會對 body 做大小限制（1MiB）並拒絕未知欄位。
func DecodeSampleRequest(r *http.Request) (*SampleRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(SampleRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.DistName = q.Get("dist")

		if s := q.Get("id"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid id: %v", err))
			}
			req.DistId = spec.DID(u)
		}

		if s := q.Get("count"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid count: %v", err))
			}
			req.Count = v
		}

		if s := q.Get("start_b64u"); s != "" {
			req.StartState = &StartState{StartCoreSnapB64U: s}
		}
		return req, nil

	case http.MethodPost:
		const maxBody = 1 << 20
		body := io.LimitReader(r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, errs.NewWarn("invalid json: " + err.Error())
		}
		return req, nil

	default:
		return nil, errs.NewWarn("method not allowed")
	}
}

// StartState 是由業務端帶入的「可恢復 RNG 狀態」（可選）。
//
// Request 只允許提供 Start（start_b64u）；After（after_b64u）只會由引擎在回應中回傳。
type StartState struct {
	StartCoreSnapB64U string `json:"start_b64u,omitempty"`
}

func (ss *StartState) HasPayload() bool {
	if ss == nil {
		return false
	}
	return ss.StartCoreSnapB64U != ""
}

// Order 為解析完成的內部抽樣請求。
type Order struct {
	UID           string
	DistName      string
	DistId        spec.DID
	Count         int
	StartCoreSnap []byte // nil 代表沿用核心目前狀態
}

// Parse 檢查並轉換成內部請求。count 省略為 1，超過 MaxCount 視為錯誤。
func (sr *SampleRequest) Parse() (*Order, error) {
	if sr.DistId == 0 && sr.DistName == "" {
		return nil, errs.NewWarn("id or dist is required")
	}
	count := sr.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > MaxCount {
		return nil, errs.Warnf("count must be between 1 and %d", MaxCount)
	}
	o := &Order{
		UID:      sr.UID,
		DistName: sr.DistName,
		DistId:   sr.DistId,
		Count:    count,
	}
	if sr.StartState.HasPayload() {
		snap, err := corefmt.DecodeBase64URL(sr.StartState.StartCoreSnapB64U)
		if err != nil {
			return nil, errs.NewWarn("core snap decode failed " + err.Error())
		}
		o.StartCoreSnap = snap
	}
	return o, nil
}
