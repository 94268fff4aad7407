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
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/server/httperr"
	"github.com/zintix-labs/fldr/server/netsvr/middleware"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

// SampleTimeout 為單次抽樣請求的上限；拒絕迴圈每次重來都會檢查。
const SampleTimeout = 5 * time.Second

type SampleHandler struct {
	rt  *fldr.Runtime
	log *slog.Logger
}

func NewSampleHandler(sCfg *svrcfg.SvrCfg) (*SampleHandler, error) {
	rt, err := sCfg.Lab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build sample handler error")
	}
	return &SampleHandler{rt: rt, log: sCfg.Log}, nil
}

// Runtime 回傳底層的 Runtime（關閉與觀測用）。
func (c *SampleHandler) Runtime() *fldr.Runtime {
	return c.rt
}

// Sample 處理 GET/POST /v1/sample。
func (c *SampleHandler) Sample(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeSampleRequest(q)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	order, err := req.Parse()
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(q.Context(), SampleTimeout)
	defer cancel()

	result, err := c.rt.Sample(ctx, order)
	if err != nil {
		httperr.Log(c.log, "sample failed", err)
		httperr.Errs(w, err)
		return
	}
	middleware.Annotate(q.Context(),
		slog.String("dist", result.DistName),
		slog.Int("count", len(result.Samples)),
		slog.Uint64("flips", result.Flips),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Metrics 處理 GET /v1/metrics：每個分布池的觀測快照。
func (c *SampleHandler) Metrics(w http.ResponseWriter, q *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.rt.Metrics()); err != nil {
		httperr.Errs(w, err)
	}
}
