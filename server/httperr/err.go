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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/fldr/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
//   - ctx 逾時 / 取消           → 504 / 408
//   - 權重或分布不合法（Warn）   → 422：請求格式正確，但無法建表
//   - 其他 errs.Warn           → 400
//   - errs.Fatal 與未知錯誤     → 500
//
// 映射屬於 HTTP 邊界層，errs 本身不依賴 net/http。
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	var e *errs.E
	if !errors.As(err, &e) || e.ErrLv != errs.Warn {
		return http.StatusInternalServerError
	}
	switch errs.KindOf(err) {
	case errs.KindInvalidDistribution, errs.KindInvalidWeight:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// Body 為錯誤回應的 JSON 內容；Kind 只在錯誤帶有類別時出現。
type Body struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
}

// Errs 以 StatusCode 決定狀態碼並回寫 JSON 錯誤。err 為 nil 時不做任何事。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	body := Body{Status: status, Error: err.Error()}
	if k := errs.KindOf(err); k != errs.KindNone {
		body.Kind = k.String()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Log 只記錄值得關注的錯誤：408/409/429 為 Warn，5xx 為 Error，其餘 4xx 不記錄。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	switch status := StatusCode(err); {
	case status == http.StatusRequestTimeout || status == http.StatusConflict || status == http.StatusTooManyRequests:
		log.Warn(msg, slog.Int("status", status), slog.Any("err", err))
	case status >= 500:
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	}
}
