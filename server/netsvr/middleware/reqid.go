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

package middleware

import (
	"context"
	"net/http"
	"strings"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 為每個請求指定 id（沿用客戶端帶來的 X-Request-Id），並回寫到回應標頭，
// 讓呼叫端能用同一個 id 對照 access log。
func RequestID(next http.Handler) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := ReqID(r.Context()); id != "" {
			w.Header().Set(chimid.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
	return chimid.RequestID(echo)
}

// ReqID 回傳完整的請求 id，沒有時為空字串。
func ReqID(ctx context.Context) string {
	return chimid.GetReqID(ctx)
}

// ShortReqID 只取 chi 產生的 "host/prefix-000123" 形式中的流水號；
// 客戶端自帶的 id 不含 '-' 時原樣回傳。
func ShortReqID(ctx context.Context) string {
	id := ReqID(ctx)
	if i := strings.LastIndexByte(id, '-'); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}
