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
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/fldr/errs"
)

// Recover 攔截 handler 的 panic，記錄 stack 後回 500。
//
// panic 值為 *errs.E 時（例如表結構損壞）保留其訊息；其餘一律包成 Fatal。
// log 為 nil 時只回應不記錄。
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}
				e, ok := rec.(*errs.E)
				if !ok {
					e = errs.NewFatal(fmt.Sprintf("panic: %v", rec))
				}
				if log != nil {
					log.LogAttrs(r.Context(), slog.LevelError, "http.panic",
						slog.String("request_id", ReqID(r.Context())),
						slog.String("path", r.URL.Path),
						slog.Any("err", e),
						slog.String("stack", string(debug.Stack())),
					)
				}
				http.Error(w, e.Error(), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
