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
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/server/httperr"
)

type DistHandler struct {
	Lab *fldr.Lab
}

func NewDistHandler(lab *fldr.Lab) *DistHandler {
	return &DistHandler{Lab: lab}
}

// Dists 處理 GET /v1/dists：列出已註冊的分布摘要。
func (dh *DistHandler) Dists(w http.ResponseWriter, _ *http.Request) {
	sum, err := dh.Lab.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		httperr.Errs(w, err)
	}
}
