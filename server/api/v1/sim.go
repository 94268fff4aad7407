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
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/server/httperr"
	"github.com/zintix-labs/fldr/server/netsvr/middleware"
	"github.com/zintix-labs/fldr/spec"
	"github.com/zintix-labs/fldr/stats"
)

const (
	MaxSimRounds  = 1000000
	MaxSimWorkers = 16
)

type SimHandler struct {
	Lab *fldr.Lab
	Log *slog.Logger // nil 時不記錄
}

func NewSimHandler(lab *fldr.Lab, log *slog.Logger) (*SimHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &SimHandler{Lab: lab, Log: log}, nil
}

// SimResponse 模擬回應
type SimResponse struct {
	Stats    *stats.Report `json:"stats"`
	Seed     int64         `json:"seed"`
	UsedTime int64         `json:"used_ms"`
}

// simParams 為兩個模擬入口共用的參數。
type simParams struct {
	Round   int    `json:"round"`
	Workers int    `json:"workers"`
	Seed    *int64 `json:"seed,omitempty"`
}

func (p *simParams) valid() error {
	if p.Round < 1 || p.Round > MaxSimRounds {
		return errs.NewWarn(fmt.Sprintf("round must be between 1 to %d", MaxSimRounds))
	}
	if p.Workers == 0 {
		p.Workers = 1
	}
	if p.Workers < 1 || p.Workers > MaxSimWorkers {
		return errs.NewWarn(fmt.Sprintf("workers must be between 1 to %d", MaxSimWorkers))
	}
	if p.Seed == nil {
		v, err := core.NewSeed()
		if err != nil {
			return errs.NewWarn("seed generate failed")
		}
		p.Seed = &v
	}
	return nil
}

// Sim 處理 GET/POST /v1/sim：對已註冊的分布執行模擬。
//
// SimMP 的 round 為每個 worker 的抽樣數，總樣本數為 round*workers。
func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	type SimRequestBody struct {
		ID       spec.DID `json:"id"`
		DistName string   `json:"dist"`
		simParams
	}
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		v := q.URL.Query()
		if s := v.Get("id"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("id must be non-negative integer"))
				return
			}
			req.ID = spec.DID(u)
		}
		req.DistName = v.Get("dist")
		if s := v.Get("round"); s != "" {
			u, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("round must be integer"))
				return
			}
			req.Round = u
		} else {
			httperr.Errs(w, errs.NewWarn("round is required"))
			return
		}
		if s := v.Get("workers"); s != "" {
			u, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("workers must be integer"))
				return
			}
			req.Workers = u
		}
		if s := v.Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			req.Seed = &u
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}

	if req.DistName != "" {
		ent, ok := sh.Lab.EntryByName(req.DistName)
		if !ok {
			httperr.Errs(w, errs.NewWarn("dist name not found"))
			return
		}
		if req.ID != 0 && req.ID != ent.ID {
			httperr.Errs(w, errs.NewWarn("dist id is not matched dist name"))
			return
		}
		req.ID = ent.ID
	}
	if _, ok := sh.Lab.EntryById(req.ID); !ok {
		httperr.Errs(w, errs.NewWarn("dist id not found"))
		return
	}
	if err := req.valid(); err != nil {
		httperr.Errs(w, err)
		return
	}

	sim, err := sh.Lab.NewSimulatorWithSeed(req.ID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.ID)))
		return
	}
	sh.run(w, q, sim, &req.simParams)
}

// SimByCfg 處理 POST /v1/simbycfg：body 為分布設定，另外帶 round/workers/seed。
func (sh *SimHandler) SimByCfg(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ds, raw, err := dto.DecodeDistSetting(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	p := new(simParams)
	if err := json.Unmarshal(raw, p); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}
	if err := p.valid(); err != nil {
		httperr.Errs(w, err)
		return
	}
	sim, err := sh.Lab.NewSimulatorBySetting(ds, *p.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	sh.run(w, r, sim, p)
}

func (sh *SimHandler) run(w http.ResponseWriter, q *http.Request, sim *fldr.Simulator, p *simParams) {
	st, used, err := sim.SimContext(q.Context(), p.Round, p.Workers, false)
	if err != nil {
		err = errs.Wrap(err, "simulate err")
		httperr.Log(sh.Log, "sim failed", err)
		httperr.Errs(w, err)
		return
	}
	middleware.Annotate(q.Context(),
		slog.String("dist", st.Summary.DistName),
		slog.Int("samples", st.Summary.Samples),
		slog.Float64("avg_flips", st.Summary.AvgFlips),
		slog.Bool("fit_pass", st.Fit.Pass),
	)
	resp := SimResponse{
		Stats:    st,
		Seed:     *p.Seed,
		UsedTime: used.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
	}
}
