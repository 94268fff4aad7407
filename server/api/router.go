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

package api

import (
	"log/slog"
	"net/http"
	"strings"

	v1 "github.com/zintix-labs/fldr/server/api/v1"
	"github.com/zintix-labs/fldr/server/netsvr"
	"github.com/zintix-labs/fldr/server/netsvr/middleware"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

// routes 用於主頁列舉
var routes = []string{
	"GET  /v1/dists",
	"GET  /v1/metrics",
	"GET  /v1/sample?id=&dist=&count=&start_b64u=",
	"POST /v1/sample",
	"POST /v1/preprocess?format=json|text",
	"GET  /v1/sim?id=&dist=&round=&workers=&seed=",
	"POST /v1/sim",
	"POST /v1/simbycfg",
	"POST /v1/stat",
}

// RegisterRoutes 註冊 middleware、主頁與 v1 api。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log)
	registerIndex(svr)
	return registerV1API(svr, sCfg)
}

func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

func registerIndex(svr netsvr.NetSvr) {
	svr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("fldr\n\n" + strings.Join(routes, "\n") + "\n"))
	})
}

func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	sh, err := v1.NewSampleHandler(sCfg)
	if err != nil {
		return err
	}
	sim, err := v1.NewSimHandler(sCfg.Lab, sCfg.Log)
	if err != nil {
		return err
	}
	dh := v1.NewDistHandler(sCfg.Lab)
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/dists", dh.Dists)
		vOne.Get("/metrics", sh.Metrics)
		vOne.Get("/sample", sh.Sample)
		vOne.Get("/sim", sim.Sim)

		vOne.Post("/sample", sh.Sample)
		vOne.Post("/preprocess", v1.Preprocess)
		vOne.Post("/sim", sim.Sim)
		vOne.Post("/simbycfg", sim.SimByCfg)
		vOne.Post("/stat", v1.Stat)
	})
	return nil
}
