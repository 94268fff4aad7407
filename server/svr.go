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

// Package server 組裝 FLDR 的 HTTP 服務：路由、middleware 與生命週期。
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/server/api"
	"github.com/zintix-labs/fldr/server/app"
	"github.com/zintix-labs/fldr/server/netsvr"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

// Run 以預設的 chi server 啟動服務，收到 SIGINT/SIGTERM 後優雅關閉。
func Run(sCfg *svrcfg.SvrCfg) {
	if err := sCfg.Valid(); err != nil {
		// 外層傳入的 logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 以呼叫端提供的 NetSvr 啟動服務。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}

	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}

	a := app.NewWith(svr)
	a.SetLogger(sCfg.Log)
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[fldr] listening on http://localhost" + s.Address())
	} else {
		sCfg.Log.Info("[fldr] listening")
	}
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
	}
}
