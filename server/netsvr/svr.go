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

// Package netsvr 定義服務端與 HTTP 框架之間的最小介面，預設實作為 chi。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/fldr/server/app"
)

// NetSvr 同時是路由器與可被 app.App 管理的 Component。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 只包含 fldr API 用到的方法：GET 查詢與 POST 運算。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Group(path string, fn func(NetRouter))
}
