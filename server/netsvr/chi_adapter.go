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

package netsvr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultAddr string = ":5808"

// ChiConfig 為 http.Server 的參數，零值欄位使用預設值。
//
// WriteTimeout 需大於 /v1/sim 的最長模擬時間。
type ChiConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

func (c ChiConfig) withDefaults() ChiConfig {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	return c
}

// ChiAdapter 以 chi（基於標準庫 net/http）實作 NetSvr。
// handler 與 middleware 都走 net/http 介面；要換框架時另寫一個 Adapter 即可。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
}

// NewChiServer 建立監聽 addr 的 ChiAdapter；addr 為空時使用 :5808。
func NewChiServer(addr string) *ChiAdapter {
	return NewChiServerWith(ChiConfig{Addr: addr})
}

// NewChiServerWith 依 ChiConfig 建立 ChiAdapter。
func NewChiServerWith(cfg ChiConfig) *ChiAdapter {
	cfg = cfg.withDefaults()
	cr := chi.NewRouter()
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           cr,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Ready 檢查 server 已建立且位址可解析。
func (c *ChiAdapter) Ready() bool {
	if c == nil || c.router == nil || c.server == nil || c.server.Handler != c.router {
		return false
	}
	_, _, err := net.SplitHostPort(c.server.Addr)
	return err == nil
}

// Run 阻塞直到 server 結束；Shutdown 造成的結束回傳 nil。
func (c *ChiAdapter) Run() error {
	if err := c.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) {
	c.router.Post(path, h)
}

// Group 建立子路由；子路由沒有自己的 server，只能註冊 handler 與 middleware。
func (c *ChiAdapter) Group(path string, fn func(NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) Address() string {
	if c.server == nil {
		return ""
	}
	return c.server.Addr
}

// ServeHTTP 讓 ChiAdapter 本身可以當作 http.Handler（例如交給 httptest）。
func (c *ChiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}
