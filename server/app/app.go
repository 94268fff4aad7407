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

// Package app 管理服務的生命週期：統一啟動多個 Component，收到 SIGINT/SIGTERM
// 或任一 Component 結束時協調關閉。
package app

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultGrace 為優雅關閉的期限；/v1/sim 的長請求需要在期限內結束或被取消。
const DefaultGrace = 5 * time.Second

// App 為生命週期管理器。每個 Component.Run 視為阻塞呼叫，代表該元件的生命週期。
type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

// New 建立一個新的 App 實例。
func New() *App {
	return &App{log: slog.New(slog.DiscardHandler), grace: DefaultGrace}
}

// NewWith 建立 App 並註冊多個 Component。
func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// SetLogger 設定關閉流程使用的 logger；nil 忽略。
func (a *App) SetLogger(log *slog.Logger) {
	if log != nil {
		a.log = log
	}
}

// SetGrace 設定優雅關閉的期限；非正數忽略。
func (a *App) SetGrace(d time.Duration) {
	if d > 0 {
		a.grace = d
	}
}

// Run 以 SIGINT/SIGTERM 作為結束信號執行 RunContext。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 並行啟動所有 Component，阻塞到 ctx 結束或任一 Component 的 Run 返回，
// 接著依註冊的反向順序呼叫 Shutdown。
//   - ctx 結束：回傳關閉過程的錯誤（通常為 nil）。
//   - Component 先返回：回傳其錯誤與關閉錯誤的合併。
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-errCh:
		a.log.Error("component stopped", slog.Any("err", runErr))
	}
	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	var all []error
	for i := len(a.comps) - 1; i >= 0; i-- {
		if err := a.comps[i].Shutdown(ctx); err != nil {
			a.log.Error("shutdown err", slog.Any("err", err))
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}
