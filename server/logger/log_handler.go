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

// Package logger 組裝服務端與 Lab 使用的 *slog.Logger。
//
// 兩種注入方式：直接傳入 *slog.Logger（NewDefaultLogger / NewAsync），
// 或自行組好 slog.Handler 後以 NewLogger(h) 包裝。AsyncHandler 可以把任何
// slog.Handler 變成非阻塞 handler。
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/fldr/errs"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

var logModeName = map[string]LogMode{
	"dev":     ModeDev,
	"prod":    ModeProd,
	"silence": ModeSilence,
}

func (m LogMode) String() string {
	for k, v := range logModeName {
		if v == m {
			return k
		}
	}
	return "unknown"
}

// ParseLogMode 解析 dev / prod / silence（命令列旗標用）。
func ParseLogMode(s string) (LogMode, error) {
	if m, ok := logModeName[s]; ok {
		return m, nil
	}
	return ModeDev, errs.Warnf("unknown log mode %q (want dev, prod or silence)", s)
}

// Options 為 NewHandler 的參數；零值等同 ModeDev 寫到 stderr。
//   - Out：nil 時 dev 寫 stderr、prod 寫 stdout。
//   - Level：nil 時 dev 為 Debug、prod 為 Info。
type Options struct {
	Mode  LogMode
	Out   io.Writer
	Level slog.Leveler
}

// NewHandler 依 Options 建立同步 handler。*errs.E 會被展開成 err.msg / err.lv / err.kind。
func NewHandler(opts Options) slog.Handler {
	if opts.Mode == ModeSilence {
		return slog.DiscardHandler
	}
	ho := &slog.HandlerOptions{Level: opts.Level, ReplaceAttr: errAttr}
	out := opts.Out
	if opts.Mode == ModeProd {
		// 正式環境：JSON + stdout，給 Loki / Promtail
		if out == nil {
			out = os.Stdout
		}
		if ho.Level == nil {
			ho.Level = slog.LevelInfo
		}
		return slog.NewJSONHandler(out, ho)
	}
	if out == nil {
		out = os.Stderr
	}
	if ho.Level == nil {
		ho.Level = slog.LevelDebug
	}
	return slog.NewTextHandler(out, ho)
}

// errAttr 將 *errs.E 攤平成群組，讓 JSON log 可以依錯誤類別查詢。
func errAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	err, ok := a.Value.Any().(error)
	if !ok {
		return a
	}
	var e *errs.E
	if !errors.As(err, &e) {
		return slog.String(a.Key, err.Error())
	}
	attrs := []slog.Attr{
		slog.String("msg", err.Error()),
		slog.String("lv", e.ErrLv.String()),
	}
	if e.Kind != errs.KindNone {
		attrs = append(attrs, slog.String("kind", e.Kind.String()))
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(attrs...)}
}

// NewDefaultLogger 以 LogMode 的預設值建立同步 logger。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(NewHandler(Options{Mode: mode}))
}

// NewDefaultAsyncLogger 以 LogMode 的預設值建立非同步 logger。
func NewDefaultAsyncLogger(mode LogMode) *slog.Logger {
	return slog.New(NewAsyncHandler(NewHandler(Options{Mode: mode}), 8192))
}

// NewLogger 包裝呼叫者自行組裝的 Handler，再交給 Lab 或 SvrCfg；nil 使用 ModeDev。
func NewLogger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = NewHandler(Options{})
	}
	return slog.New(h)
}

// NewAsync 以 LogMode 的預設值建立非同步 logger，並回傳底層的 AsyncHandler 以便 Close。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(NewHandler(Options{Mode: mode}), buf)
	return slog.New(ah), ah
}

// AsyncHandler 把 Handle 改成 enqueue，由背景 goroutine 逐筆交給 next 寫出。
// 佇列滿或已 Close 時直接丟棄並計數，不把延遲傳回請求路徑。
//
// slog.Logger 會忽略 Handle 回傳的 error；需要處理 I/O error 請在 next 內自行包裝。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type record struct {
	ctx  context.Context
	rec  slog.Record
	next slog.Handler
}

// queue 由同一個 AsyncHandler 衍生出的所有 handler（WithAttrs/WithGroup）共用。
type queue struct {
	ch      chan record
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewAsyncHandler 以 buf 大小的佇列包裝 next；buf <= 0 使用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = NewHandler(Options{})
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{
		ch:     make(chan record, buf),
		closed: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return &AsyncHandler{next: next, q: q}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil
}

// Dropped 回傳因佇列滿或已關閉而丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止接收並寫完佇列中剩餘的紀錄。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.closed) })
	h.q.wg.Wait()
}

func (q *queue) run() {
	defer q.wg.Done()
	for {
		select {
		case it := <-q.ch:
			_ = it.next.Handle(it.ctx, it.rec)
		case <-q.closed:
			for {
				select {
				case it := <-q.ch:
					_ = it.next.Handle(it.ctx, it.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.closed:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 跨 goroutine 前需 Clone
	select {
	case h.q.ch <- record{ctx: ctx, rec: r.Clone(), next: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
