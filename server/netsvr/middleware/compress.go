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
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮等級。/v1/preprocess 的文字表與 /v1/sim 的報表都是高度重複的數字，
// 預設取最快的等級。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.BestSpeed,
	ZstdLevel: zstd.SpeedFastest,
}

// encoder 為 gzip.Writer 與 zstd.Encoder 的共同介面。
type encoder interface {
	io.Writer
	Flush() error
	Close() error
	Reset(w io.Writer)
}

// codec 以 sync.Pool 重用同一種編碼器。
type codec struct {
	name string
	pool sync.Pool
	mk   func() (encoder, error)
}

func (c *codec) get(w io.Writer) (encoder, bool) {
	if v := c.pool.Get(); v != nil {
		e := v.(encoder)
		e.Reset(w)
		return e, true
	}
	e, err := c.mk()
	if err != nil {
		return nil, false
	}
	e.Reset(w)
	return e, true
}

// put 關閉編碼器寫出 footer 後放回池中；discard 時 footer 寫到 io.Discard。
func (c *codec) put(e encoder, discard bool) {
	if discard {
		e.Reset(io.Discard)
	}
	_ = e.Close()
	c.pool.Put(e)
}

type compressor struct {
	zstd *codec
	gzip *codec
}

func newCompressor(cfg CompressConfig) *compressor {
	return &compressor{
		zstd: &codec{name: "zstd", mk: func() (encoder, error) {
			return zstd.NewWriter(nil,
				zstd.WithEncoderLevel(cfg.ZstdLevel),
				zstd.WithEncoderConcurrency(1),
			)
		}},
		gzip: &codec{name: "gzip", mk: func() (encoder, error) {
			return gzip.NewWriterLevel(nil, cfg.GzipLevel)
		}},
	}
}

// negotiate 依 Accept-Encoding 的 q 值選擇編碼；q 相同時 zstd 優先，q=0 視為拒絕。
func (c *compressor) negotiate(accept string) *codec {
	var zq, gq, wq float64 = -1, -1, -1
	for _, part := range strings.Split(accept, ",") {
		name, q := parseCoding(part)
		switch name {
		case "zstd":
			zq = q
		case "gzip", "x-gzip":
			gq = max(gq, q)
		case "*":
			wq = q
		}
	}
	// * 只套用在沒有明確列出的編碼
	if zq < 0 {
		zq = wq
	}
	if gq < 0 {
		gq = wq
	}
	switch {
	case zq > 0 && zq >= gq:
		return c.zstd
	case gq > 0:
		return c.gzip
	default:
		return nil
	}
}

func parseCoding(s string) (string, float64) {
	name, params, _ := strings.Cut(strings.TrimSpace(s), ";")
	q := 1.0
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "q" {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			q = f
		}
	}
	return strings.ToLower(strings.TrimSpace(name)), q
}

// 204 No Content, 304 Not Modified, 1xx Informational
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

type compressResponseWriter struct {
	http.ResponseWriter
	enc      encoder
	disabled bool // 回應不得帶 body 時停用壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	// 長度在壓縮後才知道
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.enc.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compress 依 cfg 建立壓縮 middleware，支援 zstd 與 gzip。
func Compress(cfg CompressConfig) func(http.Handler) http.Handler {
	c := newCompressor(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}
			cd := c.negotiate(r.Header.Get("Accept-Encoding"))
			if cd == nil {
				next.ServeHTTP(w, r)
				return
			}
			enc, ok := cd.get(w)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Encoding", cd.name)
			w.Header().Add("Vary", "Accept-Encoding")
			cw := &compressResponseWriter{ResponseWriter: w, enc: enc}
			defer func() { cd.put(enc, cw.disabled) }()

			next.ServeHTTP(cw, r)
		})
	}
}

var defaultCompress = Compress(DefaultCompressConfig)

// Compression 為使用 DefaultCompressConfig 的壓縮 middleware。
func Compression(next http.Handler) http.Handler {
	return defaultCompress(next)
}
