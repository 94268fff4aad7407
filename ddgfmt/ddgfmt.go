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

// Package ddgfmt 讀寫 DDG 表的文字交換格式，以及驅動程式使用的權重輸入檔。
//
// 整數路徑 (.fldr)：
//
//	n m k r
//	h[0] ... h[k-1]
//	Leaves 的 n+1 列，每列 k 個值
//
// 浮點路徑 (.fldrf)：
//
//	n k
//	m 的位元（MSB 在前）
//	r 的位元（r 為空時為空行）
//	h[0] ... h[k-1]
//	Leaves 的 n+1 列
//
// 欄位以單一空白分隔，行尾沒有空白，未使用的格子原樣寫出 -1，檔案以換行結尾。
// 同一個分佈只有一種正確的表格，因此可以逐位元組比對不同實作的輸出。
package ddgfmt

import (
	"bufio"
	"bytes"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/bitarr"
	"github.com/zintix-labs/fldr/sdk/ddg"
)

// Ext 回傳交換檔的副檔名：整數路徑 ".fldr"，浮點路徑 ".fldrf"。
func Ext(path ddg.Path) string {
	if path == ddg.PathFloat {
		return ".fldrf"
	}
	return ".fldr"
}

// Encode 依表格的 Path 寫出交換格式。
func Encode(w io.Writer, t *ddg.Table) error {
	bw := bufio.NewWriter(w)
	if t.Path == ddg.PathFloat {
		writeInts(bw, t.N, t.K)
		writeBits(bw, t.M)
		writeBits(bw, t.R)
	} else {
		bw.WriteString(strconv.Itoa(t.N))
		bw.WriteByte(' ')
		bw.WriteString(t.M.Big().String())
		bw.WriteByte(' ')
		bw.WriteString(strconv.Itoa(t.K))
		bw.WriteByte(' ')
		bw.WriteString(t.R.Big().String())
		bw.WriteByte('\n')
	}
	writeInts(bw, t.H...)
	for _, row := range t.Leaves {
		writeInts(bw, row...)
	}
	if err := bw.Flush(); err != nil {
		return errs.Wrap(err, "write ddg table failed")
	}
	return nil
}

// Marshal 回傳交換格式的位元組。
func Marshal(t *ddg.Table) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, t) // bytes.Buffer 不會寫入失敗
	return buf.Bytes()
}

func writeInts(bw *bufio.Writer, xs ...int) {
	for i, x := range xs {
		if i > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.Itoa(x))
	}
	bw.WriteByte('\n')
}

func writeBits(bw *bufio.Writer, x bitarr.Bits) {
	for i, b := range x {
		if i > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteByte('0' + (b & 1))
	}
	bw.WriteByte('\n')
}

// Decode 解析交換格式並以 ddg.Assemble 重建（含結構驗證）。
// 整數路徑的 m、r 以任意精度十進位解析，不受 uint64 限制。
func Decode(r io.Reader, path ddg.Path) (*ddg.Table, error) {
	lr := newLineReader(r)

	var (
		n, k int
		m, rr bitarr.Bits
	)
	head, err := lr.fields(-1)
	if err != nil {
		return nil, err
	}
	if path == ddg.PathFloat {
		if len(head) != 2 {
			return nil, lr.errorf("header wants \"n k\", got %d fields", len(head))
		}
		if n, err = lr.atoi(head[0]); err != nil {
			return nil, err
		}
		if k, err = lr.atoi(head[1]); err != nil {
			return nil, err
		}
		if m, err = lr.bits(); err != nil {
			return nil, err
		}
		if rr, err = lr.bits(); err != nil {
			return nil, err
		}
	} else {
		if len(head) != 4 {
			return nil, lr.errorf("header wants \"n m k r\", got %d fields", len(head))
		}
		if n, err = lr.atoi(head[0]); err != nil {
			return nil, err
		}
		if m, err = lr.bigBits(head[1]); err != nil {
			return nil, err
		}
		if k, err = lr.atoi(head[2]); err != nil {
			return nil, err
		}
		if rr, err = lr.bigBits(head[3]); err != nil {
			return nil, err
		}
	}
	if n < 1 || k < 0 {
		return nil, lr.errorf("invalid header n=%d k=%d", n, k)
	}

	h, err := lr.ints(k)
	if err != nil {
		return nil, err
	}
	leaves := make([][]int, n+1)
	for d := range leaves {
		if leaves[d], err = lr.ints(k); err != nil {
			return nil, err
		}
	}

	t, err := ddg.Assemble(path, n, k, m, rr, h, leaves)
	if err != nil {
		return nil, errs.Wrap(err, "decode ddg table failed")
	}
	return t, nil
}

// Unmarshal 解析交換格式的位元組。
func Unmarshal(b []byte, path ddg.Path) (*ddg.Table, error) {
	return Decode(bytes.NewReader(b), path)
}

// Weights 為驅動程式輸入檔 "n w1 ... wn" 的內容，依路徑只有一個欄位有值。
type Weights struct {
	Path   ddg.Path
	Ints   []int64
	Floats []float64
}

// Len 回傳權重個數。
func (w Weights) Len() int {
	if w.Path == ddg.PathFloat {
		return len(w.Floats)
	}
	return len(w.Ints)
}

// Build 依路徑建立 DDG 表。
func (w Weights) Build() (*ddg.Table, error) {
	if w.Path == ddg.PathFloat {
		return ddg.BuildFloat(w.Floats)
	}
	return ddg.BuildInt(w.Ints)
}

// ReadWeights 讀取 "n w1 ... wn"：以任意空白分隔，可以跨行。
// 整數路徑的權重需為十進位整數；浮點路徑接受 strconv.ParseFloat 的所有格式。
// 負值在這裡不會被拒絕，交由建表時回報 ErrInvalidDistribution。
func ReadWeights(r io.Reader, path ddg.Path) (Weights, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64<<20)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Weights{}, errs.Wrap(err, "read weights failed")
		}
		return Weights{}, errs.NewWarn("read weights failed: empty input")
	}
	n, err := strconv.Atoi(sc.Text())
	if err != nil || n < 0 {
		return Weights{}, errs.Warnf("read weights failed: invalid count %q", sc.Text())
	}

	w := Weights{Path: path}
	if path == ddg.PathFloat {
		w.Floats = make([]float64, 0, n)
	} else {
		w.Ints = make([]int64, 0, n)
	}
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return Weights{}, errs.Wrap(err, "read weights failed")
			}
			return Weights{}, errs.Warnf("read weights failed: want %d weights, got %d", n, i)
		}
		tok := sc.Text()
		if path == ddg.PathFloat {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return Weights{}, errs.Warnf("read weights failed: invalid float %q at index %d", tok, i)
			}
			w.Floats = append(w.Floats, v)
		} else {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return Weights{}, errs.Warnf("read weights failed: invalid integer %q at index %d", tok, i)
			}
			w.Ints = append(w.Ints, v)
		}
	}
	return w, nil
}

// lineReader 逐行讀取並記錄行號，錯誤訊息帶上行號。
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64<<20)
	return &lineReader{sc: sc}
}

func (lr *lineReader) errorf(format string, a ...any) error {
	return errs.Warnf("ddgfmt line %d: "+format, append([]any{lr.line}, a...)...)
}

func (lr *lineReader) next() (string, error) {
	if !lr.sc.Scan() {
		if err := lr.sc.Err(); err != nil {
			return "", errs.Wrap(err, "read ddg table failed")
		}
		return "", errs.Warnf("ddgfmt: unexpected end of input after line %d", lr.line)
	}
	lr.line++
	return strings.TrimRight(lr.sc.Text(), "\r"), nil
}

// fields 讀一行並切成欄位；want >= 0 時檢查欄位數。
func (lr *lineReader) fields(want int) ([]string, error) {
	s, err := lr.next()
	if err != nil {
		return nil, err
	}
	fs := strings.Fields(s)
	if want >= 0 && len(fs) != want {
		return nil, lr.errorf("want %d values, got %d", want, len(fs))
	}
	return fs, nil
}

func (lr *lineReader) ints(want int) ([]int, error) {
	fs, err := lr.fields(want)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if out[i], err = lr.atoi(f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (lr *lineReader) atoi(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, lr.errorf("invalid integer %q", s)
	}
	return v, nil
}

func (lr *lineReader) bits() (bitarr.Bits, error) {
	s, err := lr.next()
	if err != nil {
		return nil, err
	}
	x, err := bitarr.Parse(s)
	if err != nil {
		return nil, lr.errorf("%v", err)
	}
	return x, nil
}

func (lr *lineReader) bigBits(s string) (bitarr.Bits, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, lr.errorf("invalid non-negative integer %q", s)
	}
	return bitarr.FromBig(v), nil
}
