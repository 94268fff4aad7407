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

// Package errs 定義全專案共用的錯誤型別 *E。
//
// 每個錯誤帶兩個維度：ErrLevel 決定上層如何處置（Warn 可由呼叫端修正，Fatal 為內部缺陷），
// Kind 則是抽樣器的錯誤分類，可用 errors.Is(err, ErrInvalidWeight) 這類哨兵比對。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var lvNames = [...]string{None: "", Fatal: "fatal", Warn: "warn", Log: "log"}

func (lv ErrLevel) String() string {
	if int(lv) < len(lvNames) {
		return lvNames[lv]
	}
	return ""
}

// ErrLv 回傳分級名稱，未知分級為空字串。
func ErrLv(lv ErrLevel) string { return lv.String() }

// Kind : 錯誤類別
type Kind uint8

const (
	KindNone Kind = iota
	// n=0、全為零或出現負權重
	KindInvalidDistribution
	// 浮點權重為 NaN / Inf
	KindInvalidWeight
	// 浮點轉精確分數時超過倍增上限
	KindConversionDivergence
	// 二進位減法 a < b
	KindArithmeticUnderflow
	// DDG 表結構不合法（建表缺陷）
	KindStructuralInvariant
)

type kindInfo struct {
	name string
	lv   ErrLevel
}

var kinds = [...]kindInfo{
	KindNone:                 {"", Fatal},
	KindInvalidDistribution:  {"invalid distribution", Warn},
	KindInvalidWeight:        {"invalid weight", Warn},
	KindConversionDivergence: {"conversion divergence", Fatal},
	KindArithmeticUnderflow:  {"arithmetic underflow", Fatal},
	KindStructuralInvariant:  {"structural invariant violation", Fatal},
}

func (k Kind) info() kindInfo {
	if int(k) < len(kinds) {
		return kinds[k]
	}
	return kindInfo{lv: Fatal}
}

func (k Kind) String() string { return k.info().name }

// Level 回傳該類別預設的嚴重程度；未知類別為 Fatal。
func (k Kind) Level() ErrLevel { return k.info().lv }

// 哨兵錯誤只用於 errors.Is 比對；回傳時請用 Newk / Kindf 帶上下文。
var (
	ErrInvalidDistribution  = sentinel(KindInvalidDistribution)
	ErrInvalidWeight        = sentinel(KindInvalidWeight)
	ErrConversionDivergence = sentinel(KindConversionDivergence)
	ErrArithmeticUnderflow  = sentinel(KindArithmeticUnderflow)
	ErrStructuralInvariant  = sentinel(KindStructuralInvariant)
)

func sentinel(k Kind) *E {
	return &E{Message: k.String(), ErrLv: k.Level(), Kind: k}
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為額外上下文；Cause 串接下層錯誤；Kind 可為 KindNone。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 格式：errlv=<lv> [<kind>] <msg> | extra: <extra> (cause: <cause>)
func (e *E) Error() string {
	var sb strings.Builder
	sb.WriteString("errlv=")
	sb.WriteString(e.ErrLv.String())
	if e.Kind != KindNone {
		sb.WriteString(" [")
		sb.WriteString(e.Kind.String())
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(e.Message)
	if e.Extra != "" {
		sb.WriteString(" | extra: ")
		sb.WriteString(e.Extra)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, " (cause: %v)", e.Cause)
	}
	return sb.String()
}

func (e *E) Unwrap() error { return e.Cause }

// Is 以 Kind 比對：errors.Is(err, ErrInvalidWeight) 對任何同類別的 *E 皆成立。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	return ok && t.Kind != KindNone && e.Kind == t.Kind
}

// Newk 建立帶有類別的錯誤，嚴重程度由類別決定。
func Newk(kind Kind, msg string) *E {
	return &E{Message: msg, ErrLv: kind.Level(), Kind: kind}
}

func Kindf(kind Kind, format string, a ...any) *E {
	return Newk(kind, fmt.Sprintf(format, a...))
}

// KindOf 沿著 wrap 鏈找出第一個帶有類別的 *E，找不到回傳 KindNone。
func KindOf(err error) Kind {
	for ; err != nil; err = errors.Unwrap(err) {
		if e, ok := err.(*E); ok && e.Kind != KindNone {
			return e.Kind
		}
	}
	return KindNone
}

func New(errLv ErrLevel, msg string) *E { return &E{Message: msg, ErrLv: errLv} }

func NewFatal(msg string) *E { return New(Fatal, msg) }

func NewWarn(msg string) *E { return New(Warn, msg) }

func NewLog(msg string) *E { return New(Log, msg) }

func Warnf(format string, a ...any) *E { return NewWarn(fmt.Sprintf(format, a...)) }

// Wrap 包裝底層錯誤。
//
// cause 鏈上若有 *E 則沿用其 ErrLv 與 Kind；標準庫或三方錯誤一律視為 Fatal。
// 可預期且可處理的情境請直接用 New / Newk 指定分級，不要 Wrap。
func Wrap(cause error, msg string) *E {
	return WrapWithExtra(cause, msg, "")
}

// WrapWithExtra 同 Wrap，另外附加上下文字串（不影響主訊息）。
func WrapWithExtra(cause error, msg string, extra string) *E {
	lv := Fatal
	if e, ok := AsErr(cause); ok {
		lv = e.ErrLv
	}
	return &E{Message: msg, Extra: extra, Cause: cause, ErrLv: lv, Kind: KindOf(cause)}
}

// AsErr 為 errors.As 的簡寫。
func AsErr(err error) (*E, bool) {
	var e *E
	ok := errors.As(err, &e)
	return e, ok
}
