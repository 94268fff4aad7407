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

package core

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/zintix-labs/fldr/errs"
)

// Replay 依序重播一段固定的位元序列，播完後從頭循環。
// 用於重現某條 DDG 走訪路徑或跨實作比對。
type Replay struct {
	bits  []uint8
	pos   int
	flips uint64
}

// NewReplay 建立重播來源；bits 為空會 panic。非 0 的值一律視為 1。
func NewReplay(bits ...uint8) *Replay {
	if len(bits) == 0 {
		panic("replay: empty bit sequence")
	}
	cp := make([]uint8, len(bits))
	for i, b := range bits {
		if b != 0 {
			cp[i] = 1
		}
	}
	return &Replay{bits: cp}
}

func (r *Replay) Flip() uint8 {
	b := r.bits[r.pos]
	r.pos++
	if r.pos == len(r.bits) {
		r.pos = 0
	}
	r.flips++
	return b
}

func (r *Replay) Flips() uint64 {
	return r.flips
}

// Constant 永遠回傳同一個位元，只適合測試（例如驗證 n=1 不消耗亂數）。
type Constant uint8

func (c Constant) Flip() uint8 {
	return uint8(c) & 1
}

// cryptoPRNG 以 crypto/rand 作為 PRNG，無法快照。
type cryptoPRNG struct{}

func (cryptoPRNG) Uint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto source: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}

func (cryptoPRNG) Snapshot() ([]byte, error) {
	return nil, errs.NewWarn("crypto source can not be snapshotted")
}

func (cryptoPRNG) Restore([]byte) error {
	return errs.NewWarn("crypto source can not be restored")
}

// NewCrypto 回傳以作業系統熵源驅動的 Core。
func NewCrypto() *Core {
	return New(cryptoPRNG{})
}
