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
	"math/bits"

	"github.com/zintix-labs/fldr/errs"
)

const pcg32Multiplier = 6364136223846793005

// PCG32 為 64-bit 狀態、32-bit 輸出的 PCG (XSH RR) 產生器。
// 一次 Uint64 由兩次 32-bit 輸出組成（高位先出）。
type PCG32 struct {
	state uint64
	inc   uint64
}

func newPCG32WithSeed(seed int64) *PCG32 {
	r := &PCG32{}
	r.initWithSeed(seed, 1)
	return r
}

// Uint32 回傳 uint32 亂數。
func (r *PCG32) Uint32() uint32 {
	return r.next()
}

// Uint64 回傳 uint64 亂數
func (r *PCG32) Uint64() uint64 {
	return (uint64(r.next()) << 32) | uint64(r.next())
}

// Snapshot 取得當下內部狀態 state || inc
func (r *PCG32) Snapshot() ([]byte, error) {
	b := make([]byte, 0, 16)
	b = AppendUint64(b, r.state)
	b = AppendUint64(b, r.inc)
	return b, nil
}

// Restore 由 Snapshot 的結果還原；inc 必須為奇數。
func (r *PCG32) Restore(data []byte) error {
	if len(data) != 16 {
		return errs.Warnf("pcg32 restore failed: want 16 bytes, got %d", len(data))
	}
	inc := ReadUint64(data[8:])
	if inc&1 == 0 {
		return errs.NewWarn("pcg32 restore failed: stream increment must be odd")
	}
	r.state = ReadUint64(data[:8])
	r.inc = inc
	return nil
}

// PCG 建議的初始化流程：先用 stream 初始化一次，再加 seed，最後再 step。
func (r *PCG32) initWithSeed(baseSeed int64, seq uint64) {
	r.state = 0
	r.inc = (seq << 1) | 1
	r.next()
	r.state += uint64(baseSeed)
	r.next()
}

func (r *PCG32) next() uint32 {
	oldstate := r.state
	r.state = oldstate*pcg32Multiplier + r.inc
	xorshifted := uint32(((oldstate >> 18) ^ oldstate) >> 27)
	rot := uint32(oldstate >> 59)
	return bits.RotateLeft32(xorshifted, -int(rot))
}

// AppendUint64 以 big endian 附加 v。
func AppendUint64(b []byte, v uint64) []byte {
	return append(b,
		byte(v>>56),
		byte(v>>48),
		byte(v>>40),
		byte(v>>32),
		byte(v>>24),
		byte(v>>16),
		byte(v>>8),
		byte(v),
	)
}

// ReadUint64 讀取 AppendUint64 寫入的 8 bytes。
func ReadUint64(b []byte) uint64 {
	_ = b[7]
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}
