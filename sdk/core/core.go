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
	"math"
	"math/big"

	"github.com/zintix-labs/fldr/errs"
)

// BitSource 是抽樣器唯一需要的亂數能力：每次呼叫回傳一個均勻分佈的位元（0 或 1）。
//
// 抽樣器不關心位元從哪裡來（PRNG、硬體熵源、測試用的固定序列都可以），
// 因此合約只有一個方法。
type BitSource interface {
	Flip() uint8
}

// FlipCounter 由會計數的位元來源實作，供統計每次抽樣消耗的位元數。
type FlipCounter interface {
	Flips() uint64
}

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	// Uint64 回傳均勻分佈的 64-bit 亂數。
	Uint64() uint64
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：在同一個實作與同一個版本下，New(seed) 必須是決定性的，
	// 相同的 seed 必須產生相同的輸出序列。
	// 併發抽樣時每個 worker 由 baseSeed 派生自己的子 seed，彼此不共享狀態。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory (PCG64)
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32Factory 以 PCG32 (64-bit 狀態、32-bit 輸出) 作為 PRNG。
type PCG32Factory struct{}

func (f *PCG32Factory) New(seed int64) PRNG {
	return newPCG32WithSeed(seed)
}

// NewSeed 由 crypto/rand 產生一個非負的 int64 seed。
func NewSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "failed to read crypto seed")
	}
	return seed.Int64(), nil
}

// Core 封裝 PRNG，將其 64-bit 輸出緩衝起來，由最高位開始逐位元發出。
//
// 一次 Uint64 可供 64 次 Flip，避免每個位元都呼叫一次 PRNG。
// Core 不是併發安全的：每個 goroutine 應持有自己的 Core。
type Core struct {
	PRNG
	word  uint64 // 目前緩衝中的亂數字
	left  uint8  // word 中尚未發出的位元數
	flips uint64 // 累計發出的位元數
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{PRNG: rng}
}

// Flip 回傳下一個隨機位元。
func (c *Core) Flip() uint8 {
	if c.left == 0 {
		c.word = c.Uint64()
		c.left = 64
	}
	c.left--
	c.flips++
	return uint8((c.word >> c.left) & 1)
}

// Flips 回傳自建立（或上次 ResetFlips）以來發出的位元數。
func (c *Core) Flips() uint64 {
	return c.flips
}

// ResetFlips 歸零計數並回傳歸零前的值。
func (c *Core) ResetFlips() uint64 {
	n := c.flips
	c.flips = 0
	return n
}

// Snapshot 保存 PRNG 狀態以及尚未用完的緩衝位元，還原後的位元序列與快照當下完全一致。
//
// 格式：word(8 bytes, big endian) || left(1 byte) || PRNG snapshot
func (c *Core) Snapshot() ([]byte, error) {
	inner, err := c.PRNG.Snapshot()
	if err != nil {
		return nil, errs.Wrap(err, "core snapshot failed")
	}
	b := make([]byte, 0, 9+len(inner))
	b = AppendUint64(b, c.word)
	b = append(b, c.left)
	b = append(b, inner...)
	return b, nil
}

// Restore 還原 Snapshot 的結果，計數會歸零。
func (c *Core) Restore(data []byte) error {
	if len(data) < 9 {
		return errs.NewWarn("core restore failed: snapshot too short")
	}
	left := data[8]
	if left > 64 {
		return errs.Warnf("core restore failed: invalid buffered bit count %d", left)
	}
	if err := c.PRNG.Restore(data[9:]); err != nil {
		return errs.Wrap(err, "core restore failed")
	}
	c.word = ReadUint64(data[:8])
	c.left = left
	c.flips = 0
	return nil
}
