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

// Package corefmt 封裝 RNG 核心快照（core.Core.Snapshot）的傳輸格式。
//
// HTTP / JSON 使用無 padding 的 URL-safe base64（EncodeBase64URL）。
// cmd/run -state 的狀態檔格式為：
//
//	"FLDRCORE" | version(1 byte) | uvarint(len) | payload | crc32(payload, big-endian)
//
// 快照本身不帶 PRNG 種類；還原到不同種類的 PRNG 由 core.Restore 回報錯誤。
package corefmt

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/zintix-labs/fldr/errs"
)

const (
	stateMagic   = "FLDRCORE"
	stateVersion = 1
)

// EncodeBase64URL 以無 padding 的 URL-safe base64 編碼快照，適合放進 JSON 與 query string。
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, nil
}

// WriteState 把快照寫成狀態檔。
func WriteState(w io.Writer, snap []byte) error {
	var hdr [len(stateMagic) + 1 + binary.MaxVarintLen64]byte
	n := copy(hdr[:], stateMagic)
	hdr[n] = stateVersion
	n++
	n += binary.PutUvarint(hdr[n:], uint64(len(snap)))

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(snap))

	for _, part := range [][]byte{hdr[:n], snap, sum[:]} {
		if _, err := w.Write(part); err != nil {
			return errs.Wrap(err, "write core state failed")
		}
	}
	return nil
}

// ReadState 讀取狀態檔並驗證 magic、版本與 checksum。
// maxBytes 限制 payload 大小，0 表示不限制。
func ReadState(r io.Reader, maxBytes uint64) ([]byte, error) {
	br := bufio.NewReader(r)

	var head [len(stateMagic) + 1]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, errs.Wrap(err, "read core state header failed")
	}
	if !bytes.Equal(head[:len(stateMagic)], []byte(stateMagic)) {
		return nil, errs.NewWarn("read core state failed: not a core state file")
	}
	if v := head[len(stateMagic)]; v != stateVersion {
		return nil, errs.Warnf("read core state failed: unsupported version %d", v)
	}

	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errs.Wrap(err, "read core state length failed")
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.Warnf("read core state failed: payload %d bytes exceeds %d", ln, maxBytes)
	}
	buf := make([]byte, ln+4)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, errs.Wrap(err, "read core state payload failed")
	}
	snap, sum := buf[:ln], buf[ln:]
	if binary.BigEndian.Uint32(sum) != crc32.ChecksumIEEE(snap) {
		return nil, errs.NewWarn("read core state failed: checksum mismatch")
	}
	return snap, nil
}
