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

package corefmt

import (
	"bytes"
	"testing"

	"github.com/zintix-labs/fldr/sdk/core"
)

func TestBase64URLRoundTrip(t *testing.T) {
	in := []byte{0, 1, 0xfe, 0xff, 0x3e, 0x3f}
	s := EncodeBase64URL(in)
	out, err := DecodeBase64URL(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch: %v vs %v", in, out)
	}
	if _, err := DecodeBase64URL("a+b/"); err == nil {
		t.Fatalf("std alphabet must be rejected")
	}
}

// TestStateResumesCore 驗證寫出再讀回的狀態可以讓另一個核心接續同一串位元
func TestStateResumesCore(t *testing.T) {
	c := core.New(core.Default().New(17))
	for i := 0; i < 45; i++ {
		c.Flip()
	}
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteState(&buf, snap); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte(stateMagic)) {
		t.Fatalf("missing magic")
	}

	got, err := ReadState(bytes.NewReader(buf.Bytes()), 1024)
	if err != nil {
		t.Fatal(err)
	}
	r := core.New(core.Default().New(1))
	if err := r.Restore(got); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		if c.Flip() != r.Flip() {
			t.Fatalf("resumed stream diverged at %d", i)
		}
	}
}

func TestReadStateRejects(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteState(&buf, bytes.Repeat([]byte{7}, 300)); err != nil {
		t.Fatal(err)
	}
	good := buf.Bytes()

	corrupt := bytes.Clone(good)
	corrupt[len(corrupt)-6] ^= 1
	version := bytes.Clone(good)
	version[len(stateMagic)] = 9

	cases := map[string]struct {
		data []byte
		max  uint64
	}{
		"truncated": {good[:20], 0},
		"bad magic": {append([]byte("NOTCORE!"), good[8:]...), 0},
		"version":   {version, 0},
		"checksum":  {corrupt, 0},
		"too large": {good, 10},
		"empty":     {nil, 0},
	}
	for name, c := range cases {
		if _, err := ReadState(bytes.NewReader(c.data), c.max); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := ReadState(bytes.NewReader(good), 0); err != nil {
		t.Fatalf("unlimited read: %v", err)
	}
}
