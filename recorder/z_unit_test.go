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

package recorder

import (
	"testing"
)

func newTestRecorder(t *testing.T) *SampleRecorder {
	t.Helper()
	r, err := NewSampleRecorder("coin", 1, "int", 1, []float64{0.5, 0.5}, []string{"head", "tail"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSampleRecorderRecord(t *testing.T) {
	r := newTestRecorder(t)
	for i := 0; i < 10; i++ {
		r.Record(i % 2)
	}
	r.AddFlips(10)
	if r.Samples != 10 || r.Counts[0] != 5 || r.Counts[1] != 5 {
		t.Fatalf("unexpected counts: %+v", r)
	}
	rep := r.Done()
	if rep.Summary.Samples != 10 || rep.Summary.AvgFlips != 1 {
		t.Fatalf("unexpected report summary: %+v", rep.Summary)
	}
	if rep.Items[1].Label != "tail" || rep.Items[1].Observed != 0.5 {
		t.Fatalf("unexpected item: %+v", rep.Items[1])
	}
}

func TestMergeSampleRecorder(t *testing.T) {
	a, b := newTestRecorder(t), newTestRecorder(t)
	a.Record(0)
	a.AddFlips(3)
	b.Record(1)
	b.Record(1)
	b.AddFlips(2)

	m, err := MergeSampleRecorder([]*SampleRecorder{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if m.Samples != 3 || m.Flips != 5 || m.Counts[0] != 1 || m.Counts[1] != 2 {
		t.Fatalf("unexpected merge: %+v", m)
	}

	other, err := NewSampleRecorder("die", 2, "int", 3, []float64{0.5, 0.5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MergeSampleRecorder([]*SampleRecorder{a, other}); err == nil {
		t.Fatalf("expected error merging different distributions")
	}
	if _, err := MergeSampleRecorder(nil); err == nil {
		t.Fatalf("expected error merging nothing")
	}
}

func TestNewSampleRecorderInvalid(t *testing.T) {
	if _, err := NewSampleRecorder("x", 1, "int", 0, nil, nil); err == nil {
		t.Fatalf("expected error for empty probs")
	}
	if _, err := NewSampleRecorder("x", 1, "int", 1, []float64{1}, []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for label mismatch")
	}
}
