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

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeComp struct {
	name  string
	stop  chan struct{}
	fail  error
	order *[]string
	mu    *sync.Mutex
}

func newFake(name string, order *[]string, mu *sync.Mutex) *fakeComp {
	return &fakeComp{name: name, stop: make(chan struct{}), order: order, mu: mu}
}

func (f *fakeComp) Run() error {
	if f.fail != nil {
		return f.fail
	}
	<-f.stop
	return nil
}

func (f *fakeComp) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	*f.order = append(*f.order, f.name)
	f.mu.Unlock()
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	return nil
}

func TestRunContextShutsDownInReverse(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	a := NewWith(newFake("a", &order, &mu), newFake("b", &order, &mu))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.RunContext(ctx); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("shutdown order %v", order)
	}
}

func TestRunContextReturnsComponentError(t *testing.T) {
	var (
		order []string
		mu    sync.Mutex
	)
	boom := errors.New("listen failed")
	bad := newFake("bad", &order, &mu)
	bad.fail = boom
	a := NewWith(bad)
	if err := a.RunContext(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("want listen error, got %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("component not shut down: %v", order)
	}
}
