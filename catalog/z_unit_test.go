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

package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/fldr/spec"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"die.yaml":  {Data: []byte("id: 1\nname: die\nints: [1, 1, 2, 3, 1]\n")},
		"skew.json": {Data: []byte(`{"id":2,"name":"skew","path":"float","floats":[0.25,0.13,1.12]}`)},
		"README.md": {Data: []byte("ignored")},
		".tmp.yaml": {Data: []byte("ignored")},
	}
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatal(err)
	}
	err = c.Register(
		Entry{ID: 2, Name: "Skew", ConfigName: "skew.json"},
		Entry{ID: 1, Name: "die", ConfigName: "die.yaml"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ids := c.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids not sorted: %v", ids)
	}
	if _, ok := c.GetByName(" SKEW "); !ok {
		t.Fatalf("name lookup should be case-insensitive")
	}
	ds, err := c.DistSettingById(2)
	if err != nil {
		t.Fatalf("load skew: %v", err)
	}
	if ds.Len() != 3 || ds.Path != "float" {
		t.Fatalf("unexpected setting: %+v", ds)
	}
	ds, err = c.DistSettingByName("die")
	if err != nil {
		t.Fatalf("load die: %v", err)
	}
	if ds.ID != spec.DID(1) {
		t.Fatalf("unexpected id %d", ds.ID)
	}
	if _, err := c.DistSettingById(9); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestFilesAndLoad(t *testing.T) {
	c, err := New(testFS(), fstest.MapFS{"bad.yml": {Data: []byte("id: 3\nname: bad\npath: int\nfloats: [1]\n")}})
	if err != nil {
		t.Fatal(err)
	}
	files := c.Files()
	if len(files) != 3 || files[0] != "bad.yml" || files[1] != "die.yaml" || files[2] != "skew.json" {
		t.Fatalf("unexpected files: %v", files)
	}
	if _, err := c.Load("bad.yml"); err == nil || !strings.Contains(err.Error(), "config=bad.yml") {
		t.Fatalf("expected parse error carrying the config name, got %v", err)
	}
	if _, err := c.Load(".tmp.yaml"); err == nil {
		t.Fatalf("dotfiles must not be indexed")
	}
	if err := c.Register(Entry{ID: 0, Name: "die", ConfigName: "die.yaml"}); err != ErrZeroID {
		t.Fatalf("want ErrZeroID, got %v", err)
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Register(Entry{ID: 1, Name: "die", ConfigName: "die.yaml"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(Entry{ID: 1, Name: "other", ConfigName: "skew.json"}); err != ErrDupID {
		t.Fatalf("want ErrDupID, got %v", err)
	}
	if err := c.Register(Entry{ID: 5, Name: "die", ConfigName: "skew.json"}); err != ErrDupName {
		t.Fatalf("want ErrDupName, got %v", err)
	}
	if err := c.Register(Entry{ID: 8, Name: "again", ConfigName: "die.yaml"}); err == nil {
		t.Fatalf("expected config registered twice error")
	}
	if err := c.Register(Entry{ID: 6, Name: "x", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("expected missing config error")
	}
	c.Freeze()
	if err := c.Register(Entry{ID: 7, Name: "y", ConfigName: "skew.json"}); err == nil {
		t.Fatalf("expected frozen error")
	}
}

func TestMultiFSRejectsSubdirAndDup(t *testing.T) {
	sub := fstest.MapFS{"nested/a.yaml": {Data: []byte("name: a")}}
	if _, err := New(sub); err == nil {
		t.Fatalf("expected flat fs error")
	}
	if _, err := New(testFS(), fstest.MapFS{"die.yaml": {Data: []byte("x")}}); err == nil {
		t.Fatalf("expected duplicate config error")
	}
	if _, err := New(); err == nil {
		t.Fatalf("expected error without fs")
	}
}
