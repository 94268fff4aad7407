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

// Package catalog 管理分布設定檔的索引：id、名稱與設定檔檔名三者一一對應。
//
// 設定檔來源為一或多個扁平的 fs.FS（不得有子目錄），只索引 .yaml/.yml/.json，
// 以 "." 開頭的檔案與其他副檔名一律忽略。同一檔名不得出現在兩個來源。
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate dist id")
	ErrDupName = errs.NewFatal("duplicate dist name")
	ErrZeroID  = errs.NewFatal("dist id must be positive")
)

// Entry 為一筆註冊資料，設定內容延遲到查詢時才讀取。
type Entry struct {
	ID         spec.DID
	Name       string
	ConfigName string
}

// Summary 為對外列舉用的分布摘要（GET /v1/dists）。
type Summary struct {
	ID    spec.DID `json:"id"    yaml:"id"`
	Name  string   `json:"name"  yaml:"name"`
	Path  string   `json:"path"  yaml:"path"`
	Items int      `json:"items" yaml:"items"`
	K     int      `json:"k"     yaml:"k"`
}

type Catalog struct {
	byID   map[spec.DID]Entry
	byName map[string]Entry
	byCfg  map[string]spec.DID
	ids    []spec.DID // 遞增排序
	src    *sources
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	src, err := newSources(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.DID]Entry{},
		byName: map[string]Entry{},
		byCfg:  map[string]spec.DID{},
		src:    src,
	}, nil
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register 批次註冊；任何一筆不合法則整批都不寫入。
func (c *Catalog) Register(ents ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	batchID := map[spec.DID]struct{}{}
	batchName := map[string]struct{}{}
	batchCfg := map[string]struct{}{}
	for i := range ents {
		e := &ents[i]
		e.Name = normName(e.Name)
		switch {
		case e.Name == "":
			return errs.NewFatal("dist name required")
		case e.ID == 0:
			return ErrZeroID
		}
		if _, ok := c.src.index[e.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %q", e.ConfigName))
		}
		if _, ok := c.byID[e.ID]; ok {
			return ErrDupID
		}
		if _, ok := batchID[e.ID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[e.Name]; ok {
			return ErrDupName
		}
		if _, ok := batchName[e.Name]; ok {
			return ErrDupName
		}
		_, used := c.byCfg[e.ConfigName]
		if _, ok := batchCfg[e.ConfigName]; ok || used {
			return errs.NewFatal(fmt.Sprintf("config %q registered twice", e.ConfigName))
		}
		batchID[e.ID] = struct{}{}
		batchName[e.Name] = struct{}{}
		batchCfg[e.ConfigName] = struct{}{}
	}
	for _, e := range ents {
		c.byID[e.ID] = e
		c.byName[e.Name] = e
		c.byCfg[e.ConfigName] = e.ID
		c.ids = append(c.ids, e.ID)
	}
	slices.Sort(c.ids)
	return nil
}

func (c *Catalog) GetByID(id spec.DID) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	e, ok := c.byName[normName(name)]
	return e, ok
}

func (c *Catalog) IDs() []spec.DID {
	if len(c.ids) == 0 {
		return nil
	}
	return slices.Clone(c.ids)
}

// All 依 id 遞增回傳所有註冊資料。
func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// Files 依檔名排序回傳所有已索引的設定檔（不論是否已註冊）。
func (c *Catalog) Files() []string {
	return slices.Clone(c.src.names)
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// Load 讀取並解析一個已索引的設定檔，依副檔名選擇 YAML 或 JSON。
func (c *Catalog) Load(configName string) (*spec.DistSetting, error) {
	i, ok := c.src.index[configName]
	if !ok {
		return nil, errs.Warnf("config file %q does not exist in catalog", configName)
	}
	raw, err := fs.ReadFile(c.src.fs[i], configName)
	if err != nil {
		return nil, errs.WrapWithExtra(err, "read config failed", "config="+configName)
	}
	var ds *spec.DistSetting
	if strings.EqualFold(filepath.Ext(configName), ".json") {
		ds, err = spec.GetDistSettingByJSON(raw)
	} else {
		ds, err = spec.GetDistSettingByYAML(raw)
	}
	if err != nil {
		return nil, errs.WrapWithExtra(err, "parse dist setting failed", "config="+configName)
	}
	return ds, nil
}

// DistSettingById 讀取已註冊分布的設定。
func (c *Catalog) DistSettingById(id spec.DID) (*spec.DistSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.Warnf("dist id %d does not exist in catalog", id)
	}
	return c.Load(e.ConfigName)
}

func (c *Catalog) DistSettingByName(name string) (*spec.DistSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.Warnf("dist name %q does not exist in catalog", name)
	}
	return c.Load(e.ConfigName)
}

func isConfigFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// sources 為多個扁平 fs.FS 的檔名索引，建立時即檢查結構。
type sources struct {
	fs    []fs.FS
	index map[string]int // 檔名 -> fs 索引
	names []string
}

func newSources(src ...fs.FS) (*sources, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	s := &sources{fs: src, index: make(map[string]int)}
	for i, f := range src {
		if f == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
		err := fs.WalkDir(f, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == "." {
				return nil
			}
			if d.IsDir() || strings.Contains(path, "/") {
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			if !isConfigFile(path) {
				return nil
			}
			if prev, ok := s.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			s.index[path] = i
			s.names = append(s.names, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(s.names)
	return s, nil
}
