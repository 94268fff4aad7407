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

// Package fldr 提供 FLDR（Fast Loaded Dice Roller）抽樣引擎的組裝入口與運行入口。
//
// Lab 把兩個地基組裝在一起：
//  1. Catalog：分布目錄，定義有哪些分布以及各自對應的設定檔名稱（ConfigName）。
//  2. PRNGFactory：亂數核心工廠，同一個 seed 得到同一串位元，可重現也可審計。
//
// 每個分布的 DDG 表只建一次並快取，之後由 Sampler / Simulator / TablePool 共用。
// 表是唯讀的；會變動的只有各自持有的 RNG 核心。
//
// 典型使用情境：
//   - 後端服務：BuildRuntime 為每個分布建立 TablePool，HTTP handler 透過 Runtime.Sample 抽樣。
//   - 模擬器：NewSimulator 以大量抽樣驗證表的正確性與平均消耗位元數。
//
//	lab, _ := fldr.NewAuto(core.Default(), fldr.Configs(cfgFS))
//	s, _ := lab.NewSampler(1)
//	idx := s.SampleInternal()
package fldr

import (
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/zintix-labs/fldr/catalog"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
)

// Configs 把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 可以用 go:embed 把設定編進 binary，也可以用 os.DirFS 在本機開發時讀取目錄。
// Lab 不解析路徑，只依賴 fs.FS 與檔名取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Option 調整 Lab 的可選行為。
type Option func(*Lab)

// WithLogger 指定 Lab 使用的 logger；預設丟棄所有輸出。
func WithLogger(log *slog.Logger) Option {
	return func(l *Lab) {
		if log != nil {
			l.log = log
		}
	}
}

// built 為一個分布的設定與已建好的表。
type built struct {
	ds *spec.DistSetting
	t  *ddg.Table
}

// Lab 是組裝器與運行入口。
//
// 使用流程分成兩階段：
//   - 註冊階段：建立 catalog、掃描設定、檢查重複並建表（fail-fast）。
//   - 執行階段：Freeze 後依分布 ID 產生 Sampler / Simulator / Runtime。
//
// ID 唯一性只保證在同一個 Lab 內。
type Lab struct {
	cat    *catalog.Catalog
	cf     core.PRNGFactory
	log    *slog.Logger
	mu     sync.Mutex
	tables map[spec.DID]*built
	sum    []catalog.Summary
}

// New 建立一個 Lab，進入註冊階段。
//
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 DistSetting。
func New(cf core.PRNGFactory, cfgs []fs.FS, opts ...Option) (*Lab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Lab{
		cat:    cata,
		cf:     cf,
		log:    slog.New(slog.DiscardHandler),
		tables: make(map[spec.DID]*built),
	}
	for _, opt := range opts {
		opt(lab)
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Lab：註冊所有設定檔並 Freeze。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, opts ...Option) (*Lab, error) {
	lab, err := New(cf, cfgs, opts...)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll 把 Catalog 索引到的每個設定檔解析成 DistSetting、建好 DDG 表，
// 再以設定檔內宣告的 ID/Name 批次註冊。
//
//  1. Fail-fast：任何一個檔案解析或建表失敗，立刻回傳 error。
//  2. 原子性：全部成功才會呼叫一次 Register，不會留下只註冊一半的 catalog。
//  3. 穩定性：依檔名排序處理，行為可重現。
func (l *Lab) RegisterAll() error {
	files := l.cat.Files()
	if len(files) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	entries := make([]catalog.Entry, 0, len(files))
	tables := make(map[spec.DID]*built, len(files))
	seenID := map[spec.DID]string{}
	seenName := map[string]string{}

	for _, file := range files {
		ds, err := l.cat.Load(file)
		if err != nil {
			return err
		}
		if ds.Name == "" {
			return errs.NewFatal(fmt.Sprintf("dist name required: %s", file))
		}
		if ds.ID == 0 {
			return errs.NewFatal(fmt.Sprintf("dist id must be positive: %s", file))
		}
		if prev, ok := seenID[ds.ID]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate dist id: %d (config=%s and %s)", ds.ID, prev, file))
		}
		if _, ok := l.cat.GetByID(ds.ID); ok {
			return errs.NewFatal(fmt.Sprintf("dist id already registered: %d (config=%s)", ds.ID, file))
		}
		if prev, ok := seenName[ds.Name]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate dist name: %s (config=%s and %s)", ds.Name, prev, file))
		}
		if _, ok := l.cat.GetByName(ds.Name); ok {
			return errs.NewFatal(fmt.Sprintf("dist name already registered: %s (config=%s)", ds.Name, file))
		}
		seenID[ds.ID] = file
		seenName[ds.Name] = file

		t, err := ds.Build()
		if err != nil {
			return errs.WrapWithExtra(err, "build table failed", "config="+file)
		}
		tables[ds.ID] = &built{ds: ds, t: t}
		entries = append(entries, catalog.Entry{ID: ds.ID, Name: ds.Name, ConfigName: file})
	}

	if err := l.cat.Register(entries...); err != nil {
		return err
	}

	l.mu.Lock()
	for id, b := range tables {
		l.tables[id] = b
	}
	l.mu.Unlock()
	for _, e := range entries {
		b := tables[e.ID]
		l.log.Info("dist registered",
			slog.Uint64("id", uint64(e.ID)),
			slog.String("name", e.Name),
			slog.String("config", e.ConfigName),
			slog.String("path", b.t.Path.String()),
			slog.Int("n", b.t.N),
			slog.Int("k", b.t.K),
		)
	}
	return nil
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryById(id spec.DID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []spec.DID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

// Summary 列出所有分布的摘要，catalog 必須已 Freeze。
func (l *Lab) Summary() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	l.mu.Lock()
	sum := l.sum
	l.mu.Unlock()
	if sum != nil {
		return sum, nil
	}

	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		b, err := l.load(id)
		if err != nil {
			return nil, err
		}
		cs = append(cs, catalog.Summary{
			ID:    id,
			Name:  b.ds.Name,
			Path:  b.t.Path.String(),
			Items: b.t.N,
			K:     b.t.K,
		})
	}
	l.mu.Lock()
	l.sum = cs
	l.mu.Unlock()
	return cs, nil
}

// Setting 回傳分布設定。
func (l *Lab) Setting(id spec.DID) (*spec.DistSetting, error) {
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return b.ds, nil
}

// Table 回傳快取的 DDG 表；尚未建過的分布（例如手動 Register 的）會在第一次查詢時建表。
func (l *Lab) Table(id spec.DID) (*ddg.Table, error) {
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return b.t, nil
}

func (l *Lab) TableByName(name string) (*ddg.Table, error) {
	e, ok := l.cat.GetByName(name)
	if !ok {
		return nil, errs.Warnf("dist name %q does not exist in catalog", name)
	}
	return l.Table(e.ID)
}

func (l *Lab) load(id spec.DID) (*built, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.tables[id]; ok {
		return b, nil
	}
	ds, err := l.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	t, err := ds.Build()
	if err != nil {
		return nil, err
	}
	b := &built{ds: ds, t: t}
	l.tables[id] = b
	l.log.Debug("table built lazily", slog.Uint64("id", uint64(id)), slog.Int("k", t.K))
	return b, nil
}

// NewSampler 依分布 ID 建立一個以 crypto seed 初始化的 Sampler。
func (l *Lab) NewSampler(id spec.DID) (*Sampler, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return newSampler(b.ds, b.t, l.cf)
}

// NewSamplerWithSeed 與 NewSampler 相同，但由呼叫端指定初始 seed。
//
// seed 只是出生入口；要在任意時間點重現，請使用 SnapshotCore / RestoreCore。
func (l *Lab) NewSamplerWithSeed(id spec.DID, seed int64) (*Sampler, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return newSamplerWithSeed(b.ds, b.t, l.cf, seed), nil
}

func (l *Lab) NewSimulator(id spec.DID) (*Simulator, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(b.ds, b.t, l.cf)
}

func (l *Lab) NewSimulatorWithSeed(id spec.DID, seed int64) (*Simulator, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	b, err := l.load(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(b.ds, b.t, l.cf, seed), nil
}

// NewSimulatorBySetting 以不在 catalog 內的設定建立模擬器（例如 HTTP 上傳的權重）。
func (l *Lab) NewSimulatorBySetting(ds *spec.DistSetting, seed int64) (*Simulator, error) {
	if ds == nil {
		return nil, errs.NewWarn("nil dist setting")
	}
	t, err := ds.Build()
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ds, t, l.cf, seed), nil
}

func (l *Lab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	ds, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	return l.NewSimulatorBySetting(ds, seed)
}

func (l *Lab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	ds, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	return l.NewSimulatorBySetting(ds, seed)
}

// BuildRuntime 進入執行階段：Freeze catalog，並為每個分布建立 poolSize 個 Sampler 的 TablePool。
func (l *Lab) BuildRuntime(poolSize int) (*Runtime, error) {
	l.Freeze()

	ids := l.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no dists registered")
	}

	rt := &Runtime{
		lab:      l,
		pools:    make(map[spec.DID]*TablePool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	for _, id := range ids {
		b, err := l.load(id)
		if err != nil {
			return nil, err
		}
		seed, err := core.NewSeed()
		if err != nil {
			return nil, err
		}
		rt.pools[id] = newTablePool(rt.poolSize, b.ds, b.t, l.cf, seed)
	}
	l.log.Info("runtime built", slog.Int("dists", len(ids)), slog.Int("pool_size", rt.poolSize))
	return rt, nil
}
