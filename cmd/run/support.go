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

package main

import (
	"bufio"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/corefmt"
	"github.com/zintix-labs/fldr/ddgfmt"
	"github.com/zintix-labs/fldr/demo"
	"github.com/zintix-labs/fldr/sdk/alias"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/sdk/ddg"
	"github.com/zintix-labs/fldr/spec"
	"github.com/zintix-labs/fldr/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxStateBytes 為 -state 檔案的上限；核心快照只有數十位元組。
const maxStateBytes = 1 << 16

var cfg *config = new(config)

type config struct {
	n         int
	in        string
	float     bool
	write     bool
	dist      string
	sim       bool
	cmp       bool
	workers   int
	seed      int64
	state     string
	report    string
	pprofmode string
}

func bindVar() {
	flag.IntVar(&cfg.n, "n", 10, "number of samples (per worker with -sim)")
	flag.StringVar(&cfg.in, "in", "", "weights file: \"n w1 ... wn\"")
	flag.BoolVar(&cfg.float, "float", false, "read -in weights as floats")
	flag.BoolVar(&cfg.write, "write", false, "write the ddg table next to -in (.fldr / .fldrf)")
	flag.StringVar(&cfg.dist, "dist", "", "embedded distribution id or name")
	flag.BoolVar(&cfg.sim, "sim", false, "simulate and print a stats report instead of samples")
	flag.BoolVar(&cfg.cmp, "cmp", false, "compare flips/sample against the alias method (int path)")
	flag.IntVar(&cfg.workers, "workers", 1, "number of simulation workers")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.state, "state", "", "core state file: restored before sampling, rewritten after")
	flag.StringVar(&cfg.report, "report", "", "report format with -sim: '' (table), json, yaml, csv")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	if cfg.seed < 0 {
		seed, err := core.NewSeed()
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed
	}
}

// execute 依旗標分支：模擬或抽樣。
func execute() {
	cfg.valid()

	lab, err := demo.NewLab()
	if err != nil {
		log.Fatal(err)
	}
	ds, t, err := cfg.load(lab)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.write {
		if err := writeTable(cfg.in, t); err != nil {
			log.Fatal(err)
		}
	}
	if cfg.sim {
		simulate(lab, ds)
		return
	}
	if cfg.cmp {
		if err := compare(ds, t); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := sample(t); err != nil {
		log.Fatal(err)
	}
}

func (cfg *config) valid() {
	if (cfg.in == "") == (cfg.dist == "") {
		log.Fatal("value err : exactly one of -in or -dist is required")
	}
	if cfg.write && cfg.in == "" {
		log.Fatal("value err : -write needs -in")
	}
	if cfg.n < 1 {
		log.Fatal("value err : n must > 0")
	}
	if cfg.workers < 1 {
		log.Fatal("value err : workers must > 0")
	}
	if cfg.report != "" && stats.RenderByName(cfg.report) == nil {
		log.Fatal("value err : report must be json, yaml or csv")
	}
}

// load 取得分布設定與表：-in 讀檔建表，-dist 由內建目錄取得（接受 id 或名稱）。
func (cfg *config) load(lab *fldr.Lab) (*spec.DistSetting, *ddg.Table, error) {
	if cfg.in != "" {
		path := ddg.PathInt
		if cfg.float {
			path = ddg.PathFloat
		}
		f, err := os.Open(cfg.in)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		w, err := ddgfmt.ReadWeights(bufio.NewReader(f), path)
		if err != nil {
			return nil, nil, err
		}
		ds, err := spec.NewDistSetting(filepath.Base(cfg.in), path.String(), w.Ints, w.Floats)
		if err != nil {
			return nil, nil, err
		}
		t, err := ds.Build()
		if err != nil {
			return nil, nil, err
		}
		return ds, t, nil
	}

	id, ok := lab.EntryByName(cfg.dist)
	if !ok {
		u, err := strconv.ParseUint(cfg.dist, 10, 0)
		if err != nil {
			return nil, nil, errors.New("dist not found: " + cfg.dist)
		}
		if id, ok = lab.EntryById(spec.DID(u)); !ok {
			return nil, nil, errors.New("dist not found: " + cfg.dist)
		}
	}
	ds, err := lab.Setting(id.ID)
	if err != nil {
		return nil, nil, err
	}
	t, err := lab.Table(id.ID)
	if err != nil {
		return nil, nil, err
	}
	return ds, t, nil
}

func writeTable(in string, t *ddg.Table) error {
	return os.WriteFile(in+ddgfmt.Ext(t.Path), ddgfmt.Marshal(t), 0o644)
}

// sample 依序輸出 n 個樣本（空白分隔），與權重檔的索引一致。
func sample(t *ddg.Table) error {
	c := core.New(core.Default().New(cfg.seed))
	if cfg.state != "" {
		if err := restoreState(c, cfg.state); err != nil {
			return err
		}
	}

	w := bufio.NewWriter(os.Stdout)
	for i := 0; i < cfg.n; i++ {
		w.WriteString(strconv.Itoa(t.Sample(c)))
		w.WriteByte(' ')
	}
	w.WriteByte('\n')
	if err := w.Flush(); err != nil {
		return err
	}

	if cfg.state != "" {
		return saveState(c, cfg.state)
	}
	return nil
}

// compare 以相同種子各抽 n 次，輸出 DDG 與 alias 每次抽樣平均消耗的位元數。
func compare(ds *spec.DistSetting, t *ddg.Table) error {
	if t.Path != ddg.PathInt {
		return errors.New("value err : -cmp needs int weights")
	}
	at, err := alias.Build(ds.Ints)
	if err != nil {
		return err
	}
	cd := core.New(core.Default().New(cfg.seed))
	ca := core.New(core.Default().New(cfg.seed))
	for i := 0; i < cfg.n; i++ {
		t.Sample(cd)
		at.Pick(ca)
	}

	p := message.NewPrinter(language.English)
	p.Printf("%-6s %12s %10s\n", "method", "flips", "flips/n")
	p.Printf("%-6s %12d %10.4f\n", "ddg", cd.Flips(), float64(cd.Flips())/float64(cfg.n))
	p.Printf("%-6s %12d %10.4f\n", "alias", ca.Flips(), float64(ca.Flips())/float64(cfg.n))
	return nil
}

func restoreState(c *core.Core, name string) error {
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := corefmt.ReadState(f, maxStateBytes)
	if err != nil {
		return err
	}
	return c.Restore(snap)
}

func saveState(c *core.Core, name string) error {
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := corefmt.WriteState(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func simulate(lab *fldr.Lab, ds *spec.DistSetting) {
	var (
		s   *fldr.Simulator
		err error
	)
	if ds.ID != 0 {
		s, err = lab.NewSimulatorWithSeed(ds.ID, cfg.seed)
	} else {
		s, err = lab.NewSimulatorBySetting(ds, cfg.seed)
	}
	if err != nil {
		log.Fatal(err)
	}

	green := "\033[1;32m"
	reset := "\033[0m"
	quiet := cfg.report != ""
	if !quiet {
		p := message.NewPrinter(language.English)
		p.Printf("%s[DIST:%s] [WORKERS:%d] [SAMPLES:%d] [SEED:%d]%s\n", green, ds.Name, cfg.workers, cfg.workers*cfg.n, cfg.seed, reset)
	}

	var st *stats.Report
	if cfg.workers == 1 {
		r, used, err := s.Sim(cfg.n, !quiet)
		if err != nil {
			log.Fatal(err)
		}
		st = r
		if !quiet {
			st.StdOut(used)
		}
	} else {
		r, used, err := s.SimMP(cfg.n, cfg.workers, !quiet)
		if err != nil {
			log.Fatal(err)
		}
		st = r
		if !quiet {
			st.StdOut(used)
		}
	}
	if quiet {
		if err := st.WriteWith(os.Stdout, stats.RenderByName(cfg.report)); err != nil {
			log.Fatal(err)
		}
	}
}
