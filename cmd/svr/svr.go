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
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/demo"
	"github.com/zintix-labs/fldr/server"
	"github.com/zintix-labs/fldr/server/logger"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

// 以內嵌的 demo 分布啟動 HTTP 服務。
//
//	go run ./cmd/svr -log-mode dev -pool 4 -addr :5808
func main() {
	cfg, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	server.Run(cfg)
}

type config struct {
	LogMode  string
	PoolSize int
	Addr     string
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, error) {
	cfg := new(config)
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.PoolSize, "pool", demo.DefaultPoolSize, "number of samplers per distribution")
	flag.StringVar(&cfg.Addr, "addr", "", "listen address (default :5808)")

	flag.Parse()

	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	log, _ := logger.NewAsync(4096, mode)

	lab, err := demo.NewLab(fldr.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &svrcfg.SvrCfg{
		Log:      log,
		PoolSize: cfg.PoolSize,
		Lab:      lab,
		Addr:     cfg.Addr,
	}, nil
}
