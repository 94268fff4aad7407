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

// Package demo 以內嵌的 demo_configs 組出可直接使用的 Lab 與服務設定。
package demo

import (
	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/catalog"
	"github.com/zintix-labs/fldr/demo/demo_configs"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/server/logger"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

// DefaultPoolSize 為 demo 服務每個分布的 Sampler 數量。
const DefaultPoolSize = 2

func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewLab 註冊並凍結全部 demo 分布。
func NewLab(opts ...fldr.Option) (*fldr.Lab, error) {
	return fldr.NewAuto(core.Default(), fldr.Configs(demo_configs.FS), opts...)
}

func NewServerConfig() (*svrcfg.SvrCfg, error) {
	log := logger.NewDefaultAsyncLogger(logger.ModeDev)
	lab, err := NewLab(fldr.WithLogger(log))
	if err != nil {
		return nil, errs.NewFatal("new lab failed:" + err.Error())
	}
	return &svrcfg.SvrCfg{
		Log:      log,
		PoolSize: DefaultPoolSize,
		Lab:      lab,
	}, nil
}
