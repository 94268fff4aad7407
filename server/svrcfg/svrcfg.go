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

// Package svrcfg 為 HTTP 服務的組裝設定。
package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/server/logger"
)

const (
	MinPoolSize = 1
	MaxPoolSize = 64
)

// SvrCfg 服務設定
//   - Log：nil 時使用靜默的非同步 logger。
//   - PoolSize：每個分布的 Sampler 數量，限制在 [MinPoolSize, MaxPoolSize]。
//   - Lab：必須已註冊完成。
//   - Addr：監聽位址，空字串使用預設值。
type SvrCfg struct {
	Log      *slog.Logger
	PoolSize int
	Lab      *fldr.Lab
	Addr     string
}

func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeSilence)
	}

	sc.PoolSize = max(MinPoolSize, sc.PoolSize)
	sc.PoolSize = min(MaxPoolSize, sc.PoolSize)
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	return nil
}
