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

package spec

import (
	"strconv"
	"strings"

	"github.com/zintix-labs/fldr/errs"
	"github.com/zintix-labs/fldr/sdk/ddg"
)

// DID 為分布在 Catalog 內的唯一識別碼。
type DID uint

// DistSetting 描述一個可建表的離散分布。
//
//	id: 1
//	name: loaded-die
//	path: int          # int | float
//	ints: [1, 1, 2, 3, 1]
//	labels: [a, b, c, d, e]
//
// path 為 int 時只能填 ints，為 float 時只能填 floats。labels 可省略，
// 若有填則長度需與權重相同，只用於報表顯示。
type DistSetting struct {
	ID     DID       `yaml:"id"     json:"id"`
	Name   string    `yaml:"name"   json:"name"`
	Path   string    `yaml:"path"   json:"path"`
	Ints   []int64   `yaml:"ints"   json:"ints,omitempty"`
	Floats []float64 `yaml:"floats" json:"floats,omitempty"`
	Labels []string  `yaml:"labels" json:"labels,omitempty"`

	path ddg.Path
}

// init
func (ds *DistSetting) init() error {
	ds.Name = strings.ToLower(strings.TrimSpace(ds.Name))
	p, err := ddg.ParsePath(strings.ToLower(strings.TrimSpace(ds.Path)))
	if err != nil {
		return err
	}
	ds.path = p
	ds.Path = p.String()
	return ds.valid()
}

// valid 只檢查設定層面的問題；權重本身（負數、全零、NaN）交給建表時判斷。
func (ds *DistSetting) valid() error {
	switch ds.path {
	case ddg.PathInt:
		if len(ds.Floats) != 0 {
			return errs.Kindf(errs.KindInvalidDistribution, "dist %q: path int but floats given", ds.Name)
		}
	case ddg.PathFloat:
		if len(ds.Ints) != 0 {
			return errs.Kindf(errs.KindInvalidDistribution, "dist %q: path float but ints given", ds.Name)
		}
	}
	n := ds.Len()
	if n == 0 {
		return errs.Kindf(errs.KindInvalidDistribution, "dist %q: empty weights", ds.Name)
	}
	if len(ds.Labels) != 0 && len(ds.Labels) != n {
		return errs.Kindf(errs.KindInvalidDistribution,
			"dist %q: %d labels for %d weights", ds.Name, len(ds.Labels), n)
	}
	return nil
}

// PathKind 回傳建表路徑。
func (ds *DistSetting) PathKind() ddg.Path {
	return ds.path
}

// Len 回傳權重個數。
func (ds *DistSetting) Len() int {
	if ds.path == ddg.PathFloat {
		return len(ds.Floats)
	}
	return len(ds.Ints)
}

// Label 回傳第 i 個結果的顯示名稱，未設定時為索引字串。
func (ds *DistSetting) Label(i int) string {
	if i >= 0 && i < len(ds.Labels) {
		return ds.Labels[i]
	}
	return strconv.Itoa(i)
}

// Build 依設定的路徑建出 DDG 表。
func (ds *DistSetting) Build() (*ddg.Table, error) {
	var (
		t   *ddg.Table
		err error
	)
	if ds.path == ddg.PathFloat {
		t, err = ddg.BuildFloat(ds.Floats)
	} else {
		t, err = ddg.BuildInt(ds.Ints)
	}
	if err != nil {
		return nil, errs.WrapWithExtra(err, "build table failed", "dist="+ds.Name)
	}
	return t, nil
}
