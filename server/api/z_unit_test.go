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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/fldr"
	"github.com/zintix-labs/fldr/catalog"
	"github.com/zintix-labs/fldr/demo/demo_configs"
	"github.com/zintix-labs/fldr/dto"
	"github.com/zintix-labs/fldr/sdk/core"
	"github.com/zintix-labs/fldr/server/httperr"
	"github.com/zintix-labs/fldr/server/logger"
	"github.com/zintix-labs/fldr/server/netsvr"
	"github.com/zintix-labs/fldr/server/svrcfg"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	lab, err := fldr.NewAuto(core.Default(), fldr.Configs(demo_configs.FS))
	require.NoError(t, err)
	sCfg := &svrcfg.SvrCfg{
		Log:      logger.NewDefaultLogger(logger.ModeSilence),
		PoolSize: 2,
		Lab:      lab,
	}
	require.NoError(t, sCfg.Valid())
	svr := netsvr.NewChiServer("")
	require.NoError(t, RegisterRoutes(svr, sCfg))
	ts := httptest.NewServer(svr)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func post(t *testing.T, url string, body string) (int, []byte, http.Header) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b, resp.Header
}

func TestIndexAndDists(t *testing.T) {
	ts := newTestServer(t)

	code, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "/v1/sample")

	code, body = get(t, ts.URL+"/v1/dists")
	require.Equal(t, http.StatusOK, code)
	var sum []catalog.Summary
	require.NoError(t, json.Unmarshal(body, &sum))
	require.Len(t, sum, 7)
	assert.Equal(t, "loaded-die", sum[0].Name)
	assert.Equal(t, 3, sum[0].K)
}

func TestSampleRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, body := get(t, ts.URL+"/v1/sample?dist=loaded-die&count=5")
	require.Equal(t, http.StatusOK, code, string(body))
	var res dto.SampleResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.Samples, 5)
	assert.Len(t, res.Labels, 5)
	assert.Equal(t, uint64(1), uint64(res.DistId))

	// 以 start_b64u 回放同一段串流
	code, body = get(t, ts.URL+"/v1/sample?id=1&count=5&start_b64u="+res.State.StartCoreSnapB64U)
	require.Equal(t, http.StatusOK, code, string(body))
	var replay dto.SampleResult
	require.NoError(t, json.Unmarshal(body, &replay))
	assert.Equal(t, res.Samples, replay.Samples)
	assert.Equal(t, res.State.AfterCoreSnapB64U, replay.State.AfterCoreSnapB64U)

	code, body, _ = post(t, ts.URL+"/v1/sample", `{"id": 7, "count": 3}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, []int{1, 1, 1}, res.Samples)
	assert.Equal(t, uint64(0), res.Flips)

	for _, bad := range []string{
		"/v1/sample",
		"/v1/sample?id=1&count=0x",
		"/v1/sample?id=99",
		"/v1/sample?dist=nope",
		"/v1/sample?id=1&count=1000000",
		"/v1/sample?id=1&start_b64u=!!",
	} {
		code, _ := get(t, ts.URL+bad)
		assert.Equal(t, http.StatusBadRequest, code, bad)
	}
	code, _, _ = post(t, ts.URL+"/v1/sample", `{"id": 1, "bogus": true}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = get(t, ts.URL+"/v1/metrics")
	require.Equal(t, http.StatusOK, code)
	var ms []fldr.TablePoolMetrics
	require.NoError(t, json.Unmarshal(body, &ms))
	require.Len(t, ms, 7)
	assert.Equal(t, 2, ms[0].PoolSize)
	assert.Equal(t, uint64(10), ms[0].Samples)
}

func TestPreprocess(t *testing.T) {
	ts := newTestServer(t)

	code, body, _ := post(t, ts.URL+"/v1/preprocess", `{"ints": [1, 2]}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var tb dto.Table
	require.NoError(t, json.Unmarshal(body, &tb))
	assert.Equal(t, "3", tb.M)
	assert.Equal(t, "1", tb.R)
	assert.Equal(t, 2, tb.K)

	code, body, hdr := post(t, ts.URL+"/v1/preprocess?format=text", `{"name": "tiny", "path": "float", "floats": [0.25, 0.75]}`)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Contains(t, hdr.Get("Content-Disposition"), "tiny.fldrf")
	assert.True(t, bytes.HasPrefix(body, []byte("2 2")), string(body))

	code, body, hdr = post(t, ts.URL+"/v1/preprocess", `{"ints": [0, 0]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, hdr.Get("Content-Type"), "application/json")
	var eb httperr.Body
	require.NoError(t, json.Unmarshal(body, &eb))
	assert.Equal(t, http.StatusUnprocessableEntity, eb.Status)
	assert.Equal(t, "invalid distribution", eb.Kind)
	code, _, _ = post(t, ts.URL+"/v1/preprocess", `{"path": "float", "floats": [-1]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _, _ = post(t, ts.URL+"/v1/preprocess?format=xml", `{"ints": [1]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _, _ = post(t, ts.URL+"/v1/preprocess", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSim(t *testing.T) {
	ts := newTestServer(t)

	code, body := get(t, ts.URL+"/v1/sim?dist=fair-coin&round=2000&seed=9")
	require.Equal(t, http.StatusOK, code, string(body))
	var resp struct {
		Stats struct {
			Summary struct {
				Samples int
			}
			Fit struct {
				PValue float64
			}
		} `json:"stats"`
		Seed int64 `json:"seed"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 2000, resp.Stats.Summary.Samples)
	assert.Equal(t, int64(9), resp.Seed)

	code, body, _ = post(t, ts.URL+"/v1/sim", `{"id": 4, "round": 500, "workers": 3}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 1500, resp.Stats.Summary.Samples)

	code, body, _ = post(t, ts.URL+"/v1/simbycfg", `{"name": "adhoc", "ints": [1, 2, 3], "round": 600, "seed": 1}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 600, resp.Stats.Summary.Samples)

	for _, bad := range []string{
		"/v1/sim?id=1",
		"/v1/sim?id=1&round=0",
		"/v1/sim?id=99&round=10",
		"/v1/sim?id=1&round=10&workers=100",
		"/v1/sim?id=2&dist=loaded-die&round=10",
	} {
		code, _ := get(t, ts.URL+bad)
		assert.Equal(t, http.StatusBadRequest, code, bad)
	}
	code, _, _ = post(t, ts.URL+"/v1/simbycfg", `{"ints": [0], "round": 10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestStat(t *testing.T) {
	ts := newTestServer(t)

	code, body, _ := post(t, ts.URL+"/v1/stat", `{"name": "ext", "probs": [0.5, 0.5], "counts": [700, 300]}`)
	require.Equal(t, http.StatusOK, code, string(body))
	var rep struct {
		Fit struct {
			ChiSq float64
			Pass  bool
		}
	}
	require.NoError(t, json.Unmarshal(body, &rep))
	assert.InDelta(t, 160.0, rep.Fit.ChiSq, 1e-9)
	assert.False(t, rep.Fit.Pass)

	code, _, _ = post(t, ts.URL+"/v1/stat", `{"probs": [0.5], "counts": [1, 2]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _, _ = post(t, ts.URL+"/v1/stat", `{"probs": [1], "counts": [-1]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/sample", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
