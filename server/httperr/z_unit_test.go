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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/fldr/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"deadline", errs.Wrap(context.DeadlineExceeded, "sample"), http.StatusGatewayTimeout},
		{"canceled", fmt.Errorf("x: %w", context.Canceled), http.StatusRequestTimeout},
		{"invalid weight", errs.Kindf(errs.KindInvalidWeight, "nan"), http.StatusUnprocessableEntity},
		{"wrapped invalid dist", errs.Wrap(errs.Kindf(errs.KindInvalidDistribution, "zero"), "build"), http.StatusUnprocessableEntity},
		{"plain warn", errs.NewWarn("count must > 0"), http.StatusBadRequest},
		{"fatal", errs.NewFatal("pool closed"), http.StatusInternalServerError},
		{"structural", errs.Kindf(errs.KindStructuralInvariant, "level overflow"), http.StatusInternalServerError},
		{"foreign", errors.New("disk"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Errorf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.Kindf(errs.KindInvalidWeight, "weight must be finite"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %d", rec.Code)
	}
	var b Body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Kind != "invalid weight" || b.Status != rec.Code {
		t.Fatalf("unexpected body %+v", b)
	}

	rec = httptest.NewRecorder()
	Errs(rec, nil)
	if rec.Body.Len() != 0 {
		t.Fatalf("nil error must not write")
	}
}
