// Copyright 2026 The restd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", 200, 0.01)
	m.ObserveRequest("GET", 200, 0.02)
	m.ObserveRequest("PUT", 400, 0.01)
	m.IncParseFailure()
	m.IncInflight()
	m.DecInflight()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("PUT", "400")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.parseFailures))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", 200, 0.01)
		m.IncParseFailure()
		m.IncInflight()
		m.DecInflight()
	})
}
