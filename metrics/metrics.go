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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics processor 的请求级指标集合
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	parseFailures   prometheus.Counter
	inflight        prometheus.Gauge
}

// New 创建指标集合并注册至 reg 为 nil 时使用默认 Registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total handled http requests",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Http request handle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		parseFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_request_parse_failures_total",
				Help: "Total requests rejected by the parser",
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_inflight",
				Help: "Requests currently being handled",
			},
		),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration, m.parseFailures, m.inflight)
	return m
}

// ObserveRequest 记录一次完成的请求
func (m *Metrics) ObserveRequest(method string, statusCode int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(seconds)
}

// IncParseFailure 记录一次解析失败
func (m *Metrics) IncParseFailure() {
	if m == nil {
		return
	}
	m.parseFailures.Inc()
}

// IncInflight 请求进入处理
func (m *Metrics) IncInflight() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// DecInflight 请求处理结束
func (m *Metrics) DecInflight() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
