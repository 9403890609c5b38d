// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// OpMetric tracks counts and latencies of engine operations. It creates:
//   - a counter with the given name, label "result" and any additional labels.
//     Start increments "result"="all"; Failed and Split increment "failed" and
//     "split".
//   - a summary named name + "_latency", fed by End for operations that
//     didn't fail.
//   - a gauge named name + "_pending" with the number of operations between
//     Start and End.
//
// Metrics are registered with the default registry, so every name can only
// be used once per process.
type OpMetric struct {
	name      string
	counters  *prometheus.CounterVec
	latencies *prometheus.SummaryVec
	pending   *prometheus.GaugeVec
}

// NewOpMetric returns a new op metric.
func NewOpMetric(name string, labels ...string) *OpMetric {
	labelsWithResult := append([]string{"result"}, labels...)
	return &OpMetric{
		name:      name,
		counters:  promauto.NewCounterVec(prometheus.CounterOpts{Name: name}, labelsWithResult),
		latencies: promauto.NewSummaryVec(prometheus.SummaryOpts{Name: name + "_latency"}, labels),
		pending:   promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name + "_pending"}, labels),
	}
}

// Start marks that a new operation has started.
func (m *OpMetric) Start(values ...string) *Op {
	op := &Op{opm: m, values: values}
	op.Result("all")
	op.start = time.Now().UnixNano()
	m.pending.WithLabelValues(values...).Inc()
	return op
}

// Count returns the counter for result.
func (m *OpMetric) Count(result string, values ...string) uint64 {
	valuesWithResult := append([]string{result}, values...)
	var value dto.Metric
	if m.counters.WithLabelValues(valuesWithResult...).Write(&value) != nil {
		return 0
	}
	return uint64(value.GetCounter().GetValue())
}

// Pending returns the number of operations in flight.
func (m *OpMetric) Pending(values ...string) int64 {
	var value dto.Metric
	if m.pending.WithLabelValues(values...).Write(&value) != nil {
		return 0
	}
	return int64(value.GetGauge().GetValue())
}

// String returns a summary of latencies and failures.
func (m *OpMetric) String(values ...string) string {
	out := SummaryString(m.latencies.WithLabelValues(values...))
	return out + fmt.Sprintf(" / %d split / %d failed / %d pending",
		m.Count("split", values...), m.Count("failed", values...), m.Pending(values...))
}

// Op is one operation started with OpMetric.Start.
type Op struct {
	start  int64
	opm    *OpMetric
	values []string
}

// Failed records that the operation failed.
func (op *Op) Failed() {
	op.Result("failed")
}

// Split records that the operation was too big and has to be reduced.
func (op *Op) Split() {
	op.Result("split")
}

// Result records an arbitrary result. Latency is not recorded afterwards.
func (op *Op) Result(result string) {
	op.start = 0
	valuesWithResult := append([]string{result}, op.values...)
	op.opm.counters.WithLabelValues(valuesWithResult...).Inc()
}

// End records the elapsed time since Start.
func (op *Op) End() {
	if op.start != 0 {
		d := time.Duration(time.Now().UnixNano() - op.start)
		op.opm.latencies.WithLabelValues(op.values...).Observe(d.Seconds())
	}
	op.opm.pending.WithLabelValues(op.values...).Dec()
}

// EndWithError classifies err, then calls End.
func (op *Op) EndWithError(err error) {
	switch {
	case err == nil:
	case core.IsSplitRequired(err):
		op.Split()
	default:
		op.Failed()
	}
	op.End()
}

// SummaryString formats the count and quantiles of a summary.
func SummaryString(obs prometheus.Observer) string {
	sum, ok := obs.(prometheus.Summary)
	if !ok {
		return ""
	}
	var value dto.Metric
	if sum.Write(&value) != nil || value.Summary == nil {
		return ""
	}
	out := fmt.Sprintf("Total count=%d;", value.Summary.GetSampleCount())
	for _, q := range value.Summary.Quantile {
		out += fmt.Sprintf(" %gth=%.3f;", q.GetQuantile()*100, q.GetValue())
	}
	return out[:len(out)-1]
}
