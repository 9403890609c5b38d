// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package metrics holds the prometheus metrics of the mirror verify engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Ops counts Prepare and Complete calls, labelled by "op".
	Ops = NewOpMetric("mirror_verify_ops", "op")

	events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_verify_events",
		Help: "Events sent to the event log.",
	}, []string{"code", "severity"})

	suppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_verify_events_suppressed",
		Help: "Events dropped before the event log.",
	}, []string{"code", "why"})

	pages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_verify_pages",
		Help: "Buffer pages requested from the allocator.",
	}, []string{"kind"})
)

// Event counts one emitted event.
func Event(code, severity string) {
	events.WithLabelValues(code, severity).Inc()
}

// Suppressed counts one event that was not emitted.
func Suppressed(code, why string) {
	suppressed.WithLabelValues(code, why).Inc()
}

// Pages counts allocated pages.
func Pages(data, control int) {
	pages.WithLabelValues("data").Add(float64(data))
	pages.WithLabelValues("control").Add(float64(control))
}

// EventCount returns how many events with code and severity were emitted.
func EventCount(code, severity string) uint64 {
	return read(events.WithLabelValues(code, severity))
}

// SuppressedCount returns how many events with code were dropped for why.
func SuppressedCount(code, why string) uint64 {
	return read(suppressed.WithLabelValues(code, why))
}

// PageCount returns how many pages of kind were requested.
func PageCount(kind string) uint64 {
	return read(pages.WithLabelValues(kind))
}

func read(c prometheus.Counter) uint64 {
	var value dto.Metric
	if c.Write(&value) != nil {
		return 0
	}
	return uint64(value.GetCounter().GetValue())
}
