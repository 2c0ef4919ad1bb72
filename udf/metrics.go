// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts function calls.  A Metrics may be shared by any number of
// sessions.
type Metrics struct {
	calls      *prometheus.CounterVec
	errors     *prometheus.CounterVec
	warnings   *prometheus.CounterVec
	constHits  *prometheus.CounterVec
	arenaBytes prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, unless reg
// is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bjson_udf_calls_total",
			Help: "Function calls by function name.",
		}, []string{"func"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bjson_udf_errors_total",
			Help: "Function calls that returned an error result.",
		}, []string{"func"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bjson_udf_warnings_total",
			Help: "Warnings raised by function calls.",
		}, []string{"func"}),
		constHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bjson_udf_const_hits_total",
			Help: "Calls answered from the constant result cache.",
		}, []string{"func"}),
		arenaBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bjson_udf_arena_bytes",
			Help:    "Arena bytes in use at the end of a function call.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.calls, m.errors, m.warnings, m.constHits, m.arenaBytes}
}

func (m *Metrics) observe(name string, r *Result, used int) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(name).Inc()
	if r.Error {
		m.errors.WithLabelValues(name).Inc()
	}
	if n := len(r.Warnings); n > 0 {
		m.warnings.WithLabelValues(name).Add(float64(n))
	}
	m.arenaBytes.Observe(float64(used))
}

func (m *Metrics) constHit(name string) {
	if m != nil {
		m.constHits.WithLabelValues(name).Inc()
	}
}
