// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes device statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the Prometheus HTTP handler for reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

const namespace = "flashprobe"

var (
	framesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "frames_total"),
		"Command lines received.", nil, nil)
	commandsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "commands_total"),
		"Command lines by result.", []string{"result"}, nil)
	droppedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "dropped_bytes_total"),
		"Bytes dropped because a command line was full.", nil, nil)
	readoutsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "readouts_total"),
		"Readouts by phase.", []string{"phase"}, nil)
	wordsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "words_sent_total"),
		"Memory words transmitted.", nil, nil)
	readErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "read_errors_total"),
		"Memory words that could not be read.", nil, nil)
	bytesSentDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "bytes_sent_total"),
		"Bytes written to the transport.", nil, nil)
	sendErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "send_errors_total"),
		"Failed transport writes.", nil, nil)
	activeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "readout_active"),
		"1 once a readout has been started.", nil, nil)
	windowDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "readout_window_bytes"),
		"Configured readout window.", []string{"field"}, nil)
)

// Collector reads statistics and control state at scrape time
type Collector struct {
	stats *readout.Statistics
	state *readout.ControlState
}

// NewCollector creates a collector for one device
func NewCollector(stats *readout.Statistics, state *readout.ControlState) *Collector {
	return &Collector{stats: stats, state: state}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- framesDesc
	ch <- commandsDesc
	ch <- droppedDesc
	ch <- readoutsDesc
	ch <- wordsDesc
	ch <- readErrorsDesc
	ch <- bytesSentDesc
	ch <- sendErrorsDesc
	ch <- activeDesc
	ch <- windowDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(framesDesc, s.Frames)
	counter(commandsDesc, s.Commands, "ok")
	counter(commandsDesc, s.UnknownCommands, "unknown")
	counter(droppedDesc, s.DroppedBytes)
	counter(readoutsDesc, s.ReadoutsStarted, "started")
	counter(readoutsDesc, s.ReadoutsCompleted, "completed")
	counter(wordsDesc, s.WordsSent)
	counter(readErrorsDesc, s.ReadErrors)
	counter(bytesSentDesc, s.BytesSent)
	counter(sendErrorsDesc, s.SendErrors)

	st := c.state.Snapshot()
	active := 0.0
	if st.Active {
		active = 1
	}
	ch <- prometheus.MustNewConstMetric(activeDesc, prometheus.GaugeValue, active)
	ch <- prometheus.MustNewConstMetric(windowDesc, prometheus.GaugeValue, float64(st.Address), "address")
	ch <- prometheus.MustNewConstMetric(windowDesc, prometheus.GaugeValue, float64(st.Length), "length")
}
