// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

// nullTransport accepts every write and never delivers input
type nullTransport struct{}

func (nullTransport) ReceiveByte(time.Duration) (byte, bool) { return 0, false }
func (nullTransport) SendBytes([]byte) error                 { return nil }

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollector(t *testing.T) {
	stats := readout.NewStatistics()
	state := readout.NewControlState()
	acc := readout.NewAccumulator(readout.NewInterpreter(state, nullTransport{}, nil, stats), stats)
	for _, b := range []byte("A10\rL8\rq\r") {
		acc.Receive(b)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(stats, state))
	families := gather(t, reg)

	require.Contains(t, families, "flashprobe_frames_total")
	assert.Equal(t, 3.0, families["flashprobe_frames_total"].GetMetric()[0].GetCounter().GetValue())

	commands := map[string]float64{}
	for _, m := range families["flashprobe_commands_total"].GetMetric() {
		commands[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"ok": 2, "unknown": 1}, commands)

	window := map[string]float64{}
	for _, m := range families["flashprobe_readout_window_bytes"].GetMetric() {
		window[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"address": 0x10, "length": 8}, window)
	assert.Equal(t, 0.0, families["flashprobe_readout_active"].GetMetric()[0].GetGauge().GetValue())
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewCollector(readout.NewStatistics(), readout.NewControlState()))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "flashprobe_words_sent_total 0")
	assert.Contains(t, string(body), "go_goroutines")
}
