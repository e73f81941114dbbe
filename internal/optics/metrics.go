// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package optics

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Namespace prefixes every exported metric name
const Namespace = "ncexporter"

// Measurements are the per-channel optical readings, as named in the
// channel state
var Measurements = []string{"input-power", "laser-bias-current", "output-power"}

// Statistics are the leaves reported for each measurement
var Statistics = []string{"avg", "instant", "interval", "max", "max-time", "min", "min-time"}

// Metrics holds one gauge per measurement and statistic on a private
// registry, labelled by device, component and channel
type Metrics struct {
	registry *prometheus.Registry
	gauges   map[string]map[string]*prometheus.GaugeVec
}

// NewMetrics creates and registers every gauge
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]map[string]*prometheus.GaugeVec, len(Measurements)),
	}
	for _, measure := range Measurements {
		m.gauges[measure] = make(map[string]*prometheus.GaugeVec, len(Statistics))
		for _, stat := range Statistics {
			g := prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: Namespace,
					Name:      metricName(measure, stat),
					Help:      helpText(measure, stat),
				},
				[]string{"device", "component", "channel"},
			)
			m.registry.MustRegister(g)
			m.gauges[measure][stat] = g
		}
	}
	return m
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Update sets the gauges from a Summarize result and returns how many were
// set. Leaves that do not parse as numbers are skipped.
func (m *Metrics) Update(ctx context.Context, device, summary string) int {
	set := 0
	for _, comp := range gjson.Parse(summary).Array() {
		if comp.Get("present-state").String() != Present {
			continue
		}
		component := comp.Get("name").String()
		for i, ch := range comp.Get("channel").Array() {
			channel := ch.Get("index").String()
			if channel == "" {
				channel = strconv.Itoa(i)
			}
			for _, measure := range Measurements {
				for _, stat := range Statistics {
					leaf := ch.Get(measure + "." + stat)
					if !leaf.Exists() {
						continue
					}
					f, err := strconv.ParseFloat(strings.TrimSpace(leaf.String()), 64)
					if err != nil {
						log.Ctx(ctx).Warn().
							Str("device", device).
							Str("component", component).
							Str("leaf", measure+"/"+stat).
							Str("value", leaf.String()).
							Msg("skipping non-numeric optics leaf")
						continue
					}
					m.gauges[measure][stat].WithLabelValues(device, component, channel).Set(f)
					set++
				}
			}
		}
	}
	return set
}

func metricName(measure, stat string) string {
	return strings.ReplaceAll(measure+"_"+stat, "-", "_")
}

func helpText(measure, stat string) string {
	words := strings.Split(measure+"-"+stat, "-")
	for i, w := range words {
		if w == "avg" {
			w = "average"
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + "."
}
