// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package prometheus provides functions that are useful to control and manage
// the built-in prometheus instance.
package prometheus

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/purpleidea/fsconverge/util/errwrap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is the default listen address. It's the port that is
// registered for mgmt, which we share, since they're unlikely to run together
// and it's already known to firewalls.
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is the struct that contains information about the
// prometheus instance. Run Init() on it.
type Prometheus struct {
	Listen string // the listen specification for the net/http server

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	registry                *prometheus.Registry
	convergeTotal           *prometheus.CounterVec // total of converges that have run
	failuresTotal           *prometheus.CounterVec // total of failures by class
	processStartTimeSeconds prometheus.Gauge       // process start time in seconds since unix epoch

	server *http.Server
}

// Init some parameters - currently the Listen address.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	obj.registry = prometheus.NewRegistry()

	obj.convergeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsconverge_converge_total",
			Help: "Number of converges that have run.",
		},
		// Labels for this metric.
		// state: the desired state: file, directory, link or absent
		// apply: if the converge happened in "apply" mode
		// changed: did the converge change something
		// failed: did the converge return an error
		[]string{"state", "apply", "changed", "failed"},
	)
	if err := obj.registry.Register(obj.convergeTotal); err != nil {
		return errwrap.Wrapf(err, "can't register the converge metric")
	}

	obj.failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsconverge_failures_total",
			Help: "Number of converges that failed, by reason.",
		},
		[]string{"reason"},
	)
	if err := obj.registry.Register(obj.failuresTotal); err != nil {
		return errwrap.Wrapf(err, "can't register the failures metric")
	}

	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fsconverge_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)
	if err := obj.registry.Register(obj.processStartTimeSeconds); err != nil {
		return errwrap.Wrapf(err, "can't register the start time metric")
	}
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()

	return nil
}

// InitStateMetrics creates every series for these states and failure reasons,
// so that they're exported with a zero value before anything happens.
func (obj *Prometheus) InitStateMetrics(states, reasons []string) {
	bools := []bool{true, false}
	for _, state := range states {
		for _, apply := range bools {
			for _, changed := range bools {
				for _, failed := range bools {
					obj.convergeTotal.With(convergeLabels(state, apply, changed, failed))
				}
			}
		}
	}
	for _, reason := range reasons {
		obj.failuresTotal.With(prometheus.Labels{"reason": reason})
	}
}

// Handler returns the http handler which serves the metrics.
func (obj *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the registry so the metrics can be read directly.
func (obj *Prometheus) Gatherer() prometheus.Gatherer {
	return obj.registry
}

// Start runs a http server in a go routine, that responds to /metrics
// as prometheus would expect.
func (obj *Prometheus) Start() error {
	listener, err := net.Listen("tcp", obj.Listen)
	if err != nil {
		return errwrap.Wrapf(err, "can't listen on %s", obj.Listen)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", obj.Handler())
	obj.server = &http.Server{Handler: mux}
	go func() {
		err := obj.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && obj.Logf != nil {
			obj.Logf("server exited: %+v", err)
		}
	}()
	return nil
}

// Stop the http server.
func (obj *Prometheus) Stop() error {
	if obj.server == nil {
		return nil
	}
	return obj.server.Shutdown(context.Background())
}

// UpdateConvergeTotal counts a converge.
func (obj *Prometheus) UpdateConvergeTotal(state string, apply, changed, failed bool) error {
	metric := obj.convergeTotal.With(convergeLabels(state, apply, changed, failed))
	metric.Inc()
	return nil
}

// UpdateFailuresTotal counts a failure of this reason.
func (obj *Prometheus) UpdateFailuresTotal(reason string) error {
	if reason == "" {
		reason = "unknown"
	}
	obj.failuresTotal.With(prometheus.Labels{"reason": reason}).Inc()
	return nil
}

func convergeLabels(state string, apply, changed, failed bool) prometheus.Labels {
	return prometheus.Labels{
		"state":   state,
		"apply":   strconv.FormatBool(apply),
		"changed": strconv.FormatBool(changed),
		"failed":  strconv.FormatBool(failed),
	}
}
