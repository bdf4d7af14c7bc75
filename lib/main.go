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

// Package lib is the core library of fsconverge. It runs a batch of resources
// once, or over and over as things change, and reports on what happened.
package lib

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/prometheus"
	"github.com/purpleidea/fsconverge/seclabel"
	"github.com/purpleidea/fsconverge/util"
	"github.com/purpleidea/fsconverge/util/errwrap"

	"gopkg.in/yaml.v2"
)

// Config is a struct for all the configuration values for the Main struct. By
// including this as a separate struct, it can be used as part of the API. This
// API is not considered stable at this time, and is subject to change.
type Config struct {
	// Debug adds additional log messages.
	Debug bool `arg:"--debug,env:FSCONVERGE_DEBUG" help:"add additional log messages"`

	// Noop only checks what would change, without changing anything.
	Noop bool `arg:"--noop,env:FSCONVERGE_NOOP" help:"check what would change without changing anything"`

	// Watch keeps running, and converges each resource again every time
	// something about it changes.
	Watch bool `arg:"--watch,env:FSCONVERGE_WATCH" help:"converge again every time something changes"`

	// NoLabels ignores security labels even when the system supports them.
	NoLabels bool `arg:"--no-labels,env:FSCONVERGE_NO_LABELS" help:"don't manage security labels"`

	// Prometheus enables prometheus metrics.
	Prometheus bool `arg:"--prometheus,env:FSCONVERGE_PROMETHEUS" help:"start a prometheus instance"`

	// PrometheusListen is the prometheus instance bind specification.
	PrometheusListen string `arg:"--prometheus-listen,env:FSCONVERGE_PROMETHEUS_LISTEN" help:"specify prometheus instance binding"`
}

// Main is the main struct for running the fsconverge logic.
type Main struct {
	*Config // embedded config

	Program string // the name of this program, usually set at compile time
	Version string // the version of this program, usually set at compile time

	// Resources is the batch to converge. Each one is independent.
	Resources []engine.Res

	// Fs is the file system to use. If nil, the local one is used.
	Fs engine.Fs

	// Labeler is the security label implementation. If nil, the best one
	// for this host is used.
	Labeler seclabel.Labeler

	// Output is where the results are written as yaml documents. If nil,
	// os.Stdout is used.
	Output io.Writer

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})

	prometheus *prometheus.Prometheus
	mutex      sync.Mutex // guards the output
}

// Validate validates the main structure without making any modifications to
// it.
func (obj *Main) Validate() error {
	if obj.Config == nil {
		return fmt.Errorf("config struct is nil")
	}
	if obj.Program == "" || obj.Version == "" {
		return fmt.Errorf("you must set the Program and Version strings")
	}
	if obj.Logf == nil {
		return fmt.Errorf("the Logf function must be specified")
	}
	if len(obj.Resources) == 0 {
		return fmt.Errorf("there is nothing to converge")
	}
	for i, res := range obj.Resources {
		if res == nil {
			return fmt.Errorf("resource #%d is nil", i)
		}
	}
	if obj.PrometheusListen != "" && !obj.Prometheus {
		return fmt.Errorf("you can't specify listen address if prometheus is disabled")
	}
	return nil
}

// Run is the main execution entrypoint. It converges every resource once. If
// any fail, it returns all of the errors together. In watch mode, it then keeps
// running until the context is cancelled, and failures are only logged.
func (obj *Main) Run(ctx context.Context) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	if obj.Fs == nil {
		obj.Fs = util.NewOsFs()
	}
	if obj.Labeler == nil {
		obj.Labeler = seclabel.New(obj.Debug, func(format string, v ...interface{}) {
			obj.Logf("seclabel: "+format, v...)
		})
	}
	if obj.NoLabels {
		obj.Labeler = &seclabel.Stub{}
	}
	if !obj.Labeler.Enabled() && obj.Debug {
		obj.Logf("security labels are not supported")
	}
	if obj.Output == nil {
		obj.Output = os.Stdout
	}

	if obj.Prometheus {
		obj.prometheus = &prometheus.Prometheus{
			Listen: obj.PrometheusListen,
			Logf: func(format string, v ...interface{}) {
				obj.Logf("prometheus: "+format, v...)
			},
		}
		if err := obj.prometheus.Init(); err != nil {
			return errwrap.Wrapf(err, "can't initialize prometheus instance")
		}
		reasons := []string{}
		for _, class := range engine.Errors {
			reasons = append(reasons, string(class))
		}
		obj.prometheus.InitStateMetrics([]string{"file", "directory", "link", "absent"}, reasons)
		obj.Logf("prometheus: starting instance on %s", obj.prometheus.Listen)
		if err := obj.prometheus.Start(); err != nil {
			return errwrap.Wrapf(err, "can't start prometheus instance")
		}
		defer func() {
			obj.Logf("prometheus: stopping instance")
			if err := obj.prometheus.Stop(); err != nil {
				obj.Logf("prometheus: error stopping instance: %+v", err)
			}
		}()
	}

	// an invalid resource is reported as a failure, and the others still run
	invalid := make(map[engine.Res]error)
	for _, res := range obj.Resources {
		if err := engine.Validate(res); err != nil {
			invalid[res] = err
		}
	}

	events := make(map[engine.Res]chan struct{})
	for _, res := range obj.Resources {
		if _, exists := invalid[res]; exists {
			continue
		}
		ch := make(chan struct{}, 1) // coalesces bursts of events
		events[res] = ch
		init := &engine.Init{
			Program: obj.Program,
			Fs:      obj.Fs,
			Labeler: obj.Labeler,
			Event: func() { // only called from within Watch
				select {
				case ch <- struct{}{}:
				default: // one is already pending
				}
			},
			Debug: obj.Debug,
			Logf: func(format string, v ...interface{}) {
				obj.Logf(fmt.Sprintf("%s: ", res)+format, v...)
			},
		}
		if err := res.Init(init); err != nil {
			return errwrap.Wrapf(err, "could not init %s", res)
		}
		defer res.Cleanup()
	}

	var reterr error
	for _, res := range obj.Resources {
		if err, exists := invalid[res]; exists {
			reterr = errwrap.Append(reterr, obj.report(res, !obj.Noop, nil, err))
			continue
		}
		reterr = errwrap.Append(reterr, obj.converge(res))
	}
	if !obj.Watch {
		return reterr
	}
	if reterr != nil {
		obj.Logf("%d failed, watching anyways", errwrap.Len(reterr))
	}

	return obj.watch(ctx, events)
}

// watch runs a watcher for each resource and converges it on every event. It
// exits when the context is cancelled, or if any watcher fails.
func (obj *Main) watch(ctx context.Context, events map[engine.Res]chan struct{}) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	var reterr error
	var errMutex sync.Mutex
	for _, res := range obj.Resources {
		ch, exists := events[res]
		if !exists { // invalid, so it was never initialized
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel() // if one watcher dies, we all do
			if err := res.Watch(ctx); err != nil {
				errMutex.Lock()
				reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "watch of %s failed", res))
				errMutex.Unlock()
			}
		}()

		wg.Add(1)
		go func(ch chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ch:
					obj.converge(res) // errors were already reported
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	<-ctx.Done()
	wg.Wait()
	errMutex.Lock()
	defer errMutex.Unlock()
	return reterr
}

// converge runs a single resource and reports on it.
func (obj *Main) converge(res engine.Res) error {
	apply := !obj.Noop
	result, err := res.Converge(apply)
	return obj.report(res, apply, result, err)
}

// report counts and writes out the outcome of a single resource. It returns the
// error that it was passed, with any problem writing the report appended.
func (obj *Main) report(res engine.Res, apply bool, result *engine.Result, err error) error {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()

	if obj.prometheus != nil {
		state := "unknown"
		if x, ok := res.(interface{ DesiredState() string }); ok {
			state = x.DesiredState()
		}
		changed := result != nil && result.Changed
		obj.prometheus.UpdateConvergeTotal(state, apply, changed, err != nil)
		if err != nil {
			obj.prometheus.UpdateFailuresTotal(string(engine.ErrorClass(err)))
		}
	}

	var doc interface{} = result
	if err != nil {
		obj.Logf("%s: failed: %+v", res, err)
		fe, ok := err.(*engine.FileError)
		if !ok {
			fe = engine.NewFileError(res.String(), err, nil)
		}
		doc = &Failure{Failed: true, FileError: *fe}
	} else if result.Changed {
		verb := "changed"
		if !apply {
			verb = "would change"
		}
		obj.Logf("%s: %s", res, verb)
	}

	b, e := yaml.Marshal(doc)
	if e != nil {
		return errwrap.Append(err, errwrap.Wrapf(e, "can't encode result"))
	}
	if _, e := fmt.Fprintf(obj.Output, "---\n%s", b); e != nil {
		return errwrap.Append(err, errwrap.Wrapf(e, "can't write result"))
	}
	return err
}

// Failure is the yaml document written for a failed resource.
type Failure struct {
	Failed bool `yaml:"failed"`

	engine.FileError `yaml:",inline"`
}
