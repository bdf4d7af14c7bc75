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

// Package recwatch provides file watching events via fsnotify for a single path
// which may not exist yet.
package recwatch

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"

	"github.com/purpleidea/fsconverge/util"

	"github.com/fsnotify/fsnotify"
)

// Event represents a watcher event. These can include errors.
type Event struct {
	Error error
	Body  *fsnotify.Event
}

// RecWatcher watches a path for changes to that entry. It watches the parent
// directory of the path, since the parent sees the creation, removal, renaming
// and attribute changes of the entry, even if the entry is a symlink. If some
// parents are missing, it watches the deepest one that exists, and then follows
// the path downwards as they get created, and back upwards if they're removed.
type RecWatcher struct {
	// Path is the computer path that we're watching.
	Path string

	// Opts are the list of options that we are using this with.
	Opts []Option

	options  *recwatchOptions // computed options
	safename string           // safe path
	watcher  *fsnotify.Watcher
	events   chan Event // one channel for events and err...
	closed   bool       // is the events channel closed?
	mutex    sync.Mutex // lock guarding the channel closing
	wg       sync.WaitGroup
	exit     chan struct{}
}

// NewRecWatcher creates an initializes a new watcher.
func NewRecWatcher(path string, opts ...Option) (*RecWatcher, error) {
	obj := &RecWatcher{
		Path: path,
		Opts: opts,
	}
	return obj, obj.Init()
}

// Init starts the file watcher.
func (obj *RecWatcher) Init() error {
	if !strings.HasPrefix(obj.Path, "/") {
		return fmt.Errorf("recwatch: path must be absolute")
	}
	obj.watcher = nil
	obj.events = make(chan Event)
	obj.exit = make(chan struct{})
	obj.safename = path.Clean(obj.Path) // no trailing slash
	obj.options = &recwatchOptions{     // default recwatch options
		debug: false,
		logf: func(format string, v ...interface{}) {
			// noop
		},
	}
	for _, optionFunc := range obj.Opts { // apply the recwatch options
		optionFunc(obj.options)
	}

	if obj.options.logf == nil {
		return fmt.Errorf("recwatch: logf must not be nil")
	}

	var err error
	obj.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	obj.wg.Add(1)
	go func() {
		defer obj.wg.Done()
		if err := obj.Watch(); err != nil {
			// we need this mutex, because if we Init and then Close
			// immediately, this can send after closed which panics!
			obj.mutex.Lock()
			if !obj.closed {
				select {
				case obj.events <- Event{Error: err}:
				case <-obj.exit:
					// pass
				}
			}
			obj.mutex.Unlock()
		}
	}()
	return nil
}

// Close shuts down the watcher.
func (obj *RecWatcher) Close() error {
	var err error
	close(obj.exit) // send exit signal
	obj.wg.Wait()
	if obj.watcher != nil {
		err = obj.watcher.Close()
		obj.watcher = nil
	}
	obj.mutex.Lock()
	obj.closed = true
	close(obj.events)
	obj.mutex.Unlock()
	return err
}

// Events returns a channel of events. These include events for errors.
func (obj *RecWatcher) Events() chan Event { return obj.events }

// Watch is the primary listener and it outputs events.
func (obj *RecWatcher) Watch() error {
	if obj.watcher == nil {
		return fmt.Errorf("the watcher is not initialized")
	}

	patharray := util.PathSplit(obj.safename) // tokenize the path
	var target = len(patharray) - 1            // index of the parent dir
	if target < 1 {
		target = 1 // the root dir
	}
	var index = target // starting index
	var current string // current "watcher" location
	var send = false   // send event?

	for {
		current = strings.Join(patharray[0:index], "/")
		if current == "" { // the empty string top is the root dir ("/")
			current = "/"
		}
		if obj.options.debug {
			obj.options.logf("watching: %s", current) // attempting to watch...
		}
		// initialize in the loop so that we can reset on rm-ed handles
		if err := obj.watcher.Add(current); err != nil {
			if obj.options.debug {
				obj.options.logf("watcher.Add(%s): Error: %v", current, err)
			}
			// ENOENT for linux, etc and IsNotExist for macOS
			if (errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ENOTDIR) || os.IsNotExist(err)) && index > 1 {
				index-- // usually not found, move up one dir
				continue
			}

			if errors.Is(err, syscall.ENOSPC) {
				// no space left on device, out of inotify watches
				return fmt.Errorf("out of inotify watches: %v", err)
			} else if errors.Is(err, os.ErrPermission) {
				return fmt.Errorf("permission denied adding a watch: %v", err)
			}
			return fmt.Errorf("unknown error: %v", err)
		}

		select {
		case event, ok := <-obj.watcher.Events:
			if !ok {
				return fmt.Errorf("unexpected close")
			}
			if obj.options.debug {
				obj.options.logf("watch(%s), event(%s): %v", current, event.Name, event.Op)
			}
			name := path.Clean(event.Name)

			switch {
			case name == obj.safename:
				send = true // it's us

			case name == current && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// the dir we watch went away, move the watch upwards
				obj.watcher.Remove(current)
				if index > 1 {
					index--
				}
				send = true

			case index < target && util.PathPrefixDelta(name, current) == 1 && util.HasPathPrefix(obj.safename, name):
				// the next missing dir down appeared, so descend in
				if event.Op&fsnotify.Create == fsnotify.Create {
					obj.watcher.Remove(current)
					index++
					send = true // we might have missed something below
				}

			default:
				// a sibling or something unrelated, ignore it
			}

			// do all our event sending all together to avoid duplicate msgs
			if send {
				send = false
				select {
				// exit even when we're blocked on event sending
				case obj.events <- Event{Error: nil, Body: &event}:
				case <-obj.exit:
					return fmt.Errorf("pending event not sent")
				}
			}

		case err := <-obj.watcher.Errors:
			return fmt.Errorf("unknown watcher error: %v", err)

		case <-obj.exit:
			return nil
		}
	}
}

// Option is a type that can be used to configure the recwatcher.
type Option func(*recwatchOptions)

type recwatchOptions struct {
	debug bool
	logf  func(format string, v ...interface{})
}

// Debug specifies whether we should run in debug mode or not.
func Debug(debug bool) Option {
	return func(rwo *recwatchOptions) {
		rwo.debug = debug
	}
}

// Logf passes a logger function that we can use if so desired.
func Logf(logf func(format string, v ...interface{})) Option {
	return func(rwo *recwatchOptions) {
		rwo.logf = logf
	}
}

// MergeChannels is a helper function to combine different recwatch events.
func MergeChannels(chanList ...<-chan Event) <-chan Event {
	out := make(chan Event)
	wg := &sync.WaitGroup{}
	wg.Add(len(chanList)) // do them all together
	for _, ch := range chanList {
		go func(ch <-chan Event) {
			defer wg.Done()
			for v := range ch {
				out <- v
			}
		}(ch)
	}
	go func() {
		// Last one closes!
		wg.Wait()
		close(out)
	}()
	return out
}
