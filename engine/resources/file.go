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

// Package resources contains the resources which can be converged.
package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/engine/attr"
	engineUtil "github.com/purpleidea/fsconverge/engine/util"
	"github.com/purpleidea/fsconverge/seclabel"
	"github.com/purpleidea/fsconverge/util"
	"github.com/purpleidea/fsconverge/util/recwatch"
)

const (
	// KindFile is the kind string used to identify this resource.
	KindFile = "file"

	// FileStateFile is the default state. The file must already exist.
	FileStateFile = "file"
	// FileStateDirectory means that a directory should exist.
	FileStateDirectory = "directory"
	// FileStateLink means that a symlink to Src should exist.
	FileStateLink = "link"
	// FileStateAbsent means that nothing should exist at the path.
	FileStateAbsent = "absent"
)

// FileRes is a file, directory or symlink resource. It never manages the
// contents of a file, only its existence and its attributes.
type FileRes struct {
	init *engine.Init

	// Path is the destination path for the object being managed. It must
	// be an absolute path, although a leading ~ is expanded.
	Path string `yaml:"path" arg:"--path,required" help:"path to converge"`

	// State specifies the desired kind of object. It can be `file`,
	// `directory`, `link` or `absent`. A file must already exist, since we
	// don't create content. Existing objects are never converted to another
	// kind, except that anything can be removed.
	State string `yaml:"state" arg:"--state" default:"file" help:"one of file, directory, link or absent"`

	// Src is the absolute path that a link points to. It is required for a
	// link, and must not be set otherwise. It must resolve to something
	// when the link is created.
	Src string `yaml:"src" arg:"--src" help:"link destination"`

	// Mode is the octal representation of the permission bits. Since a
	// symlink doesn't have any, this applies to what a link points to.
	Mode string `yaml:"mode" arg:"--mode" help:"octal permission bits"`

	// Owner specifies the owner. You can specify either the string name, or
	// a string representation of the owner integer uid.
	Owner string `yaml:"owner" arg:"--owner" help:"owning user name or uid"`

	// Group specifies the group. You can specify either the string name,
	// or a string representation of the group integer gid.
	Group string `yaml:"group" arg:"--group" help:"owning group name or gid"`

	// SEUser is the user component of the security label. Like all the
	// label components, an empty value leaves it alone, and the value
	// `_default` uses what the policy says.
	SEUser string `yaml:"seuser" arg:"--seuser" help:"security label user"`

	// SERole is the role component of the security label.
	SERole string `yaml:"serole" arg:"--serole" help:"security label role"`

	// SEType is the type component of the security label.
	SEType string `yaml:"setype" arg:"--setype" help:"security label type"`

	// SELevel is the level or range component of the security label. It is
	// only used if the system tracks levels.
	SELevel string `yaml:"selevel" arg:"--selevel" default:"s0" help:"security label level"`
}

// Default returns some sensible defaults for this resource.
func (obj *FileRes) Default() engine.Res {
	return &FileRes{
		State:   FileStateFile,
		SELevel: seclabel.DefaultLevel,
	}
}

// getPath returns the actual path to use for this resource. It expands a
// leading ~ and cleans the result.
func (obj *FileRes) getPath() (string, error) {
	p, err := util.ExpandHome(obj.Path)
	if err != nil {
		return "", engine.Errorf(engine.ErrInvalidRequest, err, "can't expand path %s", obj.Path)
	}
	if !filepath.IsAbs(p) {
		return "", engine.Errorf(engine.ErrInvalidRequest, nil, "path must be absolute: %s", obj.Path)
	}
	return filepath.Clean(p), nil
}

// kind returns the desired kind.
func (obj *FileRes) kind() (engine.Kind, error) {
	return engine.ParseKind(obj.State)
}

// label returns the desired security context.
func (obj *FileRes) label() seclabel.Context {
	return seclabel.Context{
		User:  obj.SEUser,
		Role:  obj.SERole,
		Type:  obj.SEType,
		Level: obj.SELevel,
	}
}

// Validate reports any problems with the struct definition.
func (obj *FileRes) Validate() error {
	if obj.Path == "" {
		return engine.Errorf(engine.ErrInvalidRequest, nil, "path is empty")
	}
	if _, err := obj.getPath(); err != nil {
		return err
	}

	kind, err := obj.kind()
	if err != nil {
		return err
	}

	if kind == engine.KindLink {
		if obj.Src == "" {
			return engine.Errorf(engine.ErrInvalidRequest, nil, "src is required for a link")
		}
		if !filepath.IsAbs(obj.Src) {
			return engine.Errorf(engine.ErrInvalidRequest, nil, "src must be absolute: %s", obj.Src)
		}
	} else if obj.Src != "" {
		return engine.Errorf(engine.ErrInvalidRequest, nil, "src is only valid for a link")
	}

	if obj.Mode != "" {
		if _, err := engineUtil.ParseMode(obj.Mode); err != nil {
			return engine.Errorf(engine.ErrInvalidRequest, err, "bad mode")
		}
	}

	return nil
}

// Init runs some startup code for this resource.
func (obj *FileRes) Init(init *engine.Init) error {
	if err := init.Validate(); err != nil {
		return err
	}
	obj.init = init // save for later
	return nil
}

// Cleanup is run to clean up after the resource is done.
func (obj *FileRes) Cleanup() error {
	return nil
}

// DesiredState returns the state that was asked for.
func (obj *FileRes) DesiredState() string {
	return obj.State
}

// String returns a representation of this resource.
func (obj *FileRes) String() string {
	return fmt.Sprintf("%s[%s]", KindFile, obj.Path)
}

// Watch is the primary listener for this resource and it outputs events. This
// one is a file watcher for the path, and for what a link points to, since the
// mode is managed there. On a clean exit it returns nil.
func (obj *FileRes) Watch(ctx context.Context) error {
	p, err := obj.getPath()
	if err != nil {
		return err
	}
	opts := []recwatch.Option{
		recwatch.Debug(obj.init.Debug),
		recwatch.Logf(func(format string, v ...interface{}) {
			obj.init.Logf("recwatch: "+format, v...)
		}),
	}

	recWatcher, err := recwatch.NewRecWatcher(p, opts...)
	if err != nil {
		return err
	}
	defer recWatcher.Close()
	chans := []<-chan recwatch.Event{recWatcher.Events()}

	if obj.Src != "" && obj.Mode != "" {
		rw, err := recwatch.NewRecWatcher(filepath.Clean(obj.Src), opts...)
		if err != nil {
			return err
		}
		defer rw.Close()
		chans = append(chans, rw.Events())
	}
	events := recwatch.MergeChannels(chans...)

	for {
		if obj.init.Debug {
			obj.init.Logf("watching: %s", p) // attempting to watch...
		}

		select {
		case event, ok := <-events:
			if !ok { // channel shutdown
				return fmt.Errorf("unexpected close")
			}
			if err := event.Error; err != nil {
				return engine.Errorf(engine.ErrSyscallFailure, err, "%s watcher error", obj)
			}
			if obj.init.Debug { // don't access event.Body if event.Error isn't nil
				obj.init.Logf("event(%s): %v", event.Body.Name, event.Body.Op)
			}
			obj.init.Event()

		case <-ctx.Done(): // signal for shutdown
			return nil
		}
	}
}

// Converge checks the state of the path and applies the desired state if the
// apply argument is true. The result is what is at the path afterwards, and
// whether anything changed, or would have changed. Every error is a
// *engine.FileError which includes what was at the path when it failed.
func (obj *FileRes) Converge(apply bool) (*engine.Result, error) {
	p, err := obj.getPath()
	if err != nil {
		return nil, engine.NewFileError(obj.Path, err, nil)
	}

	changed, err := obj.converge(p, apply)
	if err != nil {
		status, e := engine.Inspect(obj.init.Fs, obj.init.Labeler, p)
		if e != nil || status.State == engine.KindAbsent {
			status = nil // only describe what exists
		}
		return nil, engine.NewFileError(p, err, status)
	}

	status, err := engine.Inspect(obj.init.Fs, obj.init.Labeler, p)
	if err != nil {
		return nil, engine.NewFileError(p, err, nil)
	}
	return &engine.Result{
		Changed: changed,
		Status:  *status,
	}, nil
}

// converge moves the path to the desired kind and then converges each of the
// attributes in order. In check mode, we stop after the first structural change
// since the attributes of something that doesn't exist yet can't be checked.
func (obj *FileRes) converge(p string, apply bool) (bool, error) {
	fs := obj.init.Fs

	desired, err := obj.kind()
	if err != nil {
		return false, err
	}
	observed, err := engine.Classify(fs, p)
	if err != nil {
		return false, err
	}
	action, err := engine.Transition(observed, desired)
	if err != nil {
		return false, err
	}
	if obj.init.Debug {
		obj.init.Logf("converge(%t): %s: %s -> %s: %s", apply, p, observed, desired, action)
	}

	changed := false
	switch action {
	case engine.ActionNone:
		// the right kind already exists

	case engine.ActionNoop:
		return false, nil

	case engine.ActionRemove:
		if !apply {
			obj.init.Logf("would remove: %s", p)
			return true, nil
		}
		obj.init.Logf("removing: %s", p)
		if err := engine.RemoveTree(fs, p); err != nil {
			return false, err
		}
		return true, nil

	case engine.ActionMkdir:
		if !apply {
			obj.init.Logf("would create directory: %s", p)
			return true, nil
		}
		obj.init.Logf("creating directory: %s", p)
		if err := fs.MkdirAll(p, os.ModePerm); err != nil {
			return false, engine.Errorf(engine.ErrSyscallFailure, err, "can't create directory %s", p)
		}
		changed = true

	case engine.ActionSymlink:
		if err := obj.checkSrc(); err != nil {
			return false, err
		}
		if !apply {
			obj.init.Logf("would create link: %s -> %s", p, obj.Src)
			return true, nil
		}
		obj.init.Logf("creating link: %s -> %s", p, obj.Src)
		if err := obj.symlink(p); err != nil {
			return false, err
		}
		changed = true

	case engine.ActionRelink:
		target, err := fs.ReadlinkIfPossible(p)
		if err != nil {
			return false, engine.Errorf(engine.ErrSyscallFailure, err, "can't read link %s", p)
		}
		if engine.LinkTarget(p, target) == filepath.Clean(obj.Src) {
			break // points to the right place
		}
		if err := obj.checkSrc(); err != nil {
			return false, err
		}
		if !apply {
			obj.init.Logf("would change link: %s -> %s (was %s)", p, obj.Src, target)
			return true, nil
		}
		obj.init.Logf("changing link: %s -> %s (was %s)", p, obj.Src, target)
		if err := fs.Remove(p); err != nil {
			return false, engine.Errorf(engine.ErrSyscallFailure, err, "can't remove link %s", p)
		}
		if err := obj.symlink(p); err != nil {
			return false, err
		}
		changed = true

	default:
		return false, engine.Errorf(engine.ErrInvalidRequest, nil, "unknown action: %s", action)
	}

	setter := &attr.Setter{
		Fs:      fs,
		Labeler: obj.init.Labeler,
		Apply:   apply,
		Debug:   obj.init.Debug,
		Logf:    obj.init.Logf,
	}
	if changed, err = setter.Label(p, obj.label(), changed); err != nil {
		return changed, err
	}
	if changed, err = setter.Owner(p, obj.Owner, changed); err != nil {
		return changed, err
	}
	if changed, err = setter.Group(p, obj.Group, changed); err != nil {
		return changed, err
	}
	if changed, err = setter.Mode(p, obj.Mode, changed); err != nil {
		return changed, err
	}

	return changed, nil
}

// checkSrc errors if the link destination doesn't exist. This follows links,
// so a src which is itself a dangling symlink doesn't count, since we could
// never converge the mode through it.
func (obj *FileRes) checkSrc() error {
	_, err := obj.init.Fs.Stat(obj.Src)
	if engine.IsNotExist(err) {
		return engine.Errorf(engine.ErrInvalidRequest, err, "src %s does not exist", obj.Src)
	}
	if err != nil {
		return engine.Errorf(engine.ErrSyscallFailure, err, "can't stat src %s", obj.Src)
	}
	return nil
}

// symlink creates the link to Src.
func (obj *FileRes) symlink(p string) error {
	if err := obj.init.Fs.SymlinkIfPossible(obj.Src, p); err != nil {
		return engine.Errorf(engine.ErrSyscallFailure, err, "can't create link %s", p)
	}
	return nil
}

// UnmarshalYAML is the custom unmarshal handler for this struct. It is
// primarily useful for setting the defaults.
func (obj *FileRes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawRes FileRes // indirection to avoid infinite recursion

	def := obj.Default()      // get the default
	res, ok := def.(*FileRes) // put in the right format
	if !ok {
		return fmt.Errorf("could not convert to FileRes")
	}
	raw := rawRes(*res) // convert; the defaults go here

	if err := unmarshal(&raw); err != nil {
		return err
	}

	*obj = FileRes(raw) // restore from indirection with type conversion!
	return nil
}
