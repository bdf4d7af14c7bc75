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

// Package attr converges the attributes of an existing file system object. Each
// attribute is handled by an independent method which takes the changed value
// so far, and returns it updated, so that they can be chained together.
package attr

import (
	"syscall"

	"github.com/purpleidea/fsconverge/engine"
	engineUtil "github.com/purpleidea/fsconverge/engine/util"
	"github.com/purpleidea/fsconverge/seclabel"
)

// Setter converges attributes on a single file system.
type Setter struct {
	// Fs is the file system to work on.
	Fs engine.Fs

	// Labeler is used for the security label. It may be a stub.
	Labeler seclabel.Labeler

	// Apply is false if we're only checking, in which case nothing is
	// changed, and the return value reports what would have changed.
	Apply bool

	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})
}

func (obj *Setter) logf(format string, v ...interface{}) {
	if obj.Logf == nil {
		return
	}
	obj.Logf(format, v...)
}

// Mode converges the permission bits of the path. The mode is an octal string,
// and an empty string means to leave it alone. Since there's no way to change
// the mode of a symlink, this follows a final symlink. This only reports a
// change if the bits are actually different afterwards, because some file
// systems silently ignore a chmod.
func (obj *Setter) Mode(path, mode string, changed bool) (bool, error) {
	if mode == "" {
		return changed, nil
	}
	m, err := engineUtil.ParseMode(mode)
	if err != nil {
		return changed, engine.Errorf(engine.ErrInvalidRequest, err, "bad mode for %s", path)
	}

	fi, err := obj.Fs.Stat(path)
	if err != nil {
		return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't stat %s", path)
	}
	before := fi.Mode() & engineUtil.ModeBits
	if before == m {
		return changed, nil
	}
	if !obj.Apply {
		obj.logf("mode: %s would change from %s to %s", path, engineUtil.FormatMode(before), engineUtil.FormatMode(m))
		return true, nil
	}

	if err := obj.Fs.Chmod(path, m); err != nil {
		return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't chmod %s", path)
	}

	if fi, err = obj.Fs.Stat(path); err != nil {
		return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't stat %s", path)
	}
	after := fi.Mode() & engineUtil.ModeBits
	if after == before {
		obj.logf("mode: %s is still %s after chmod", path, engineUtil.FormatMode(after))
		return changed, nil
	}
	if after != m {
		obj.logf("mode: %s is %s after chmod to %s", path, engineUtil.FormatMode(after), engineUtil.FormatMode(m))
	}
	if obj.Debug {
		obj.logf("mode: %s changed from %s to %s", path, engineUtil.FormatMode(before), engineUtil.FormatMode(after))
	}
	return true, nil
}

// Owner converges the owning user of the path. This never touches the group.
// The owner is a user name or a numeric uid, and an empty string means to leave
// it alone. A symlink itself is changed, and not what it points to.
func (obj *Setter) Owner(path, owner string, changed bool) (bool, error) {
	if owner == "" {
		return changed, nil
	}
	uid, err := engineUtil.GetUID(owner)
	if err != nil {
		return changed, engine.Errorf(engine.ErrLookupFailure, err, "no such user %s", owner)
	}
	return obj.chown(path, "owner", uid, -1, changed)
}

// Group converges the owning group of the path. This never touches the user.
// The group is a group name or a numeric gid, and an empty string means to leave
// it alone. A symlink itself is changed, and not what it points to.
func (obj *Setter) Group(path, group string, changed bool) (bool, error) {
	if group == "" {
		return changed, nil
	}
	gid, err := engineUtil.GetGID(group)
	if err != nil {
		return changed, engine.Errorf(engine.ErrLookupFailure, err, "no such group %s", group)
	}
	return obj.chown(path, "group", -1, gid, changed)
}

// chown changes exactly one of the uid or gid. The other one must be -1.
func (obj *Setter) chown(path, what string, uid, gid int, changed bool) (bool, error) {
	fi, err := engine.Lstat(obj.Fs, path)
	if err != nil {
		return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't stat %s", path)
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return changed, engine.Errorf(engine.ErrSyscallFailure, nil, "can't read the %s of %s on this platform", what, path)
	}
	if (uid == -1 || int(st.Uid) == uid) && (gid == -1 || int(st.Gid) == gid) {
		return changed, nil
	}
	if !obj.Apply {
		obj.logf("%s: %s would change", what, path)
		return true, nil
	}

	if engine.KindOf(fi) == engine.KindLink {
		err = obj.Fs.Lchown(path, uid, gid)
	} else {
		err = obj.Fs.Chown(path, uid, gid)
	}
	if err != nil {
		return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't change the %s of %s", what, path)
	}
	if obj.Debug {
		obj.logf("%s: %s changed", what, path)
	}
	return true, nil
}

// Label converges the security label of the path. Empty components of the
// desired context are left as they are, and components set to the default
// sentinel are first looked up in the policy. The whole label is then set at
// once. If labels aren't supported, this does nothing. A symlink itself is
// labelled, and not what it points to.
func (obj *Setter) Label(path string, desired seclabel.Context, changed bool) (bool, error) {
	if desired.IsZero() {
		return changed, nil
	}
	if obj.Labeler == nil || !obj.Labeler.Enabled() {
		if obj.Debug {
			obj.logf("label: not supported, skipping %s", path)
		}
		return changed, nil
	}

	current, err := obj.Labeler.FileContext(path)
	if err != nil {
		return changed, engine.Errorf(engine.ErrSecurityContext, err, "can't read the context of %s", path)
	}

	if desired.HasDefault() {
		fi, err := engine.Lstat(obj.Fs, path)
		if err != nil {
			return changed, engine.Errorf(engine.ErrSyscallFailure, err, "can't stat %s", path)
		}
		def, err := obj.Labeler.DefaultContext(path, fi.Mode())
		if err != nil {
			return changed, engine.Errorf(engine.ErrSecurityContext, err, "can't find the default context of %s", path)
		}
		desired = desired.ResolveDefaults(def)
	}

	merged := seclabel.Merge(current, desired)
	if merged == current {
		return changed, nil
	}
	if !obj.Apply {
		obj.logf("label: %s would change from %s to %s", path, current, merged)
		return true, nil
	}

	if err := obj.Labeler.SetFileContext(path, merged); err != nil {
		return changed, engine.Errorf(engine.ErrSecurityContext, err, "can't set the context of %s to %s", path, merged)
	}
	if obj.Debug {
		obj.logf("label: %s changed from %s to %s", path, current, merged)
	}
	return true, nil
}
