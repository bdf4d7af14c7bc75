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

package engine

import (
	"path/filepath"
	"syscall"

	engineUtil "github.com/purpleidea/fsconverge/engine/util"
	"github.com/purpleidea/fsconverge/seclabel"
)

// Status is what was observed at a path. It's computed fresh every time.
type Status struct {
	// Path is the path that was looked at.
	Path string `yaml:"path"`

	// State is the kind of object at the path.
	State Kind `yaml:"state"`

	// Owner is the user name of the owner, or the numeric uid if there is
	// no such user.
	Owner string `yaml:"owner,omitempty"`

	// Group is the group name, or the numeric gid if there is no such group.
	Group string `yaml:"group,omitempty"`

	// Mode is the octal representation of the permission bits.
	Mode string `yaml:"mode,omitempty"`

	// Src is the stored target of a symlink, exactly as it was read.
	Src string `yaml:"src,omitempty"`

	// SEContext is the security label, if labels are enabled.
	SEContext string `yaml:"secontext,omitempty"`
}

// Inspect looks at the path without following a final symlink and returns what
// is there. If nothing is there, then only the Path and State are set. The
// labeler may be nil, in which case no label is read.
func Inspect(fs Fs, labeler seclabel.Labeler, name string) (*Status, error) {
	status := &Status{
		Path:  name,
		State: KindAbsent,
	}
	fi, err := Lstat(fs, name)
	if IsNotExist(err) {
		return status, nil
	}
	if err != nil {
		return nil, Errorf(ErrSyscallFailure, err, "can't stat %s", name)
	}

	status.State = KindOf(fi)
	status.Mode = engineUtil.FormatMode(fi.Mode() & engineUtil.ModeBits)

	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		status.Owner = engineUtil.UserName(int(st.Uid))
		status.Group = engineUtil.GroupName(int(st.Gid))
	}

	if status.State == KindLink {
		target, err := fs.ReadlinkIfPossible(name)
		if err != nil {
			return nil, Errorf(ErrSyscallFailure, err, "can't read link %s", name)
		}
		status.Src = target
	}

	if labeler != nil && labeler.Enabled() {
		context, err := labeler.FileContext(name)
		if err != nil {
			return nil, Errorf(ErrSecurityContext, err, "can't read context of %s", name)
		}
		status.SEContext = context.String()
	}

	return status, nil
}

// LinkTarget resolves the stored target of a symlink to an absolute, clean path.
// A relative target is relative to the directory that contains the link.
func LinkTarget(link, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(filepath.Dir(link), target)
}
