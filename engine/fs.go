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
	"github.com/spf13/afero"
)

// Fs is an interface that represents the file system API that we support. It's
// an afero file system which can also work with symlinks without following
// them, and which can change the ownership of the link itself.
type Fs interface {
	afero.Fs        // regular operations, this follows symlinks
	afero.Symlinker // Lstat, Symlink and Readlink if the fs supports them
	URI() string    // returns the URI for this file system

	// Lchown changes the numeric uid and gid of the named file without
	// following a final symlink. A value of -1 leaves that id unchanged.
	Lchown(name string, uid, gid int) error
}

// Lstat returns the file info of the path without following a final symlink.
// It errors if the file system can't do this, since otherwise we'd be unable to
// tell a link apart from what it points to.
func Lstat(fs Fs, name string) (FileInfo, error) {
	fi, ok, err := fs.LstatIfPossible(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Errorf(ErrSyscallFailure, nil, "file system %s can't lstat %s", fs.URI(), name)
	}
	return fi, nil
}
