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

package util

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// OsFs is the real, local file system. It passes everything through to the
// afero OsFs, and adds the few operations that afero doesn't expose, such as
// changing the ownership of a symlink itself. It is a pass-through so that we
// fulfill the same interface that the tests can wrap with fault injection.
type OsFs struct {
	afero.OsFs
}

// NewOsFs returns a new local file system.
func NewOsFs() *OsFs {
	return &OsFs{}
}

// URI returns the unique URI of this filesystem. It returns the root path.
func (obj *OsFs) URI() string { return fmt.Sprintf("%s://"+"/", obj.Name()) }

// Lchown changes the numeric uid and gid of the named file. If the file is a
// symbolic link, it changes the uid and gid of the link itself. A uid or gid of
// -1 means to not change that value.
func (obj *OsFs) Lchown(name string, uid, gid int) error {
	if err := unix.Lchown(name, uid, gid); err != nil {
		return &os.PathError{Op: "lchown", Path: name, Err: err}
	}
	return nil
}
