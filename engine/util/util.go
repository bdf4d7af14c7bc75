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

// Package util contains some utility functions and algorithms which are useful
// for the engine and its resources.
package util

import (
	"os/user"
	"strconv"

	"github.com/purpleidea/fsconverge/util/errwrap"
)

// GetUID returns the UID of an user. It supports an UID or an username. Caller
// should first check user is not empty. It will return an error if it can't
// lookup the UID or username.
func GetUID(username string) (int, error) {
	userObj, err := user.LookupId(username)
	if err == nil {
		return strconv.Atoi(userObj.Uid)
	}

	userObj, err = user.Lookup(username)
	if err == nil {
		return strconv.Atoi(userObj.Uid)
	}

	return -1, errwrap.Wrapf(err, "user lookup error (%s)", username)
}

// GetGID returns the GID of a group. It supports a GID or a group name. Caller
// should first check group is not empty. It will return an error if it can't
// lookup the GID or group name.
func GetGID(group string) (int, error) {
	groupObj, err := user.LookupGroupId(group)
	if err == nil {
		return strconv.Atoi(groupObj.Gid)
	}

	groupObj, err = user.LookupGroup(group)
	if err == nil {
		return strconv.Atoi(groupObj.Gid)
	}

	return -1, errwrap.Wrapf(err, "group lookup error (%s)", group)
}

// UserName returns the name of the user with this UID. If there is no entry in
// the user database, the numeric UID is returned as a string instead.
func UserName(uid int) string {
	s := strconv.Itoa(uid)
	userObj, err := user.LookupId(s)
	if err != nil {
		return s
	}
	return userObj.Username
}

// GroupName returns the name of the group with this GID. If there is no entry
// in the group database, the numeric GID is returned as a string instead.
func GroupName(gid int) string {
	s := strconv.Itoa(gid)
	groupObj, err := user.LookupGroupId(s)
	if err != nil {
		return s
	}
	return groupObj.Name
}
