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
	"strconv"
	"strings"
)

// Constant bits for the special modes in their unix octal positions.
const (
	ModeSetU   uint64 = 04000
	ModeSetG   uint64 = 02000
	ModeSticky uint64 = 01000

	// ModeMask is every bit that can be expressed in an octal mode string.
	ModeMask uint64 = 07777
)

// ModeBits is the set of os.FileMode bits that we manage. It's the permission
// bits and the three special bits, but never the type bits.
const ModeBits = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

// ParseMode parses an octal mode string such as 0644 or 755 into the matching
// os.FileMode. A leading 0o prefix is accepted. Anything that isn't an octal
// number of at most four digits is an error.
func ParseMode(s string) (os.FileMode, error) {
	str := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	if str == "" {
		return 0, fmt.Errorf("mode is empty")
	}
	n, err := strconv.ParseUint(str, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("mode should be an octal number (%s)", s)
	}
	if n&^ModeMask != 0 {
		return 0, fmt.Errorf("mode is out of range (%s)", s)
	}

	m := os.FileMode(n & 0777)
	if n&ModeSetU != 0 {
		m |= os.ModeSetuid
	}
	if n&ModeSetG != 0 {
		m |= os.ModeSetgid
	}
	if n&ModeSticky != 0 {
		m |= os.ModeSticky
	}
	return m, nil
}

// FormatMode returns the octal representation of the managed mode bits, such as
// 0644 or 04755. It's the inverse of ParseMode.
func FormatMode(m os.FileMode) string {
	n := uint64(m.Perm())
	if m&os.ModeSetuid != 0 {
		n |= ModeSetU
	}
	if m&os.ModeSetgid != 0 {
		n |= ModeSetG
	}
	if m&os.ModeSticky != 0 {
		n |= ModeSticky
	}
	return fmt.Sprintf("%#04o", n)
}
