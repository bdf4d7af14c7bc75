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
	"testing"
)

func TestParseMode(t *testing.T) {
	type test struct {
		name string
		in   string
		out  os.FileMode
		fail bool
	}
	testCases := []test{
		{"regular", "0644", 0644, false},
		{"no leading zero", "755", 0755, false},
		{"go style prefix", "0o600", 0600, false},
		{"setuid", "4755", 0755 | os.ModeSetuid, false},
		{"setgid", "02775", 0775 | os.ModeSetgid, false},
		{"sticky", "1777", 0777 | os.ModeSticky, false},
		{"all special", "7777", 0777 | os.ModeSetuid | os.ModeSetgid | os.ModeSticky, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, true},
		{"not octal", "0999", 0, true},
		{"symbolic", "u=rwx", 0, true},
		{"too large", "017777", 0, true},
		{"negative", "-644", 0, true},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			m, err := ParseMode(tc.in)
			if tc.fail {
				if err == nil {
					t.Errorf("test #%d: expected error, got: %v", index, m)
				}
				return
			}
			if err != nil {
				t.Errorf("test #%d: unexpected error: %+v", index, err)
				return
			}
			if m != tc.out {
				t.Errorf("test #%d: expected: %v, got: %v", index, tc.out, m)
			}
		})
	}
}

func TestFormatMode(t *testing.T) {
	for _, s := range []string{"0644", "0755", "04755", "02775", "01777", "0000", "07777"} {
		m, err := ParseMode(s)
		if err != nil {
			t.Errorf("unexpected error for %s: %+v", s, err)
			continue
		}
		if out := FormatMode(m); out != s {
			t.Errorf("expected: %s, got: %s", s, out)
		}
	}
}
