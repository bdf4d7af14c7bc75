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

// Action is the structural step needed to move a path from one kind to another.
type Action int

const (
	// ActionNone means the kind is already correct and nothing structural
	// needs to happen. Attributes still get converged.
	ActionNone Action = iota
	// ActionNoop means there is nothing to do at all. It's only used when
	// something that should be absent, is.
	ActionNoop
	// ActionRemove removes what is there, and then stops.
	ActionRemove
	// ActionMkdir creates the directory and any missing parents.
	ActionMkdir
	// ActionSymlink creates a new symlink.
	ActionSymlink
	// ActionRelink replaces an existing symlink if it points elsewhere.
	ActionRelink
)

// String returns a short name for the action, which is used in logs.
func (obj Action) String() string {
	switch obj {
	case ActionNone:
		return "none"
	case ActionNoop:
		return "noop"
	case ActionRemove:
		return "remove"
	case ActionMkdir:
		return "mkdir"
	case ActionSymlink:
		return "symlink"
	case ActionRelink:
		return "relink"
	}
	return "unknown"
}

// Converges returns true if attributes should be converged after this action.
func (obj Action) Converges() bool {
	return obj != ActionNoop && obj != ActionRemove
}

// Transition returns the structural action that moves an object of the
// observed kind to the desired kind. Nothing is ever converted in place between
// two different existing kinds, and regular files are never created since we
// don't manage content.
func Transition(observed, desired Kind) (Action, error) {
	switch desired {
	case KindAbsent:
		if observed == KindAbsent {
			return ActionNoop, nil
		}
		return ActionRemove, nil

	case KindFile:
		switch observed {
		case KindAbsent:
			return ActionNone, Errorf(ErrUnsupportedCreate, nil, "can't create a file, it must already exist")
		case KindFile:
			return ActionNone, nil
		}

	case KindDirectory:
		switch observed {
		case KindAbsent:
			return ActionMkdir, nil
		case KindDirectory:
			return ActionNone, nil
		}

	case KindLink:
		switch observed {
		case KindAbsent:
			return ActionSymlink, nil
		case KindLink:
			return ActionRelink, nil
		}

	default:
		return ActionNone, Errorf(ErrInvalidRequest, nil, "invalid state: %s", desired)
	}

	return ActionNone, Errorf(ErrIllegalTransition, nil, "can't change a %s into a %s", observed, desired)
}
