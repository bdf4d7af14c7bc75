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
	"errors"
	"fmt"
)

// Error is a constant error type that implements error.
type Error string

// Error fulfills the error interface of this type.
func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidRequest is returned when a request is malformed, such as an
	// unparseable mode or a link without a source.
	ErrInvalidRequest = Error("invalid request")

	// ErrIllegalTransition is returned when an existing object would have to
	// be converted into a different kind of object.
	ErrIllegalTransition = Error("illegal transition")

	// ErrUnsupportedCreate is returned when a regular file would have to be
	// created.
	ErrUnsupportedCreate = Error("unsupported create")

	// ErrLookupFailure is returned when a user or group doesn't exist.
	ErrLookupFailure = Error("lookup failure")

	// ErrSyscallFailure is returned when an operating system call fails.
	ErrSyscallFailure = Error("syscall failure")

	// ErrSecurityContext is returned when a security context is invalid or
	// gets rejected.
	ErrSecurityContext = Error("security context failure")
)

// Errors is the list of every class of error, in a stable order.
var Errors = []Error{
	ErrInvalidRequest,
	ErrIllegalTransition,
	ErrUnsupportedCreate,
	ErrLookupFailure,
	ErrSyscallFailure,
	ErrSecurityContext,
}

// OpError is an error of a particular class. It matches its class with
// errors.Is, and it unwraps to the lower level cause if there is one.
type OpError struct {
	// Class is the kind of failure.
	Class Error

	// Msg is the human readable description of what failed.
	Msg string

	// Err is the lower level cause, and it may be nil.
	Err error
}

// Errorf builds an error of the given class. The cause may be nil.
func Errorf(class Error, err error, format string, v ...interface{}) *OpError {
	return &OpError{
		Class: class,
		Msg:   fmt.Sprintf(format, v...),
		Err:   err,
	}
}

// Error returns the message, followed by the cause if we have one.
func (obj *OpError) Error() string {
	if obj.Err == nil {
		return obj.Msg
	}
	return obj.Msg + ": " + obj.Err.Error()
}

// Unwrap returns the cause.
func (obj *OpError) Unwrap() error { return obj.Err }

// Is matches the class of the error.
func (obj *OpError) Is(target error) bool {
	return target == obj.Class
}

// ErrorClass returns the class of the error, or an empty class if it has none.
func ErrorClass(err error) Error {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Class
	}
	for _, class := range Errors {
		if errors.Is(err, class) {
			return class
		}
	}
	return Error("")
}

// FileError is the failure descriptor that is returned when converging a path
// fails. When the path exists, the Status is filled with what was there.
type FileError struct {
	// Path is the path that was being converged.
	Path string `yaml:"path"`

	// Msg is a human readable message.
	Msg string `yaml:"msg"`

	// Details is the lower level cause, if we know it.
	Details string `yaml:"details,omitempty"`

	// Status is what we found at the path when it failed. It's nil if we
	// couldn't look.
	Status *Status `yaml:"status,omitempty"`

	err error
}

// NewFileError builds the failure descriptor for the error.
func NewFileError(path string, err error, status *Status) *FileError {
	fe := &FileError{
		Path:   path,
		Msg:    err.Error(),
		Status: status,
		err:    err,
	}
	var opErr *OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		fe.Msg = opErr.Msg
		fe.Details = opErr.Err.Error()
	}
	return fe
}

// Error returns a description with the path in it.
func (obj *FileError) Error() string {
	if obj.Details == "" {
		return fmt.Sprintf("%s: %s", obj.Path, obj.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", obj.Path, obj.Msg, obj.Details)
}

// Unwrap returns the error that this describes.
func (obj *FileError) Unwrap() error { return obj.err }
