/*
	Copyright 2023 Loophole Labs

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package uringio

import (
	"unsafe"

	"github.com/brickingsoft/errors"
)

// Op is an operation descriptor: a struct laid out exactly like the
// submission entry it declares, so that pushing it is a plain memory copy.
// Unused trailing bytes must be zero.
type Op interface {
	EntrySize() SQESize
}

// CheckLayout verifies that T can be reinterpreted as the entry it declares
// and returns that entry width.
func CheckLayout[T Op]() (SQESize, error) {
	var op T
	width := op.EntrySize()
	var want uintptr
	switch width {
	case SQE64:
		want = sqEntrySize
	case SQE128:
		want = sqEntry128Size
	default:
		return width, ErrOpLayout
	}
	if unsafe.Sizeof(op) != want || unsafe.Alignof(op) != unsafe.Alignof(SQEntry{}) {
		return width, errors.From(
			ErrOpLayout,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta("width", width.String()),
		)
	}
	return width, nil
}

// File is the target of an operation: a raw descriptor or an index into the
// ring's registered file table.
type File interface {
	Raw() int32
	Fixed() bool
}

// FD is a raw file descriptor.
type FD int32

func (fd FD) Raw() int32 {
	return int32(fd)
}

func (fd FD) Fixed() bool {
	return false
}

// FixedFile is an index into the registered file table.
type FixedFile uint32

func (f FixedFile) Raw() int32 {
	return int32(f)
}

func (f FixedFile) Fixed() bool {
	return true
}

func fileFlags(f File) SQEFlag {
	if f.Fixed() {
		return SQEFixedFile
	}
	return 0
}
