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
)

// Mapper maps and unmaps ring regions of an io_uring file descriptor.
type Mapper interface {
	// Mmap maps length bytes of fd at offset as shared, read-write memory.
	Mmap(fd int, offset int64, length int) ([]byte, error)
	// Munmap releases a mapping previously returned by Mmap.
	Munmap(region []byte) error
}

// System is the set of kernel primitives a Ring is built on.
//
// Enter and Register return the raw syscall result. Errors are the kernel's
// errno, returned verbatim.
type System interface {
	Mapper
	Setup(entries uint32, params *Params) (int, error)
	Enter(fd int, toSubmit uint32, minComplete uint32, flags EnterFlag, arg unsafe.Pointer, argSize uintptr) (uint, error)
	Register(fd int, opCode RegisterOpCode, arg unsafe.Pointer, nrArgs uint32) (uint, error)
	Close(fd int) error
}
