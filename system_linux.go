//go:build linux

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
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux is the System backed by the io_uring syscalls.
var Linux System = linuxSystem{}

type linuxSystem struct{}

// Setup is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/arch/syscall-defs.h
func (linuxSystem) Setup(entries uint32, params *Params) (int, error) {
	fd, _, errno := syscall.Syscall(
		unix.SYS_IO_URING_SETUP,
		uintptr(entries),
		uintptr(unsafe.Pointer(params)),
		0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

// Enter is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/arch/syscall-defs.h
func (linuxSystem) Enter(fd int, toSubmit uint32, minComplete uint32, flags EnterFlag, arg unsafe.Pointer, argSize uintptr) (uint, error) {
	res, _, errno := syscall.Syscall6(
		unix.SYS_IO_URING_ENTER,
		uintptr(fd),
		uintptr(toSubmit),
		uintptr(minComplete),
		uintptr(flags),
		uintptr(arg),
		argSize,
	)
	if errno != 0 {
		return 0, errno
	}
	return uint(res), nil
}

// Register is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/arch/syscall-defs.h
func (linuxSystem) Register(fd int, opCode RegisterOpCode, arg unsafe.Pointer, nrArgs uint32) (uint, error) {
	res, _, errno := syscall.Syscall6(
		unix.SYS_IO_URING_REGISTER,
		uintptr(fd),
		uintptr(opCode),
		uintptr(arg),
		uintptr(nrArgs),
		0,
		0,
	)
	if errno != 0 {
		return 0, errno
	}
	return uint(res), nil
}

func (linuxSystem) Mmap(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
}

func (linuxSystem) Munmap(region []byte) error {
	return unix.Munmap(region)
}

func (linuxSystem) Close(fd int) error {
	return unix.Close(fd)
}

var (
	_available = false
)

func init() {
	// An fd of -1 makes a supporting kernel fail with EBADF before looking at
	// anything else, while an unsupporting one fails with ENOSYS.
	_, _, errno := syscall.RawSyscall6(unix.SYS_IO_URING_REGISTER, ^uintptr(0), 0, 0, 0, 0, 0)
	_available = errno != syscall.ENOSYS
}

// Available reports whether the running kernel implements io_uring.
func Available() bool {
	return _available
}
