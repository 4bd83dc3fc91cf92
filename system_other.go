//go:build !linux

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

// Linux is the System backed by the io_uring syscalls. On this platform every
// call fails with ErrNotAvailable.
var Linux System = unavailableSystem{}

type unavailableSystem struct{}

func (unavailableSystem) Setup(uint32, *Params) (int, error) {
	return -1, ErrNotAvailable
}

func (unavailableSystem) Enter(int, uint32, uint32, EnterFlag, unsafe.Pointer, uintptr) (uint, error) {
	return 0, ErrNotAvailable
}

func (unavailableSystem) Register(int, RegisterOpCode, unsafe.Pointer, uint32) (uint, error) {
	return 0, ErrNotAvailable
}

func (unavailableSystem) Mmap(int, int64, int) ([]byte, error) {
	return nil, ErrNotAvailable
}

func (unavailableSystem) Munmap([]byte) error {
	return ErrNotAvailable
}

func (unavailableSystem) Close(int) error {
	return ErrNotAvailable
}

func Available() bool {
	return false
}
