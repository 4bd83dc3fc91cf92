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
	"runtime"
	"unsafe"
)

// iovec mirrors struct iovec.
type iovec struct {
	base uintptr
	len  uintptr
}

// RegisterFiles is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
//
// After registration, FixedFile(i) targets fds[i]. An fd of -1 leaves the
// slot empty.
func (r *Ring) RegisterFiles(fds []int32) error {
	if len(fds) == 0 {
		return nil
	}
	_, err := r.enterer.register(RegisterOpCodeRegisterFiles, unsafe.Pointer(&fds[0]), uint32(len(fds)))
	runtime.KeepAlive(fds)
	return err
}

// UnregisterFiles is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
func (r *Ring) UnregisterFiles() error {
	_, err := r.enterer.register(RegisterOpCodeUnregisterFiles, nil, 0)
	return err
}

// RegisterBuffers is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
//
// The kernel pins the buffers, so they must not be Go heap memory that may be
// freed while registered. Buffers from the buffer package qualify.
func (r *Ring) RegisterBuffers(buffers [][]byte) error {
	if len(buffers) == 0 {
		return nil
	}
	iovecs := make([]iovec, len(buffers))
	for i, b := range buffers {
		iovecs[i] = iovec{base: uintptr(unsafe.Pointer(unsafe.SliceData(b))), len: uintptr(len(b))}
	}
	_, err := r.enterer.register(RegisterOpCodeRegisterBuffers, unsafe.Pointer(&iovecs[0]), uint32(len(iovecs)))
	runtime.KeepAlive(iovecs)
	runtime.KeepAlive(buffers)
	return err
}

// UnregisterBuffers is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
func (r *Ring) UnregisterBuffers() error {
	_, err := r.enterer.register(RegisterOpCodeUnregisterBuffers, nil, 0)
	return err
}

// EnableRings is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/register.c
//
// It starts a ring created with WithRDisabled. Until then the kernel refuses
// to enter the ring.
func (r *Ring) EnableRings() error {
	if r.closed {
		return ErrRingClosed
	}
	_, err := r.enterer.register(RegisterOpCodeRegisterEnableRings, nil, 0)
	return err
}
