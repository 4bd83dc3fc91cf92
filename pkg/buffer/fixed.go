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

package buffer

import (
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

var pageSize = unix.Getpagesize()

// Fixed is a buffer of constant capacity whose memory is mapped outside of
// the Go heap. Its address never changes, which makes it a safe destination
// for in-flight reads and for registration with a ring.
type Fixed []byte

// NewFixed maps a buffer of at least size bytes, rounded up to whole pages.
func NewFixed(size int64) (*Fixed, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	size = (size + int64(pageSize) - 1) / int64(pageSize) * int64(pageSize)

	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.New("allocate buffer failed", errors.WithWrap(err), errors.WithMeta("pkg", "buffer"))
	}

	buffer := Fixed(region[:0])
	return &buffer, nil
}

func (buf *Fixed) Write(b []byte) (int, error) {
	if cap(*buf)-len(*buf) < len(b) {
		return 0, ErrTooLarge
	}
	*buf = (*buf)[:len(*buf)+copy((*buf)[len(*buf):cap(*buf)], b)]
	return len(b), nil
}

// Free returns the unused tail of the buffer, for the kernel to fill.
func (buf *Fixed) Free() []byte {
	return (*buf)[len(*buf):cap(*buf)]
}

// Commit extends the buffer over n bytes written into Free.
func (buf *Fixed) Commit(n int) error {
	if n < 0 || cap(*buf)-len(*buf) < n {
		return ErrTooLarge
	}
	*buf = (*buf)[:len(*buf)+n]
	return nil
}

// Region returns the whole mapping regardless of length.
func (buf *Fixed) Region() []byte {
	return (*buf)[:cap(*buf)]
}

func (buf *Fixed) Reset() {
	*buf = (*buf)[:0]
}

func (buf *Fixed) Bytes() []byte {
	return *buf
}

func (buf *Fixed) Len() int {
	return len(*buf)
}

func (buf *Fixed) Cap() int {
	return cap(*buf)
}

func (buf *Fixed) Close() error {
	if cap(*buf) == 0 {
		return nil
	}
	region := unsafe.Slice(unsafe.SliceData(*buf), cap(*buf))
	*buf = nil
	return unix.Munmap(region)
}
