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
	"github.com/brickingsoft/errors"
)

var (
	ErrTooLarge     = errors.Define("invalid data size")
	ErrInvalidSize  = errors.Define("buffer size must be positive")
	ErrNotAvailable = errors.Define("buffer is not available on this platform")
)

const (
	defaultSize     = 4096
	defaultCapacity = 64
)

var (
	fixedPool = NewFixedPool(defaultSize, defaultCapacity)
)

// FixedPool recycles Fixed buffers of one size. It keeps at most capacity
// idle buffers and unmaps any buffer returned beyond that.
type FixedPool struct {
	free chan *Fixed
	size int64
}

func NewFixedPool(size int64, capacity int) *FixedPool {
	return &FixedPool{
		free: make(chan *Fixed, capacity),
		size: size,
	}
}

func (p *FixedPool) Get() (*Fixed, error) {
	select {
	case b := <-p.free:
		return b, nil
	default:
		return NewFixed(p.size)
	}
}

func (p *FixedPool) Put(b *Fixed) {
	if b == nil || b.Cap() == 0 {
		return
	}
	b.Reset()
	select {
	case p.free <- b:
	default:
		_ = b.Close()
	}
}

// Idle returns the number of buffers waiting to be reused.
func (p *FixedPool) Idle() int {
	return len(p.free)
}

// Close unmaps every idle buffer. Buffers handed out by Get stay owned by
// their callers.
func (p *FixedPool) Close() error {
	var first error
	for {
		select {
		case b := <-p.free:
			if err := b.Close(); err != nil && first == nil {
				first = err
			}
		default:
			return first
		}
	}
}

func GetFixed() (*Fixed, error) {
	return fixedPool.Get()
}

func PutFixed(b *Fixed) {
	fixedPool.Put(b)
}
