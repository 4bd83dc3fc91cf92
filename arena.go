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
	"github.com/brickingsoft/errors"
)

// Arena owns the shared memory regions of a ring: the submission ring, the
// submission entry array and the completion ring. With FeatureSingleMMap the
// completion ring lives inside the submission ring mapping.
type Arena struct {
	mapper Mapper
	sq     []byte
	sqes   []byte
	cq     []byte
}

// ringSizes is defined here: https://github.com/axboe/liburing/blob/liburing-2.4/src/setup.c
func ringSizes(params *Params, sqe SQESize, cqe CQESize) (sqSize int, sqesSize int, cqSize int) {
	sqSize = int(params.SQOffsets.Array)
	if params.Flags&SetupNoSQArray == 0 {
		sqSize += int(uintptr(params.SQEntries) * uint32Size)
	}
	sqesSize = int(uintptr(params.SQEntries) * sqe.SlotSize())
	cqSize = int(uintptr(params.CQOffsets.CQEs) + uintptr(params.CQEntries)*cqe.SlotSize())
	return
}

// NewArena maps the regions of the ring fd described by params. If any
// mapping fails, the regions mapped so far are released before returning.
func NewArena(mapper Mapper, fd int, params *Params, sqe SQESize, cqe CQESize) (arena *Arena, err error) {
	sqSize, sqesSize, cqSize := ringSizes(params, sqe, cqe)
	single := params.Features&FeatureSingleMMap != 0
	if single {
		sqSize = max(sqSize, cqSize)
	}

	a := &Arena{mapper: mapper}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.sqes, err = mapper.Mmap(fd, SQEntriesOffset, sqesSize); err != nil {
		return nil, mmapError("sqes", err)
	}
	if a.sq, err = mapper.Mmap(fd, SQRingOffset, sqSize); err != nil {
		return nil, mmapError("sq", err)
	}
	if !single {
		if a.cq, err = mapper.Mmap(fd, CQRingOffset, cqSize); err != nil {
			return nil, mmapError("cq", err)
		}
	}

	return a, nil
}

func mmapError(region string, cause error) error {
	return errors.New(
		"mmap ring region failed",
		errors.WithWrap(cause),
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, errMetaOpMmap),
		errors.WithMeta(errMetaRegionKey, region),
	)
}

// SQ returns the submission ring region.
func (a *Arena) SQ() []byte {
	return a.sq
}

// SQEs returns the submission entry region.
func (a *Arena) SQEs() []byte {
	return a.sqes
}

// CQ returns the completion ring region, which is the submission ring region
// when the two share a mapping.
func (a *Arena) CQ() []byte {
	if a.cq == nil {
		return a.sq
	}
	return a.cq
}

// Shared reports whether the submission and completion rings share a mapping.
func (a *Arena) Shared() bool {
	return a.cq == nil && a.sq != nil
}

// Close unmaps every region exactly once. It returns the first unmap error.
func (a *Arena) Close() error {
	var first error
	for _, region := range []*[]byte{&a.cq, &a.sq, &a.sqes} {
		if *region == nil {
			continue
		}
		if err := a.mapper.Munmap(*region); err != nil && first == nil {
			first = err
		}
		*region = nil
	}
	return first
}
