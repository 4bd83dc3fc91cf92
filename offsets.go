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

// Offsets passed to mmap(2) to select a ring region, as defined here:
// https://github.com/torvalds/linux/blob/master/include/uapi/linux/io_uring.h
const (
	SQRingOffset    int64 = 0
	CQRingOffset    int64 = 0x8000000
	SQEntriesOffset int64 = 0x10000000
)
