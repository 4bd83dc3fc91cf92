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

import "sync/atomic"

var barrierDummy int64

// fullBarrier orders every earlier memory access before every later one.
// Go's atomic read-modify-write operations are sequentially consistent, and
// on amd64 this compiles to LOCK XADD.
func fullBarrier() {
	atomic.AddInt64(&barrierDummy, 0)
}
