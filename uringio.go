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

// Package uringio drives Linux io_uring instances directly through their
// shared memory rings.
//
// A Ring is created with Setup and a Mode. Entries are staged with a
// Submitter and published to the kernel with Ring.Submit, and completions are
// read with a Collector:
//
//	ring, err := uringio.Setup(128, uringio.SQPoll)
//	if err != nil {
//		return err
//	}
//	defer ring.Close()
//
//	s, err := ring.Submitter()
//	if err != nil {
//		return err
//	}
//	nop := uringio.NewNop(0x42)
//	if err := uringio.PushOp(s, &nop); err != nil {
//		return err
//	}
//	if _, err := ring.Submit(s, 1); err != nil {
//		return err
//	}
//
//	c, err := ring.Collector()
//	if err != nil {
//		return err
//	}
//	defer c.Release()
//	for cqe := range c.All() {
//		fmt.Println(cqe.UserData, cqe.Res)
//	}
package uringio
