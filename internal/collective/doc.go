// File: internal/collective/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package collective implements the two all-to-one exchanges of a placement
// run:
//
//   - GatherCounts: every participant contributes its worker count; the
//     coordinator learns the whole vector and its sum. Participants are released
//     only after the coordinator holds every count.
//   - Gatherv: every participant ships its record buffer; the coordinator
//     places each buffer at the offset planned for it and rejects any payload
//     whose size differs from the plan.
//
// The two exchanges are separate rendezvous and are never fused. Both block
// until every participant has entered them; there are no timeouts, only
// context cancellation. A Communicator is used by one goroutine at a time.
//
// The same coordinator and participant logic runs over TCP sessions
// (multi-process jobs) and over in-process mailboxes (single-process
// simulation and tests).
package collective
