// File: internal/collective/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import "fmt"

type kind uint8

const (
	kindHello kind = iota + 1
	kindCount
	kindCountsAck
	kindPayload
	kindPayloadAck
	kindAbort
)

func (k kind) String() string {
	switch k {
	case kindHello:
		return "hello"
	case kindCount:
		return "count"
	case kindCountsAck:
		return "counts-ack"
	case kindPayload:
		return "payload"
	case kindPayloadAck:
		return "payload-ack"
	case kindAbort:
		return "abort"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// frame is the single message type exchanged between participants.
type frame struct {
	Kind    kind   `cbor:"kind"`
	Rank    int    `cbor:"rank"`
	Size    int    `cbor:"size,omitempty"`
	JobID   string `cbor:"job,omitempty"`
	Count   int    `cbor:"count,omitempty"`
	RunID   string `cbor:"run,omitempty"`
	Payload []byte `cbor:"payload,omitempty"`
	Reason  string `cbor:"reason,omitempty"`
}
