// File: internal/probe/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Capacity is the fixed width of one record in bytes.
const Capacity = 256

// rankWidth is the column width of the rank field on a participant's first record.
const rankWidth = 3

// rankPrefixLen is the width of "Rank %3d, "; later records indent by it.
const rankPrefixLen = len("Rank ") + rankWidth + len(", ")

// Text renders the record of one worker. Only worker 0 names the rank so the
// final report groups workers under their participant once.
func Text(rank, worker, workers int, obs Observation) string {
	body := fmt.Sprintf("thread %d of %d (cpu %d of %s)", worker, workers, obs.CPU, obs.Host)
	if worker == 0 {
		return fmt.Sprintf("Rank %*d, %s", rankWidth, rank, body)
	}
	return strings.Repeat(" ", rankPrefixLen) + body
}

// Encode writes text into slot, zero-padding or truncating to len(slot).
func Encode(slot []byte, text string) {
	n := copy(slot, text)
	clear(slot[n:])
}

// Decode strips the zero padding of a slot. Interior content is left as is.
func Decode(slot []byte) string {
	return string(bytes.TrimRight(slot, "\x00"))
}

// Fields is a record parsed back into its parts. Rank is -1 for records that
// do not carry the rank column.
type Fields struct {
	Rank    int
	Thread  int
	Threads int
	CPU     int
	Host    string
}

// Parse reverses Text. It reports false for lines it cannot read, such as
// records truncated by an oversized host name.
func Parse(line string) (Fields, bool) {
	f := Fields{Rank: -1}
	rest := line
	if after, ok := strings.CutPrefix(rest, "Rank "); ok {
		num, tail, ok := strings.Cut(after, ",")
		if !ok {
			return Fields{}, false
		}
		rank, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return Fields{}, false
		}
		f.Rank = rank
		rest = tail
	}
	rest, ok := strings.CutPrefix(strings.TrimLeft(rest, " "), "thread ")
	if !ok {
		return Fields{}, false
	}
	var err error
	var num string
	if num, rest, ok = strings.Cut(rest, " of "); !ok {
		return Fields{}, false
	}
	if f.Thread, err = strconv.Atoi(num); err != nil {
		return Fields{}, false
	}
	if num, rest, ok = strings.Cut(rest, " (cpu "); !ok {
		return Fields{}, false
	}
	if f.Threads, err = strconv.Atoi(num); err != nil {
		return Fields{}, false
	}
	if num, rest, ok = strings.Cut(rest, " of "); !ok {
		return Fields{}, false
	}
	if f.CPU, err = strconv.Atoi(num); err != nil {
		return Fields{}, false
	}
	if f.Host, ok = strings.CutSuffix(rest, ")"); !ok {
		return Fields{}, false
	}
	return f, true
}
