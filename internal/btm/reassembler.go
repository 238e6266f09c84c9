// Package btm reassembles balise telegrams from their five fragments.
// Fragments may arrive out of order and interleaved across up to ten
// concurrently in-progress telegram sequences; the Reassembler is a
// fixed-capacity, single-threaded slot pool, not a growing map.
package btm

import (
	"time"

	"github.com/railsight/atpdecode/internal/bytes"
	"github.com/railsight/atpdecode/internal/record"
)

// Capacity is the number of concurrent in-progress telegram sequences the
// reassembler can track at once.
const Capacity = 10

// FragmentCount is the number of fragments a complete telegram is split
// across.
const FragmentCount = 5

// TelegramSize is the total payload size, in bytes, of a complete
// telegram: 4 + 25 + 25 + 25 + 25.
const TelegramSize = 104

// fragmentPayloadLen gives the payload length, in bytes, carried by
// fragment index i (1-based).
var fragmentPayloadLen = [FragmentCount + 1]int{0, 4, 25, 25, 25, 25}

// IndexForPacketType maps an RU packet type (43-47) to its BTM fragment
// index (1-5), and reports whether the type is a BTM fragment type at all.
func IndexForPacketType(packetType uint8) (index int, ok bool) {
	if packetType < 43 || packetType > 47 {
		return 0, false
	}
	return int(packetType) - 42, true
}

type slot struct {
	occupied   bool
	sequence   int
	earliestTS time.Time
	fragments  [FragmentCount + 1][]byte // fragments[1..5]; fragments[i] == nil means not yet received
	present    int
}

func (s *slot) reset() {
	s.occupied = false
	s.sequence = 0
	s.earliestTS = time.Time{}
	for i := range s.fragments {
		s.fragments[i] = nil
	}
	s.present = 0
}

func (s *slot) complete() bool {
	return s.present == FragmentCount
}

// Reassembler is a fixed pool of Capacity slots, each tracking one
// in-progress telegram sequence. It is single-threaded: fragments are
// processed in the order the caller feeds them.
type Reassembler struct {
	slots             [Capacity]slot
	evictedIncomplete int
}

// New returns an empty reassembler.
func New() *Reassembler {
	return &Reassembler{}
}

// EvictedIncomplete returns the number of partial telegrams discarded to
// make room for a fragment belonging to an unseen sequence.
func (r *Reassembler) EvictedIncomplete() int {
	return r.evictedIncomplete
}

// AddFragment feeds one fragment (packet type 43-47, with its header and
// body already parsed by the dispatcher) into the reassembler. It returns
// a completed telegram if this fragment was the last of its sequence, and
// a non-nil error if the fragment was rejected or an existing partial
// sequence had to be evicted to make room for this one's sequence.
//
// Both a telegram and an error are never returned together: eviction
// happens before the new fragment is installed, so the telegram that
// eviction makes room for (if any) completes on a later call.
func (r *Reassembler) AddFragment(packetType uint8, capturedAt time.Time, body []byte) (*record.BTMTelegram, error) {
	index, ok := IndexForPacketType(packetType)
	if !ok {
		return nil, nil
	}
	sequence, reportedIndex, payload, err := parseFragmentBody(body)
	if err != nil {
		return nil, err
	}
	if reportedIndex != index {
		return nil, &record.FragmentIndexMismatch{Sequence: sequence, Expected: index, Actual: reportedIndex}
	}
	wantLen := fragmentPayloadLen[index]
	if len(payload) != wantLen {
		return nil, &record.BodyTooShort{Expected: wantLen, Got: len(payload)}
	}

	s := r.findSlot(sequence)
	var evictErr error
	if s == nil {
		s, evictErr = r.claimSlot(sequence, capturedAt)
	}

	if s.fragments[index] == nil {
		s.present++
	}
	s.fragments[index] = cloneBytes(payload)
	if !s.occupied {
		s.occupied = true
		s.sequence = sequence
		s.earliestTS = capturedAt
	}

	if !s.complete() {
		return nil, evictErr
	}

	telegram := &record.BTMTelegram{Sequence: s.sequence, Timestamp: s.earliestTS}
	offset := 0
	for i := 1; i <= FragmentCount; i++ {
		copy(telegram.Data[offset:], s.fragments[i])
		offset += len(s.fragments[i])
	}
	s.reset()
	return telegram, evictErr
}

// findSlot returns the occupied slot for sequence, or nil if none holds it.
func (r *Reassembler) findSlot(sequence int) *slot {
	for i := range r.slots {
		if r.slots[i].occupied && r.slots[i].sequence == sequence {
			return &r.slots[i]
		}
	}
	return nil
}

// claimSlot returns an empty slot for a new sequence, evicting the oldest
// partial sequence if the pool is full.
func (r *Reassembler) claimSlot(sequence int, capturedAt time.Time) (*slot, error) {
	for i := range r.slots {
		if !r.slots[i].occupied {
			return &r.slots[i], nil
		}
	}
	oldest := 0
	for i := 1; i < Capacity; i++ {
		if r.slots[i].earliestTS.Before(r.slots[oldest].earliestTS) {
			oldest = i
		}
	}
	evicted := &r.slots[oldest]
	present := make([]int, 0, evicted.present)
	for i := 1; i <= FragmentCount; i++ {
		if evicted.fragments[i] != nil {
			present = append(present, i)
		}
	}
	err := &record.PartialTelegramEvicted{Sequence: evicted.sequence, FragmentsPresent: present}
	evicted.reset()
	r.evictedIncomplete++
	return evicted, err
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func parseFragmentBody(body []byte) (sequence int, fragmentIndex int, payload []byte, err error) {
	seq, err := bytes.U16(body, 0)
	if err != nil {
		return 0, 0, nil, err
	}
	idx, err := bytes.U8(body, 2)
	if err != nil {
		return 0, 0, nil, err
	}
	return int(seq), int(idx), body[3:], nil
}
