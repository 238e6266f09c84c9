package btm

import (
	"testing"
	"time"

	"github.com/railsight/atpdecode/internal/record"
)

func fragmentBody(sequence, index int, payload []byte) []byte {
	body := make([]byte, 3+len(payload))
	body[0] = byte(sequence >> 8)
	body[1] = byte(sequence)
	body[2] = byte(index)
	copy(body[3:], payload)
	return body
}

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// fragments returns the five bodies (packet types 43-47, in fragment order)
// for a telegram with the given sequence, each payload filled with its own
// fragment index so reassembly order is easy to verify byte-for-byte.
func fragments(sequence int) [5][]byte {
	var out [5][]byte
	for i := 1; i <= FragmentCount; i++ {
		out[i-1] = fragmentBody(sequence, i, fill(fragmentPayloadLen[i], byte(i)))
	}
	return out
}

func wantTelegramData() [TelegramSize]byte {
	var want [TelegramSize]byte
	offset := 0
	for i := 1; i <= FragmentCount; i++ {
		n := fragmentPayloadLen[i]
		for j := 0; j < n; j++ {
			want[offset+j] = byte(i)
		}
		offset += n
	}
	return want
}

func TestReassembleInOrder(t *testing.T) {
	r := New()
	frags := fragments(1)
	base := time.Now()
	var got *record.BTMTelegram
	for i, body := range frags {
		tg, err := r.AddFragment(uint8(43+i), base.Add(time.Duration(i)*time.Millisecond), body)
		if err != nil {
			t.Fatalf("fragment %d: unexpected error: %v", i+1, err)
		}
		if tg != nil {
			got = tg
		}
	}
	if got == nil {
		t.Fatal("telegram never completed")
	}
	if got.Sequence != 1 {
		t.Fatalf("Sequence = %d, want 1", got.Sequence)
	}
	if !got.Timestamp.Equal(base) {
		t.Fatalf("Timestamp = %v, want earliest fragment time %v", got.Timestamp, base)
	}
	want := wantTelegramData()
	if got.Data != want {
		t.Fatalf("Data mismatch")
	}
}

func TestReassembleReverseOrderIsCommutative(t *testing.T) {
	r := New()
	frags := fragments(2)
	base := time.Now()
	var got *record.BTMTelegram
	for i := FragmentCount - 1; i >= 0; i-- {
		tg, err := r.AddFragment(uint8(43+i), base.Add(time.Duration(i)*time.Millisecond), frags[i])
		if err != nil {
			t.Fatalf("fragment %d: unexpected error: %v", i+1, err)
		}
		if tg != nil {
			got = tg
		}
	}
	if got == nil {
		t.Fatal("telegram never completed")
	}
	want := wantTelegramData()
	if got.Data != want {
		t.Fatalf("reverse-order reassembly produced different bytes than in-order")
	}
}

func TestReassembleInterleavedIsolation(t *testing.T) {
	r := New()
	a := fragments(10)
	b := fragments(20)
	base := time.Now()

	// Interleave: a1 b1 a2 b2 a3 b3 a4 b4 a5 b5
	var aTg, bTg *record.BTMTelegram
	for i := 0; i < FragmentCount; i++ {
		tg, err := r.AddFragment(uint8(43+i), base, a[i])
		if err != nil {
			t.Fatalf("sequence 10 fragment %d: unexpected error: %v", i+1, err)
		}
		if tg != nil {
			aTg = tg
		}
		tg, err = r.AddFragment(uint8(43+i), base, b[i])
		if err != nil {
			t.Fatalf("sequence 20 fragment %d: unexpected error: %v", i+1, err)
		}
		if tg != nil {
			bTg = tg
		}
	}
	if aTg == nil || bTg == nil {
		t.Fatalf("interleaved telegrams did not both complete: a=%v b=%v", aTg, bTg)
	}
	if aTg.Sequence != 10 || bTg.Sequence != 20 {
		t.Fatalf("sequences crossed: a.Sequence=%d b.Sequence=%d", aTg.Sequence, bTg.Sequence)
	}
	want := wantTelegramData()
	if aTg.Data != want || bTg.Data != want {
		t.Fatalf("interleaved reassembly corrupted payload")
	}
}

func TestEvictionOfOldestPartial(t *testing.T) {
	r := New()
	base := time.Now()

	// Open Capacity partial sequences, each with only its first fragment,
	// at strictly increasing earliestTS.
	for seq := 0; seq < Capacity; seq++ {
		body := fragmentBody(seq, 1, fill(fragmentPayloadLen[1], 1))
		ts := base.Add(time.Duration(seq) * time.Second)
		if _, err := r.AddFragment(43, ts, body); err != nil {
			t.Fatalf("sequence %d: unexpected error: %v", seq, err)
		}
	}

	// The pool is now full. Sequence 0 is the oldest (earliestTS = base).
	// An 11th sequence must evict it.
	overflowBody := fragmentBody(Capacity, 1, fill(fragmentPayloadLen[1], 1))
	_, err := r.AddFragment(43, base.Add(time.Duration(Capacity)*time.Second), overflowBody)
	evicted, ok := err.(*record.PartialTelegramEvicted)
	if !ok {
		t.Fatalf("expected *record.PartialTelegramEvicted, got %T (%v)", err, err)
	}
	if evicted.Sequence != 0 {
		t.Fatalf("evicted.Sequence = %d, want 0 (oldest earliestTS)", evicted.Sequence)
	}
	if len(evicted.FragmentsPresent) != 1 || evicted.FragmentsPresent[0] != 1 {
		t.Fatalf("evicted.FragmentsPresent = %v, want [1]", evicted.FragmentsPresent)
	}
	if r.EvictedIncomplete() != 1 {
		t.Fatalf("EvictedIncomplete() = %d, want 1", r.EvictedIncomplete())
	}

	// Sequence 0 no longer exists: feeding its remaining fragments starts
	// a brand new sequence 0, it does not resume the evicted one. The pool
	// is still full, so claiming a slot for the new sequence 0 evicts the
	// next oldest partial, sequence 1. Without the evicted fragment 1 the
	// new sequence 0 never completes, not even on fragment 5.
	for i := 1; i < FragmentCount; i++ {
		body := fragmentBody(0, i+1, fill(fragmentPayloadLen[i+1], byte(i+1)))
		tg, err := r.AddFragment(uint8(43+i), base, body)
		if i == 1 {
			ev, ok := err.(*record.PartialTelegramEvicted)
			if !ok || ev.Sequence != 1 {
				t.Fatalf("rebuilding sequence 0, fragment %d: err = %v, want sequence 1 evicted", i+1, err)
			}
		} else if err != nil {
			t.Fatalf("rebuilding sequence 0, fragment %d: unexpected error: %v", i+1, err)
		}
		if tg != nil {
			t.Fatalf("sequence 0 completed after %d fragments without its evicted fragment 1", i+1)
		}
	}
}

func TestSlotBoundNeverExceedsCapacity(t *testing.T) {
	r := New()
	base := time.Now()
	for seq := 0; seq < Capacity*3; seq++ {
		body := fragmentBody(seq, 1, fill(fragmentPayloadLen[1], 1))
		r.AddFragment(43, base.Add(time.Duration(seq)*time.Second), body)
	}
	occupied := 0
	for i := range r.slots {
		if r.slots[i].occupied {
			occupied++
		}
	}
	if occupied > Capacity {
		t.Fatalf("occupied slots = %d, want <= %d", occupied, Capacity)
	}
}

func TestFragmentIndexMismatchDropsFragment(t *testing.T) {
	r := New()
	base := time.Now()
	// Packet type 44 implies fragment index 2, but the body claims index 3.
	body := fragmentBody(5, 3, fill(fragmentPayloadLen[2], 0xAA))
	_, err := r.AddFragment(44, base, body)
	mismatch, ok := err.(*record.FragmentIndexMismatch)
	if !ok {
		t.Fatalf("expected *record.FragmentIndexMismatch, got %T (%v)", err, err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 3 {
		t.Fatalf("mismatch = %+v, want Expected=2 Actual=3", mismatch)
	}

	// The mismatched fragment must not have been installed: completing the
	// sequence legitimately afterwards should still require all 5 fragments.
	frags := fragments(5)
	var tg *record.BTMTelegram
	for i, fb := range frags {
		got, err := r.AddFragment(uint8(43+i), base, fb)
		if err != nil {
			t.Fatalf("fragment %d: unexpected error: %v", i+1, err)
		}
		if got != nil {
			tg = got
		}
	}
	if tg == nil {
		t.Fatal("legitimate sequence 5 never completed after mismatched fragment was rejected")
	}
}

func TestWrongPayloadLengthRejected(t *testing.T) {
	r := New()
	body := fragmentBody(1, 2, fill(fragmentPayloadLen[2]-1, 0xAA))
	_, err := r.AddFragment(44, time.Now(), body)
	bts, ok := err.(*record.BodyTooShort)
	if !ok {
		t.Fatalf("expected *record.BodyTooShort, got %T (%v)", err, err)
	}
	if bts.Expected != fragmentPayloadLen[2] {
		t.Fatalf("Expected = %d, want %d", bts.Expected, fragmentPayloadLen[2])
	}
}

func TestIndexForPacketType(t *testing.T) {
	for pt := 43; pt <= 47; pt++ {
		idx, ok := IndexForPacketType(uint8(pt))
		if !ok || idx != pt-42 {
			t.Fatalf("IndexForPacketType(%d) = (%d, %v), want (%d, true)", pt, idx, ok, pt-42)
		}
	}
	if _, ok := IndexForPacketType(42); ok {
		t.Fatal("IndexForPacketType(42) = ok, want not-ok")
	}
	if _, ok := IndexForPacketType(48); ok {
		t.Fatal("IndexForPacketType(48) = ok, want not-ok")
	}
}

func TestDuplicateFragmentLastWriterWins(t *testing.T) {
	r := New()
	base := time.Now()
	frags := fragments(7)
	for i := 0; i < FragmentCount-1; i++ {
		if _, err := r.AddFragment(uint8(43+i), base, frags[i]); err != nil {
			t.Fatalf("fragment %d: unexpected error: %v", i+1, err)
		}
	}
	// Re-send fragment 1 with different content before completing.
	overwritten := fragmentBody(7, 1, fill(fragmentPayloadLen[1], 0x99))
	if _, err := r.AddFragment(43, base, overwritten); err != nil {
		t.Fatalf("re-sending fragment 1: unexpected error: %v", err)
	}
	tg, err := r.AddFragment(43+FragmentCount-1, base, frags[FragmentCount-1])
	if err != nil {
		t.Fatalf("final fragment: unexpected error: %v", err)
	}
	if tg == nil {
		t.Fatal("telegram never completed")
	}
	if tg.Data[0] != 0x99 {
		t.Fatalf("Data[0] = %#x, want 0x99 (last write should win)", tg.Data[0])
	}
}
