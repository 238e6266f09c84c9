package record

import "fmt"

// InvalidCalendarField reports a header timestamp component outside its
// valid range. Which names the field ("month", "day", "hour", "minute",
// "second"); Value is the offending value.
type InvalidCalendarField struct {
	Which string
	Value int
}

func (e *InvalidCalendarField) Error() string {
	return fmt.Sprintf("invalid calendar field %s: %d", e.Which, e.Value)
}

// BodyTooShort reports that a packet body was shorter than the sub-decoder
// selected for its type requires.
type BodyTooShort struct {
	Expected int
	Got      int
}

func (e *BodyTooShort) Error() string {
	return fmt.Sprintf("body too short: expected %d bytes, got %d", e.Expected, e.Got)
}

// FragmentIndexMismatch reports that a BTM fragment's self-reported index
// did not match the index implied by its packet type.
type FragmentIndexMismatch struct {
	Sequence int
	Expected int
	Actual   int
}

func (e *FragmentIndexMismatch) Error() string {
	return fmt.Sprintf("fragment index mismatch for sequence %d: expected %d, got %d", e.Sequence, e.Expected, e.Actual)
}

// PartialTelegramEvicted reports that an in-progress BTM telegram was
// discarded to make room for a fragment belonging to an unseen sequence.
type PartialTelegramEvicted struct {
	Sequence         int
	FragmentsPresent []int
}

func (e *PartialTelegramEvicted) Error() string {
	return fmt.Sprintf("partial telegram for sequence %d evicted with fragments %v present", e.Sequence, e.FragmentsPresent)
}

// UnknownPacketType reports a packet type byte the dispatcher has no route
// for. The frame is still recorded opaquely; decoding continues.
type UnknownPacketType struct {
	Type   uint8
	Offset int64
}

func (e *UnknownPacketType) Error() string {
	return fmt.Sprintf("unknown packet type %d at offset %d", e.Type, e.Offset)
}

// ResyncBudgetExceeded reports that a decode session exhausted its
// caller-configured resync budget. Decoding stops.
type ResyncBudgetExceeded struct {
	Skipped int
	Budget  int
}

func (e *ResyncBudgetExceeded) Error() string {
	return fmt.Sprintf("resync budget exceeded: skipped %d bytes against a budget of %d resyncs", e.Skipped, e.Budget)
}
