// Package ru implements the top-level frame walker for RU recordings: it
// reads each packet's header and length prefix, routes the body to the
// matching sub-decoder, and resynchronises on malformed input.
package ru

import (
	"fmt"

	"github.com/railsight/atpdecode/internal/btm"
	"github.com/railsight/atpdecode/internal/bytes"
	"github.com/railsight/atpdecode/internal/header"
	"github.com/railsight/atpdecode/internal/mmi"
	"github.com/railsight/atpdecode/internal/record"
)

// DefaultResyncBudget is the number of resync attempts a session permits
// before aborting, absent a caller override.
const DefaultResyncBudget = 100

// passthroughFamilies names the opaque packet-type ranges the dispatcher
// forwards without decoding. Ranges not listed here that aren't MMI or BTM
// fragment types fall through to Unknown.
var passthroughFamilies = []struct {
	low, high uint8
	name      string
}{
	{21, 24, "VDX_SIGNAL"},
	{31, 33, "DX_SIGNAL"},
	{41, 41, "BTM_COMMAND"},
	{42, 42, "BTM_STATUS"},
	{51, 52, "BRAKE_SIGNAL"},
	{61, 64, "DOOR_SIGNAL"},
	{71, 72, "TRACTION_SIGNAL"},
	{91, 91, "DIAGNOSTIC"},
	{201, 201, "SESSION_START"},
	{211, 211, "SESSION_END"},
	{216, 216, "CALIBRATION"},
	{221, 228, "VEHICLE_BUS_EXTENDED"},
}

func passthroughFamily(packetType uint8) (string, bool) {
	for _, f := range passthroughFamilies {
		if packetType >= f.low && packetType <= f.high {
			return f.name, true
		}
	}
	return "", false
}

// Summary tallies the outcome of a decode session for the CLI's
// compact post-run report.
type Summary struct {
	FramesDecoded        int
	ResyncsPerformed     int
	BytesSkippedOnResync int
	TelegramsReassembled int
	EvictedIncomplete    int
	ErrorsByKind         map[string]int
}

func newSummary() Summary {
	return Summary{ErrorsByKind: make(map[string]int)}
}

func (s *Summary) countError(err error) {
	s.ErrorsByKind[fmt.Sprintf("%T", err)]++
}

// Session holds the state of one decode run: its reassembler, resync
// budget, and accumulated counters. Sessions share no mutable state with
// each other and are cheap to create.
type Session struct {
	resyncBudget int
	reassembler  *btm.Reassembler
}

// NewSession returns a session with the given resync budget. A budget of
// zero or less uses DefaultResyncBudget.
func NewSession(resyncBudget int) *Session {
	if resyncBudget <= 0 {
		resyncBudget = DefaultResyncBudget
	}
	return &Session{resyncBudget: resyncBudget, reassembler: btm.New()}
}

// DecodeAll walks buf frame by frame and returns the full ordered event
// stream along with a run summary. It never blocks and performs no I/O.
func (s *Session) DecodeAll(buf []byte) ([]record.Event, Summary) {
	var events []record.Event
	summary := newSummary()
	offset := 0

	emit := func(ev record.Event) {
		events = append(events, ev)
		if ev.Err != nil {
			summary.countError(ev.Err)
		}
	}

	for offset < len(buf) {
		if offset+int(record.HeaderSize) > len(buf) {
			emit(record.Event{Err: &bytes.Truncated{Offset: offset, Need: record.HeaderSize}, Offset: int64(offset)})
			break
		}

		hdr, body, consumed, err := header.ParseFrame(buf[offset:])
		if err != nil {
			if _, ok := err.(*record.InvalidCalendarField); ok {
				emit(record.Event{Err: err, Offset: int64(offset)})
				summary.ResyncsPerformed++
				summary.BytesSkippedOnResync++
				if summary.ResyncsPerformed > s.resyncBudget {
					emit(record.Event{Err: &record.ResyncBudgetExceeded{Skipped: summary.BytesSkippedOnResync, Budget: s.resyncBudget}, Offset: int64(offset)})
					break
				}
				offset++
				continue
			}
			// bytes.Truncated, or any other frame-boundary-ambiguous error:
			// the stream offset can no longer be trusted, so stop.
			emit(record.Event{Err: err, Offset: int64(offset)})
			break
		}

		s.dispatch(hdr, body, int64(offset), &summary, emit)
		summary.FramesDecoded++
		offset += consumed
	}

	return events, summary
}

func (s *Session) dispatch(hdr record.Header, body []byte, offset int64, summary *Summary, emit func(record.Event)) {
	switch {
	case hdr.PacketType == 1 || hdr.PacketType == 4:
		rec, err := mmi.DecodeDynamic(hdr, body)
		if err != nil {
			emit(record.Event{Err: err, Offset: offset})
			return
		}
		emit(record.Event{Record: rec, Offset: offset})

	case hdr.PacketType == 2:
		rec, err := mmi.DecodeStatus(hdr, body)
		if err != nil {
			emit(record.Event{Err: err, Offset: offset})
			return
		}
		emit(record.Event{Record: rec, Offset: offset})

	case hdr.PacketType == 8:
		rec, err := mmi.DecodeDriverMessage(hdr, body)
		if err != nil {
			emit(record.Event{Err: err, Offset: offset})
			return
		}
		emit(record.Event{Record: rec, Offset: offset})

	case hdr.PacketType == 9:
		rec, err := mmi.DecodeFailureReport(hdr, body)
		if err != nil {
			emit(record.Event{Err: err, Offset: offset})
			return
		}
		emit(record.Event{Record: rec, Offset: offset})

	case hdr.PacketType >= 43 && hdr.PacketType <= 47:
		telegram, err := s.reassembler.AddFragment(hdr.PacketType, hdr.Timestamp, body)
		if telegram != nil {
			summary.TelegramsReassembled++
			emit(record.Event{Record: *telegram, Offset: offset})
		}
		if err != nil {
			if _, ok := err.(*record.PartialTelegramEvicted); ok {
				summary.EvictedIncomplete++
			}
			emit(record.Event{Err: err, Offset: offset})
		}

	default:
		if family, ok := passthroughFamily(hdr.PacketType); ok {
			emit(record.Event{Record: record.Passthrough{Hdr: hdr, Family: family, Body: cloneBody(body)}, Offset: offset})
			return
		}
		emit(record.Event{Err: &record.UnknownPacketType{Type: hdr.PacketType, Offset: offset}, Offset: offset})
		emit(record.Event{Record: record.Unknown{Hdr: hdr, Body: cloneBody(body)}, Offset: offset})
	}
}

func cloneBody(body []byte) []byte {
	out := make([]byte, len(body))
	copy(out, body)
	return out
}
