// Package header parses the 15-byte record header shared by every RU and
// MMI packet, plus the 1-byte body-length prefix that follows it.
package header

import (
	"time"

	"github.com/railsight/atpdecode/internal/bytes"
	"github.com/railsight/atpdecode/internal/record"
)

// yearBase is added to the raw YY byte: 0x00 means calendar year 2000.
const yearBase = 2000

// Parse consumes exactly record.HeaderSize bytes and returns the decoded
// header. It returns *bytes.Truncated if fewer bytes are available, or
// *record.InvalidCalendarField if a timestamp component is out of range.
func Parse(buf []byte) (record.Header, error) {
	var hdr record.Header

	packetType, err := bytes.U8(buf, 0)
	if err != nil {
		return hdr, err
	}
	yy, err := bytes.U8(buf, 1)
	if err != nil {
		return hdr, err
	}
	mm, err := bytes.U8(buf, 2)
	if err != nil {
		return hdr, err
	}
	dd, err := bytes.U8(buf, 3)
	if err != nil {
		return hdr, err
	}
	hh, err := bytes.U8(buf, 4)
	if err != nil {
		return hdr, err
	}
	mi, err := bytes.U8(buf, 5)
	if err != nil {
		return hdr, err
	}
	ss, err := bytes.U8(buf, 6)
	if err != nil {
		return hdr, err
	}
	location, err := bytes.U32(buf, 7)
	if err != nil {
		return hdr, err
	}
	reserved, err := bytes.U16(buf, 11)
	if err != nil {
		return hdr, err
	}
	speed, err := bytes.U16(buf, 13)
	if err != nil {
		return hdr, err
	}

	if err := validateCalendar(mm, dd, hh, mi, ss); err != nil {
		return hdr, err
	}

	hdr.PacketType = packetType
	hdr.PacketNumber = packetType
	hdr.Timestamp = time.Date(yearBase+int(yy), time.Month(mm), int(dd), int(hh), int(mi), int(ss), 0, time.UTC)
	hdr.Location = record.WrapCorrect(location)
	hdr.Speed = speed
	hdr.Reserved = reserved
	return hdr, nil
}

// ParseFrame parses the 15-byte header plus the 1-byte body-length prefix
// that follows it, and returns the body slice. On success consumed equals
// record.HeaderSize + 1 + len(body). On failure consumed is unspecified.
func ParseFrame(buf []byte) (hdr record.Header, body []byte, consumed int, err error) {
	hdr, err = Parse(buf)
	if err != nil {
		return record.Header{}, nil, 0, err
	}
	bodyLen, err := bytes.U8(buf, record.HeaderSize)
	if err != nil {
		return record.Header{}, nil, 0, err
	}
	bodyStart := record.HeaderSize + 1
	bodyEnd := bodyStart + int(bodyLen)
	if bodyEnd > len(buf) {
		return record.Header{}, nil, 0, &bytes.Truncated{Offset: bodyStart, Need: int(bodyLen)}
	}
	return hdr, buf[bodyStart:bodyEnd], bodyEnd, nil
}

// Serialize re-encodes hdr into a record.HeaderSize-byte buffer in the
// same field order Parse reads. Round-tripping raw bytes through Parse
// then Serialize reproduces the original bytes exactly, except that a
// Location at or beyond record.PositionWrapThreshold in the source comes
// back out already wrapped: Parse discards which of the two raw values
// produced a wrapped Location, so Serialize can only write the corrected
// one back.
func Serialize(hdr record.Header) []byte {
	buf := make([]byte, record.HeaderSize)
	bytes.PutU8(buf, 0, hdr.PacketType)
	bytes.PutU8(buf, 1, uint8(hdr.Timestamp.Year()-yearBase))
	bytes.PutU8(buf, 2, uint8(hdr.Timestamp.Month()))
	bytes.PutU8(buf, 3, uint8(hdr.Timestamp.Day()))
	bytes.PutU8(buf, 4, uint8(hdr.Timestamp.Hour()))
	bytes.PutU8(buf, 5, uint8(hdr.Timestamp.Minute()))
	bytes.PutU8(buf, 6, uint8(hdr.Timestamp.Second()))
	bytes.PutU32(buf, 7, uint32(hdr.Location))
	bytes.PutU16(buf, 11, hdr.Reserved)
	bytes.PutU16(buf, 13, hdr.Speed)
	return buf
}

func validateCalendar(mm, dd, hh, mi, ss uint8) error {
	if mm < 1 || mm > 12 {
		return &record.InvalidCalendarField{Which: "month", Value: int(mm)}
	}
	if dd < 1 || dd > 31 {
		return &record.InvalidCalendarField{Which: "day", Value: int(dd)}
	}
	if hh > 23 {
		return &record.InvalidCalendarField{Which: "hour", Value: int(hh)}
	}
	if mi > 59 {
		return &record.InvalidCalendarField{Which: "minute", Value: int(mi)}
	}
	if ss > 59 {
		return &record.InvalidCalendarField{Which: "second", Value: int(ss)}
	}
	return nil
}
