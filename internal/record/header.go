package record

import "time"

// HeaderSize is the fixed width, in bytes, of the common RU/MMI packet
// header that precedes every frame's body-length byte and body.
const HeaderSize = 15

// Header is the immutable 15-byte header shared by every RU and MMI
// packet. PacketNumber duplicates PacketType; the two are split out
// because downstream formatting treats them as separate display fields
// even though they read the same byte.
type Header struct {
	PacketType   uint8
	PacketNumber uint8
	Timestamp    time.Time
	Location     int64
	Speed        uint16
	Reserved     uint16
}
