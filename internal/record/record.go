package record

import "time"

// Kind names which variant of the closed packet-record union a Record
// holds, replacing the dynamic type checks the decoder's source language
// used.
type Kind int

const (
	KindMMIDynamic Kind = iota
	KindMMIStatus
	KindMMIDriverMessage
	KindMMIFailureReport
	KindBTMTelegram
	KindPassthrough
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindMMIDynamic:
		return "MMI_DYNAMIC"
	case KindMMIStatus:
		return "MMI_STATUS"
	case KindMMIDriverMessage:
		return "MMI_DRIVER_MESSAGE"
	case KindMMIFailureReport:
		return "MMI_FAILURE_REPORT_ATP"
	case KindBTMTelegram:
		return "BTM_TELEGRAM"
	case KindPassthrough:
		return "PASSTHROUGH"
	case KindUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// Record is the closed sum type over every decoded packet family. Each
// variant below is a distinct struct; callers switch on Kind() (or a type
// switch) rather than inspecting a dynamically typed container.
type Record interface {
	Kind() Kind
}

// MMIDynamic carries train kinematics at a single moment (packet type 1,
// or type 4 which shares its layout). See spec.md §4.3.
type MMIDynamic struct {
	Hdr          Header
	VTrain       uint16
	ATrain       int16
	OTrain       int64
	OBrakeTarget int64
	VTarget      uint16
	TIntervenWar uint16
	VPermitted   uint16
	VRelease     uint16
	VIntervention uint16
	MWarning     uint8
	MSlip        bool
	MSlide       bool
	OBcsp        int64
}

func (MMIDynamic) Kind() Kind { return KindMMIDynamic }

// MMIStatus carries the eight status enums of packet type 2.
type MMIStatus struct {
	Hdr            Header
	MAdhesion      uint8
	MMode          uint8
	MLevel         uint8
	MEmerBrake     uint8
	MServiceBrake  uint8
	MOverrideEOA   uint8
	MTrip          uint8
	MActiveCabin   uint8
}

func (MMIStatus) Kind() Kind { return KindMMIStatus }

// MMIDriverMessage carries a driver-facing message id and its opaque
// trailing payload (packet type 8).
type MMIDriverMessage struct {
	Hdr       Header
	MessageID uint16
	Payload   []byte
}

func (MMIDriverMessage) Kind() Kind { return KindMMIDriverMessage }

// MMIFailureReport carries an ATP failure number and its opaque trailing
// payload (packet type 9).
type MMIFailureReport struct {
	Hdr           Header
	FailureNumber uint16
	Payload       []byte
}

func (MMIFailureReport) Kind() Kind { return KindMMIFailureReport }

// BTMTelegram is a completed 104-byte balise telegram emitted by the
// reassembler once all five of its fragments have arrived.
type BTMTelegram struct {
	Sequence  int
	Data      [104]byte
	Timestamp time.Time
}

func (BTMTelegram) Kind() Kind { return KindBTMTelegram }

// Passthrough carries the header and an undecoded copy of the body for
// packet types the spec defines as opaque by design (VDX/DX signal
// classes, BTM command/status, etc).
// Family names the packet group for display purposes.
type Passthrough struct {
	Hdr    Header
	Family string
	Body   []byte
}

func (Passthrough) Kind() Kind { return KindPassthrough }

// Unknown carries the header and raw body of a packet type the dispatcher
// has no route for. Decoding continues; the caller decides what, if
// anything, to do with the bytes.
type Unknown struct {
	Hdr  Header
	Body []byte
}

func (Unknown) Kind() Kind { return KindUnknown }

// Event is one element of the decoder's output stream: either a decoded
// Record or an error, never both. This is the Go realization of spec.md's
// "errors are first-class values, not exceptions" design note — callers
// range over a slice/channel of Event and switch on which field is set.
type Event struct {
	Record Record
	Err    error
	Offset int64
}
