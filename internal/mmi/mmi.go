// Package mmi decodes the MMI (man-machine interface) packet family:
// MMI_DYNAMIC, MMI_STATUS, MMI_DRIVER_MESSAGE and MMI_FAILURE_REPORT_ATP.
// Each decoder consumes a packet body with the header already stripped.
package mmi

import (
	"github.com/railsight/atpdecode/internal/bytes"
	"github.com/railsight/atpdecode/internal/record"
)

// dynamicBodySize is the wire width of the MMI_DYNAMIC body: seven u16/i16
// fields, three u32 fields, and one status byte.
// 2+2+4+4+2+2+2+2+2+1+4 = 27
const dynamicBodySize = 27

// statusBodySize is the wire width of MMI_STATUS: eight status bytes.
const statusBodySize = 8

// DecodeDynamic decodes an MMI_DYNAMIC (packet type 1, or 4) body per
// spec.md §4.3's field order.
func DecodeDynamic(hdr record.Header, body []byte) (record.MMIDynamic, error) {
	var out record.MMIDynamic
	if len(body) < dynamicBodySize {
		return out, &record.BodyTooShort{Expected: dynamicBodySize, Got: len(body)}
	}

	vTrain, err := bytes.U16(body, 0)
	if err != nil {
		return out, err
	}
	aTrain, err := bytes.I16(body, 2)
	if err != nil {
		return out, err
	}
	oTrain, err := bytes.U32(body, 4)
	if err != nil {
		return out, err
	}
	oBrakeTarget, err := bytes.U32(body, 8)
	if err != nil {
		return out, err
	}
	vTarget, err := bytes.U16(body, 12)
	if err != nil {
		return out, err
	}
	tIntervenWar, err := bytes.U16(body, 14)
	if err != nil {
		return out, err
	}
	vPermitted, err := bytes.U16(body, 16)
	if err != nil {
		return out, err
	}
	vRelease, err := bytes.U16(body, 18)
	if err != nil {
		return out, err
	}
	vIntervention, err := bytes.U16(body, 20)
	if err != nil {
		return out, err
	}
	statusByte, err := bytes.U8(body, 22)
	if err != nil {
		return out, err
	}
	oBcsp, err := bytes.U32(body, 23)
	if err != nil {
		return out, err
	}

	out = record.MMIDynamic{
		Hdr:           hdr,
		VTrain:        vTrain,
		ATrain:        aTrain,
		OTrain:        record.WrapCorrect(oTrain),
		OBrakeTarget:  record.WrapCorrect(oBrakeTarget),
		VTarget:       vTarget,
		TIntervenWar:  tIntervenWar,
		VPermitted:    vPermitted,
		VRelease:      vRelease,
		VIntervention: vIntervention,
		MWarning:      statusByte & 0x0F,
		MSlip:         (statusByte>>4)&1 != 0,
		MSlide:        (statusByte>>5)&1 != 0,
		OBcsp:         record.WrapCorrect(oBcsp),
	}
	return out, nil
}

// DecodeStatus decodes an MMI_STATUS (packet type 2) body: eight
// unsigned bytes with no bit unpacking and no domain validation.
func DecodeStatus(hdr record.Header, body []byte) (record.MMIStatus, error) {
	var out record.MMIStatus
	if len(body) < statusBodySize {
		return out, &record.BodyTooShort{Expected: statusBodySize, Got: len(body)}
	}
	out = record.MMIStatus{
		Hdr:           hdr,
		MAdhesion:     body[0],
		MMode:         body[1],
		MLevel:        body[2],
		MEmerBrake:    body[3],
		MServiceBrake: body[4],
		MOverrideEOA:  body[5],
		MTrip:         body[6],
		MActiveCabin:  body[7],
	}
	return out, nil
}

// DecodeDriverMessage decodes an MMI_DRIVER_MESSAGE (packet type 8) body:
// a u16 message id followed by an opaque payload.
func DecodeDriverMessage(hdr record.Header, body []byte) (record.MMIDriverMessage, error) {
	var out record.MMIDriverMessage
	if len(body) < 2 {
		return out, &record.BodyTooShort{Expected: 2, Got: len(body)}
	}
	messageID, _ := bytes.U16(body, 0)
	payload := make([]byte, len(body)-2)
	copy(payload, body[2:])
	out = record.MMIDriverMessage{Hdr: hdr, MessageID: messageID, Payload: payload}
	return out, nil
}

// DecodeFailureReport decodes an MMI_FAILURE_REPORT_ATP (packet type 9)
// body: a u16 failure number followed by an opaque payload.
func DecodeFailureReport(hdr record.Header, body []byte) (record.MMIFailureReport, error) {
	var out record.MMIFailureReport
	if len(body) < 2 {
		return out, &record.BodyTooShort{Expected: 2, Got: len(body)}
	}
	failureNumber, _ := bytes.U16(body, 0)
	payload := make([]byte, len(body)-2)
	copy(payload, body[2:])
	out = record.MMIFailureReport{Hdr: hdr, FailureNumber: failureNumber, Payload: payload}
	return out, nil
}
