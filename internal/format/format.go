// Package format renders decoded records and errors as either
// human-readable text rows or the stable JSON shape external consumers
// match on field-for-field.
package format

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/railsight/atpdecode/internal/record"
)

const timestampLayout = "2006-01-02T15:04:05"

type jsonHeader struct {
	PacketNumber uint8  `json:"packet_number"`
	Timestamp    string `json:"timestamp"`
	Location     int64  `json:"location"`
	Speed        uint16 `json:"speed"`
}

type jsonRecord struct {
	PacketType  uint8       `json:"packet_type"`
	Description string      `json:"description"`
	Header      jsonHeader  `json:"header"`
	Data        interface{} `json:"data"`
}

// jsonErrorEvent is this port's rendering of the error half of the
// "Record | Error" output stream. spec.md only fixes the shape of the
// record half (§6); the error shape is an enrichment kept internally
// consistent with it.
type jsonErrorEvent struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Offset int64  `json:"offset"`
}

func headerOf(rec record.Record) (record.Header, bool) {
	switch r := rec.(type) {
	case record.MMIDynamic:
		return r.Hdr, true
	case record.MMIStatus:
		return r.Hdr, true
	case record.MMIDriverMessage:
		return r.Hdr, true
	case record.MMIFailureReport:
		return r.Hdr, true
	case record.Passthrough:
		return r.Hdr, true
	case record.Unknown:
		return r.Hdr, true
	case record.BTMTelegram:
		// A completed telegram has no 15-byte header of its own: it is
		// synthesized from five fragment packets, each with its own. Only
		// the earliest fragment's capture time survives into the
		// telegram (§4.4); the remaining header fields have no single
		// source and are left at their zero values.
		return record.Header{Timestamp: r.Timestamp}, true
	default:
		return record.Header{}, false
	}
}

func dataOf(rec record.Record) interface{} {
	switch r := rec.(type) {
	case record.MMIDynamic:
		return struct {
			VTrain        uint16 `json:"v_train"`
			ATrain        int16  `json:"a_train"`
			OTrain        int64  `json:"o_train"`
			OBrakeTarget  int64  `json:"o_brake_target"`
			VTarget       uint16 `json:"v_target"`
			TIntervenWar  uint16 `json:"t_interven_war"`
			VPermitted    uint16 `json:"v_permitted"`
			VRelease      uint16 `json:"v_release"`
			VIntervention uint16 `json:"v_intervention"`
			MWarning      uint8  `json:"m_warning"`
			MSlip         bool   `json:"m_slip"`
			MSlide        bool   `json:"m_slide"`
			OBcsp         int64  `json:"o_bcsp"`
		}{r.VTrain, r.ATrain, r.OTrain, r.OBrakeTarget, r.VTarget, r.TIntervenWar,
			r.VPermitted, r.VRelease, r.VIntervention, r.MWarning, r.MSlip, r.MSlide, r.OBcsp}

	case record.MMIStatus:
		return struct {
			MAdhesion     uint8 `json:"m_adhesion"`
			MMode         uint8 `json:"m_mode"`
			MLevel        uint8 `json:"m_level"`
			MEmerBrake    uint8 `json:"m_emer_brake"`
			MServiceBrake uint8 `json:"m_service_brake"`
			MOverrideEOA  uint8 `json:"m_override_eoa"`
			MTrip         uint8 `json:"m_trip"`
			MActiveCabin  uint8 `json:"m_active_cabin"`
		}{r.MAdhesion, r.MMode, r.MLevel, r.MEmerBrake, r.MServiceBrake, r.MOverrideEOA, r.MTrip, r.MActiveCabin}

	case record.MMIDriverMessage:
		return struct {
			MessageID uint16 `json:"message_id"`
			Payload   string `json:"payload_hex"`
		}{r.MessageID, hex.EncodeToString(r.Payload)}

	case record.MMIFailureReport:
		return struct {
			FailureNumber uint16 `json:"failure_number"`
			Payload       string `json:"payload_hex"`
		}{r.FailureNumber, hex.EncodeToString(r.Payload)}

	case record.BTMTelegram:
		return struct {
			Sequence int    `json:"sequence"`
			Payload  string `json:"payload_hex"`
		}{r.Sequence, hex.EncodeToString(r.Data[:])}

	case record.Passthrough:
		return struct {
			Family  string `json:"family"`
			Payload string `json:"payload_hex"`
		}{r.Family, hex.EncodeToString(r.Body)}

	case record.Unknown:
		if len(r.Body) == 0 {
			return nil
		}
		return struct {
			Payload string `json:"payload_hex"`
		}{hex.EncodeToString(r.Body)}

	default:
		return nil
	}
}

// JSON builds the external JSON shape for a single event. An event that
// carries only an error produces a jsonErrorEvent; one that carries a
// record produces a jsonRecord.
func JSON(ev record.Event) (interface{}, error) {
	if ev.Record != nil {
		hdr, _ := headerOf(ev.Record)
		return jsonRecord{
			PacketType:  hdr.PacketType,
			Description: ev.Record.Kind().String(),
			Header: jsonHeader{
				PacketNumber: hdr.PacketNumber,
				Timestamp:    hdr.Timestamp.Format(timestampLayout),
				Location:     hdr.Location,
				Speed:        hdr.Speed,
			},
			Data: dataOf(ev.Record),
		}, nil
	}
	if ev.Err != nil {
		return jsonErrorEvent{
			Error:  ev.Err.Error(),
			Kind:   fmt.Sprintf("%T", ev.Err),
			Offset: ev.Offset,
		}, nil
	}
	return nil, fmt.Errorf("format: event has neither record nor error")
}

// WriteJSON marshals events as a JSON array to w.
func WriteJSON(w io.Writer, events []record.Event) error {
	rows := make([]interface{}, 0, len(events))
	for _, ev := range events {
		row, err := JSON(ev)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteText renders events as field-labelled rows, one event per line
// group, in the order they were produced.
func WriteText(w io.Writer, events []record.Event) error {
	for i, ev := range events {
		if ev.Err != nil {
			if _, err := fmt.Fprintf(w, "#%d ERROR offset=%d %T: %v\n", i, ev.Offset, ev.Err, ev.Err); err != nil {
				return err
			}
			continue
		}
		hdr, _ := headerOf(ev.Record)
		if _, err := fmt.Fprintf(w, "#%d %s offset=%d packet_number=%d timestamp=%s location=%d speed=%d\n",
			i, ev.Record.Kind(), ev.Offset, hdr.PacketNumber, hdr.Timestamp.Format(timestampLayout), hdr.Location, hdr.Speed); err != nil {
			return err
		}
		if err := writeTextData(w, ev.Record); err != nil {
			return err
		}
	}
	return nil
}

func writeTextData(w io.Writer, rec record.Record) error {
	data := dataOf(rec)
	if data == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "    data=%s\n", b)
	return err
}
