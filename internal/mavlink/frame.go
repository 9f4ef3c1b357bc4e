// Package mavlink implements the subset of MAVLink v1 this autopilot
// exchanges with a ground-control station: framing with the X.25 checksum
// and CRC_EXTRA seeding, encoders for the outbound telemetry messages, and
// decoders for the inbound command and mission messages.
package mavlink

import "fmt"

const (
	// magicV1 marks the start of a MAVLink v1 frame.
	magicV1 = 0xFE

	headerLen   = 6
	checksumLen = 2
)

// Message IDs from the common dialect, limited to what this core uses.
const (
	MsgHeartbeat                  = 0
	MsgSysStatus                  = 1
	MsgSetMode                    = 11
	MsgGPSRawInt                  = 24
	MsgAttitude                   = 30
	MsgGlobalPositionInt          = 33
	MsgMissionItem                = 39
	MsgMissionRequest             = 40
	MsgMissionSetCurrent          = 41
	MsgMissionCurrent             = 42
	MsgMissionCount               = 44
	MsgMissionAck                 = 47
	MsgRCChannelsOverride         = 70
	MsgVFRHud                     = 74
	MsgCommandLong                = 76
	MsgCommandAck                 = 77
	MsgSetPositionTargetGlobalInt = 86
	MsgStatusText                 = 253
)

// Raw is one unframed message: header fields plus the undecoded payload.
type Raw struct {
	Seq    uint8
	SysID  uint8
	CompID uint8
	MsgID  uint8

	Payload []byte
}

// Frame wraps a payload in a v1 frame: magic, length, sequence, system and
// component IDs, message ID, payload, and the X.25 checksum seeded over
// everything but the magic byte plus the message's CRC_EXTRA.
func Frame(seq, sysID, compID, msgID uint8, payload []byte) []byte {
	out := make([]byte, 0, headerLen+len(payload)+checksumLen)
	out = append(out, magicV1, byte(len(payload)), seq, sysID, compID, msgID)
	out = append(out, payload...)

	crc := x25(0xFFFF, out[1:])
	if extra, ok := crcExtra[msgID]; ok {
		crc = x25Byte(crc, extra)
	}
	out = append(out, byte(crc&0xFF), byte(crc>>8))
	return out
}

// Unframe parses one frame from the start of buf. It returns the message,
// the number of bytes consumed, and an error for malformed or
// CRC-mismatched frames. Unknown message IDs fail the CRC check by
// construction (their CRC_EXTRA is unknown) and are reported as
// unsupported.
func Unframe(buf []byte) (Raw, int, error) {
	if len(buf) < headerLen+checksumLen {
		return Raw{}, 0, fmt.Errorf("frame too short: %d", len(buf))
	}
	if buf[0] != magicV1 {
		return Raw{}, 0, fmt.Errorf("bad magic 0x%02X", buf[0])
	}

	payloadLen := int(buf[1])
	total := headerLen + payloadLen + checksumLen
	if len(buf) < total {
		return Raw{}, 0, fmt.Errorf("truncated frame: have %d want %d", len(buf), total)
	}

	msgID := buf[5]
	extra, known := crcExtra[msgID]
	if !known {
		return Raw{}, total, fmt.Errorf("unsupported message id %d", msgID)
	}

	crc := x25(0xFFFF, buf[1:headerLen+payloadLen])
	crc = x25Byte(crc, extra)
	got := uint16(buf[total-2]) | uint16(buf[total-1])<<8
	if got != crc {
		return Raw{}, total, fmt.Errorf("crc mismatch on message id %d", msgID)
	}

	return Raw{
		Seq:     buf[2],
		SysID:   buf[3],
		CompID:  buf[4],
		MsgID:   msgID,
		Payload: append([]byte(nil), buf[headerLen:headerLen+payloadLen]...),
	}, total, nil
}

// Parse scans a datagram for consecutive v1 frames. Malformed frames are
// counted and skipped; the scan resynchronizes on the next magic byte.
func Parse(datagram []byte) (frames []Raw, dropped int) {
	for len(datagram) > 0 {
		if datagram[0] != magicV1 {
			datagram = datagram[1:]
			continue
		}
		raw, n, err := Unframe(datagram)
		if n == 0 {
			// Not enough bytes for a frame: nothing more to find.
			dropped++
			return frames, dropped
		}
		datagram = datagram[n:]
		if err != nil {
			dropped++
			continue
		}
		frames = append(frames, raw)
	}
	return frames, dropped
}
