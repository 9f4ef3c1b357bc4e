package mavlink

// x25 implements the CRC-16/X.25 checksum MAVLink uses for message
// integrity (also known as CRC-16/MCRF4XX): init 0xFFFF, reflected
// polynomial 0x8408, no final xor beyond the bitwise inversion folded
// into the algorithm.
func x25(init uint16, data []byte) uint16 {
	crc := init
	for _, b := range data {
		crc = x25Byte(crc, b)
	}
	return crc
}

func x25Byte(crc uint16, b byte) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// crcExtra is the per-message seed byte appended to the checksum input so
// that sender and receiver disagree when their message definitions drift.
// Values are fixed by the MAVLink common dialect.
var crcExtra = map[uint8]byte{
	MsgHeartbeat:                  50,
	MsgSysStatus:                  124,
	MsgSetMode:                    89,
	MsgGPSRawInt:                  24,
	MsgAttitude:                   39,
	MsgGlobalPositionInt:          104,
	MsgMissionItem:                254,
	MsgMissionRequest:             230,
	MsgMissionSetCurrent:          28,
	MsgMissionCurrent:             28,
	MsgMissionCount:               221,
	MsgMissionAck:                 153,
	MsgRCChannelsOverride:         124,
	MsgVFRHud:                     20,
	MsgCommandLong:                152,
	MsgCommandAck:                 143,
	MsgSetPositionTargetGlobalInt: 5,
	MsgStatusText:                 83,
}
