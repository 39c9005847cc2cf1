package jt808

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

const sampleFrame = "7e020000d7251075180278002b000000002000001200a966e3049c2905005c02dc008b25041523160001040000000030010c310105f034019400500000cf1500000931a7019400500000cf1300000931a1019400500000cf1f0000093198019400500000d04a00000931a8f22c414f56585f474d3130302d474c5f48322e305f424739354d334c415230324130335f56322e302e383a763035f60e000f01a5016901a100200010fca0f70600000e99013cf81d02086325107518027889918080264519030599474d3130302d474c0000f912000f0000000100000000006f2504152316014f7e"

// buildFrame 以固定终端号/流水号组帧，校验码填 0
func buildFrame(msgID uint16, body []byte) string {
	buf := []byte{FlagByte}
	buf = binary.BigEndian.AppendUint16(buf, msgID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(body)))
	buf = append(buf, 0x01, 0x38, 0x00, 0x13, 0x80, 0x00)
	buf = binary.BigEndian.AppendUint16(buf, 0x0007)
	buf = append(buf, body...)
	buf = append(buf, 0x00, FlagByte)
	return strings.ToUpper(hex.EncodeToString(buf))
}

type locFields struct {
	alarm, status uint32
	lat, lon      uint32
	alt, speed    uint16
	dir           uint16
	ts            []byte
}

func locationBody(f locFields, extras ...byte) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint32(b, f.alarm)
	b = binary.BigEndian.AppendUint32(b, f.status)
	b = binary.BigEndian.AppendUint32(b, f.lat)
	b = binary.BigEndian.AppendUint32(b, f.lon)
	b = binary.BigEndian.AppendUint16(b, f.alt)
	b = binary.BigEndian.AppendUint16(b, f.speed)
	b = binary.BigEndian.AppendUint16(b, f.dir)
	ts := f.ts
	if ts == nil {
		ts = []byte{0x23, 0x04, 0x15, 0x23, 0x16, 0x00}
	}
	b = append(b, ts...)
	return append(b, extras...)
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
