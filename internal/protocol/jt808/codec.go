package jt808

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// BCDString BCD 解码：每字节输出高、低两个半字节对应的字符。
// 不校验半字节是否 <=9，非法 BCD 会原样输出 A-F。
func BCDString(b []byte) string {
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, v := range b {
		sb.WriteByte(digits[v>>4])
		sb.WriteByte(digits[v&0x0F])
	}
	return sb.String()
}

// ASCIIString 将字节按 ASCII 解码，遇到 >=0x80 的字节返回 ErrTextDecode
func ASCIIString(b []byte) (string, error) {
	for i, v := range b {
		if v >= 0x80 {
			return "", fmt.Errorf("%w: non-ascii byte 0x%02X at offset %d", ErrTextDecode, v, i)
		}
	}
	return string(b), nil
}

// Compass 将角度映射到最近的 8 方位
func Compass(deg int) string {
	idx := int(math.Round(float64(deg)/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

// beUint 大端解析不超过 8 字节的无符号整数
func beUint(b []byte) uint64 {
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
