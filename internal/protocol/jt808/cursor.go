package jt808

import "encoding/binary"

// cursor 不可变字节缓冲上的读取游标，各解码器持有自己的游标
type cursor struct {
	buf []byte
	off int
}

func newCursor(b []byte) *cursor { return &cursor{buf: b} }

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) rest() []byte { return c.buf[c.off:] }

// take 读取 n 字节；不足时不移动游标并返回 false
func (c *cursor) take(n int) ([]byte, bool) {
	if n < 0 || c.remaining() < n {
		return nil, false
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, true
}

func (c *cursor) u8() (uint8, bool) {
	b, ok := c.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (c *cursor) u16() (uint16, bool) {
	b, ok := c.take(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (c *cursor) u32() (uint32, bool) {
	b, ok := c.take(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}
