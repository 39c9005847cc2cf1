package jt808

import (
	"fmt"
	"time"
)

// 帧格式常量
const (
	FlagByte = 0x7E // 起止标识

	MsgIDLocation = 0x0200 // 位置信息汇报

	headerLen   = 2 + 2 + 6 + 2 // 消息ID + 属性 + 终端号 + 流水号
	trailerLen  = 1 + 1         // 校验码 + 结束标识
	MinFrameLen = 1 + headerLen + trailerLen
)

// Header 消息头（不含起始标识）
type Header struct {
	MessageID      uint16 `json:"message_id"`
	PropertiesWord uint16 `json:"properties"`
	DeviceID       string `json:"device_id"` // BCD[6]
	Sequence       uint16 `json:"sequence"`
}

// Properties 消息体属性位
type Properties struct {
	BodyLength  int   `json:"body_length"`
	Encryption  uint8 `json:"encryption"`
	Subpackaged bool  `json:"subpackaged"`
	Reserved    uint8 `json:"reserved"`
}

// Properties 解析属性字，仅作展示，不与实际消息体长度交叉校验
func (h Header) Properties() Properties {
	w := h.PropertiesWord
	return Properties{
		BodyLength:  int(w & 0x03FF),
		Encryption:  uint8((w >> 10) & 0x07),
		Subpackaged: w&(1<<13) != 0,
		Reserved:    uint8(w >> 14),
	}
}

// Hex 还原消息头的 12 字节（大写十六进制）
func (h Header) Hex() string {
	return fmt.Sprintf("%04X%04X%s%04X", h.MessageID, h.PropertiesWord, h.DeviceID, h.Sequence)
}

// Frame 一帧完整的解码结果
type Frame struct {
	Header   Header    `json:"header"`
	Location *Location `json:"location,omitempty"`
	Body     string    `json:"body,omitempty"` // 非位置消息的原始消息体
	Checksum uint8     `json:"checksum"`       // 仅提取，不校验
	EndFlag  uint8     `json:"end_flag"`
}

// MessageIDHex 消息ID的四位十六进制表示
func (f *Frame) MessageIDHex() string {
	return fmt.Sprintf("%04X", f.Header.MessageID)
}

// Decoder 帧解码器，创建后只读，可并发使用
type Decoder struct {
	revision Revision
	loc      *time.Location
	extras   map[uint8]extraDecoder
}

// NewDecoder 按协议修订版本与时区创建解码器
func NewDecoder(rev Revision, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	if rev == "" {
		rev = RevisionMask
	}
	return &Decoder{revision: rev, loc: loc, extras: extraTable(rev)}
}

// Revision 返回解码器使用的扩展信息修订版本
func (d *Decoder) Revision() Revision { return d.revision }

var defaultDecoder = NewDecoder(RevisionMask, time.UTC)

// Decode 使用默认配置解码一帧十六进制文本
func Decode(s string) (*Frame, error) {
	return defaultDecoder.Decode(s)
}

// Decode 解码一帧十六进制文本。
// 整帧错误返回 *FrameError；字段级错误附着在对应字段上。
func (d *Decoder) Decode(s string) (*Frame, error) {
	norm, err := NormalizeHex(s)
	if err != nil {
		return nil, err
	}
	if len(norm) < MinFrameLen*2 {
		return nil, frameErr(KindTooShort, "got %d hex digits, need at least %d", len(norm), MinFrameLen*2)
	}
	if norm[:2] != "7E" || norm[len(norm)-2:] != "7E" {
		return nil, frameErr(KindMissingDelimiters, "frame must start and end with 7E")
	}

	raw, err := hexBytes(norm)
	if err != nil {
		return nil, err
	}

	c := newCursor(raw[:len(raw)-trailerLen])
	c.off = 1 // 起始标识

	f := &Frame{}
	f.Header.MessageID, _ = c.u16()
	f.Header.PropertiesWord, _ = c.u16()
	dev, _ := c.take(6)
	f.Header.DeviceID = BCDString(dev)
	f.Header.Sequence, _ = c.u16()

	f.Checksum = raw[len(raw)-2]
	f.EndFlag = raw[len(raw)-1]
	if f.EndFlag != FlagByte {
		return nil, frameErr(KindMissingDelimiters, "end flag 0x%02X", f.EndFlag)
	}

	body := c.rest()
	if f.Header.MessageID == MsgIDLocation {
		loc, err := d.decodeLocation(body)
		if err != nil {
			return nil, err
		}
		f.Location = loc
	} else {
		f.Body = upperHex(body)
	}
	return f, nil
}
