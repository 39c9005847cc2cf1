package jt808

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// 附加信息ID
const (
	ExtraMileage        = 0x01
	ExtraSignalStrength = 0x30
	ExtraSatellites     = 0x31
	ExtraBaseStations   = 0xF0
	ExtraFirmware       = 0xF2
	ExtraBluetooth      = 0xF3
	ExtraWifi           = 0xF4
	ExtraSensors        = 0xF6
	ExtraBattery        = 0xF7
	ExtraDeviceInfo     = 0xF8
	ExtraAuxiliary      = 0xF9
	ExtraPressure       = 0xFA
)

const (
	descUnknown   = "Unknown"
	descTruncated = "Truncated"
)

// HexBytes JSON 序列化为大写十六进制字符串
type HexBytes []byte

func (h HexBytes) String() string { return strings.ToUpper(hex.EncodeToString(h)) }

func (h HexBytes) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HexBytes) UnmarshalText(b []byte) error {
	v, err := hex.DecodeString(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func cloneBytes(b []byte) HexBytes {
	if len(b) == 0 {
		return nil
	}
	return append(HexBytes(nil), b...)
}

// ExtraValue 附加信息解析结果，封闭变体集合
type ExtraValue interface {
	isExtraValue()
}

// fieldErrorer 携带字段级错误的变体
type fieldErrorer interface {
	fieldError() string
}

// Extra 一条附加信息
type Extra struct {
	ID     uint8      `json:"id"`
	Length uint8      `json:"length"`
	Desc   string     `json:"desc"`
	Raw    HexBytes   `json:"raw,omitempty"`
	Value  ExtraValue `json:"value"`
}

// TagHex 附加信息ID的两位十六进制
func (e Extra) TagHex() string { return fmt.Sprintf("%02X", e.ID) }

// IsTruncated 是否为截断终止项
func (e Extra) IsTruncated() bool {
	_, ok := e.Value.(Truncated)
	return ok
}

// FieldError 返回该项的字段级错误（无则为空）
func (e Extra) FieldError() string {
	if fe, ok := e.Value.(fieldErrorer); ok {
		return fe.fieldError()
	}
	return ""
}

// ExtraList 附加信息列表，按传输顺序保留，允许重复ID
type ExtraList struct {
	Items   []Extra  `json:"items"`
	Residue HexBytes `json:"residue,omitempty"` // 末尾不足 tag+len 的残余字节
}

// Find 返回第一条指定ID的附加信息
func (l ExtraList) Find(id uint8) (Extra, bool) {
	for _, e := range l.Items {
		if e.ID == id {
			return e, true
		}
	}
	return Extra{}, false
}

// Truncated 返回截断终止项（若存在）
func (l ExtraList) Truncated() (Truncated, bool) {
	if n := len(l.Items); n > 0 {
		t, ok := l.Items[n-1].Value.(Truncated)
		return t, ok
	}
	return Truncated{}, false
}

type extraDecoder struct {
	desc   string
	decode func(p []byte) ExtraValue
}

// DecodeExtras 依次解析 TLV 附加信息。
// 声明长度超出剩余数据时追加一条 Truncated 并结束，不再尝试后续项。
func (d *Decoder) DecodeExtras(body []byte) ExtraList {
	list := ExtraList{Items: []Extra{}}
	c := newCursor(body)

	for c.remaining() >= 2 {
		start := c.off
		tag, _ := c.u8()
		length, _ := c.u8()

		payload, ok := c.take(int(length))
		if !ok {
			list.Items = append(list.Items, Extra{
				ID:     tag,
				Length: length,
				Desc:   descTruncated,
				Value:  Truncated{Declared: int(length), Remaining: cloneBytes(body[start:])},
			})
			return list
		}
		list.Items = append(list.Items, d.decodeExtra(tag, length, payload))
	}

	if c.remaining() > 0 {
		list.Residue = cloneBytes(c.rest())
	}
	return list
}

func (d *Decoder) decodeExtra(tag, length uint8, payload []byte) Extra {
	e := Extra{ID: tag, Length: length, Raw: cloneBytes(payload)}
	dec, ok := d.extras[tag]
	if !ok {
		e.Desc = descUnknown
		e.Value = Unknown{Data: cloneBytes(payload)}
		return e
	}
	e.Desc = dec.desc
	e.Value = dec.decode(payload)
	return e
}
