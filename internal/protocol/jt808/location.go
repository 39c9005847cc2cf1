package jt808

import (
	"time"
)

// 位置基本信息固定长度（字节）
const locationLen = 4 + 4 + 4 + 4 + 2 + 2 + 2 + 6

const timeLayout = "060102150405"

// Location 位置信息汇报 (0x0200)
type Location struct {
	Alarm     uint32     `json:"alarm"`
	Status    uint32     `json:"status"`
	Latitude  float64    `json:"latitude"`  // 度
	Longitude float64    `json:"longitude"` // 度
	Altitude  uint16     `json:"altitude"`  // 米
	Speed     float64    `json:"speed"`     // km/h
	Direction uint16     `json:"direction"` // 0-359
	Compass   string     `json:"compass"`
	TimeRaw   string     `json:"time_raw"` // YYMMDDHHMMSS
	Time      *time.Time `json:"time,omitempty"`
	TimeError string     `json:"time_error,omitempty"`
	Extras    ExtraList  `json:"extras"`
}

// StatusFlags 状态位
type StatusFlags struct {
	ACCOn         bool `json:"acc_on"`
	Positioned    bool `json:"positioned"`
	SouthLatitude bool `json:"south_latitude"`
	WestLongitude bool `json:"west_longitude"`
	OutOfService  bool `json:"out_of_service"`
	Encrypted     bool `json:"encrypted"`
}

// AlarmFlags 报警标志位（常用部分）
type AlarmFlags struct {
	Emergency         bool `json:"emergency"`
	Overspeed         bool `json:"overspeed"`
	Fatigue           bool `json:"fatigue"`
	GNSSFault         bool `json:"gnss_fault"`
	AntennaCut        bool `json:"antenna_cut"`
	AntennaShort      bool `json:"antenna_short"`
	PowerUndervoltage bool `json:"power_undervoltage"`
	PowerOff          bool `json:"power_off"`
}

func bit(v uint32, n uint) bool { return v&(1<<n) != 0 }

func (l *Location) StatusFlags() StatusFlags {
	return StatusFlags{
		ACCOn:         bit(l.Status, 0),
		Positioned:    bit(l.Status, 1),
		SouthLatitude: bit(l.Status, 2),
		WestLongitude: bit(l.Status, 3),
		OutOfService:  bit(l.Status, 4),
		Encrypted:     bit(l.Status, 5),
	}
}

func (l *Location) AlarmFlags() AlarmFlags {
	return AlarmFlags{
		Emergency:         bit(l.Alarm, 0),
		Overspeed:         bit(l.Alarm, 1),
		Fatigue:           bit(l.Alarm, 2),
		GNSSFault:         bit(l.Alarm, 4),
		AntennaCut:        bit(l.Alarm, 5),
		AntennaShort:      bit(l.Alarm, 6),
		PowerUndervoltage: bit(l.Alarm, 7),
		PowerOff:          bit(l.Alarm, 8),
	}
}

// decodeLocation 解析 28 字节位置基本信息，剩余部分交给附加信息解码
func (d *Decoder) decodeLocation(body []byte) (*Location, error) {
	if len(body) < locationLen {
		return nil, frameErr(KindTooShort, "location body %d bytes, need %d", len(body), locationLen)
	}
	c := newCursor(body)
	l := &Location{}

	l.Alarm, _ = c.u32()
	l.Status, _ = c.u32()
	lat, _ := c.u32()
	lon, _ := c.u32()
	l.Latitude = float64(lat) / 1e6
	l.Longitude = float64(lon) / 1e6
	l.Altitude, _ = c.u16()
	speed, _ := c.u16()
	l.Speed = float64(speed) / 10
	l.Direction, _ = c.u16()
	l.Compass = Compass(int(l.Direction))

	ts, _ := c.take(6)
	l.TimeRaw = BCDString(ts)
	if t, err := time.ParseInLocation(timeLayout, l.TimeRaw, d.loc); err != nil {
		l.TimeError = err.Error()
	} else {
		l.Time = &t
	}

	l.Extras = d.DecodeExtras(c.rest())
	return l, nil
}
