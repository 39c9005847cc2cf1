package jt808

// 早期修订版本中 F7-FA 的定义，与掩码版本互斥，需通过配置显式选择。

// GPSPoint 经纬度点
type GPSPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GPSList 0xF7(legacy) 经纬度列表，每条 8 字节
type GPSList struct {
	Points []GPSPoint `json:"points"`
}

// TemperatureList 0xF8(legacy) 温度列表，每条 2 字节有符号，单位 0.1°C
type TemperatureList struct {
	Values []float64 `json:"values"`
}

// HumidityList 0xF9(legacy) 湿度列表，每条 2 字节，单位 0.1%RH
type HumidityList struct {
	Values []float64 `json:"values"`
}

func (GPSList) isExtraValue()         {}
func (TemperatureList) isExtraValue() {}
func (HumidityList) isExtraValue()    {}

var legacyExtras = map[uint8]extraDecoder{
	ExtraBattery:    {"GPS List", decodeGPSList},
	ExtraDeviceInfo: {"Temperature List", decodeTemperatureList},
	ExtraAuxiliary:  {"Humidity List", decodeHumidityList},
	ExtraPressure:   {"Pressure", decodePressure},
}

func decodeGPSList(p []byte) ExtraValue {
	v := GPSList{Points: []GPSPoint{}}
	c := newCursor(p)
	for c.remaining() >= 8 {
		lat, _ := c.u32()
		lon, _ := c.u32()
		v.Points = append(v.Points, GPSPoint{Latitude: float64(lat) / 1e6, Longitude: float64(lon) / 1e6})
	}
	return v
}

func decodeTemperatureList(p []byte) ExtraValue {
	v := TemperatureList{Values: []float64{}}
	c := newCursor(p)
	for c.remaining() >= 2 {
		raw, _ := c.u16()
		v.Values = append(v.Values, float64(int16(raw))/10)
	}
	return v
}

func decodeHumidityList(p []byte) ExtraValue {
	v := HumidityList{Values: []float64{}}
	c := newCursor(p)
	for c.remaining() >= 2 {
		raw, _ := c.u16()
		v.Values = append(v.Values, float64(raw)/10)
	}
	return v
}
