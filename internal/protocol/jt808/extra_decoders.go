package jt808

import (
	"fmt"
	"strings"
)

// Revision 附加信息 F7-FA 的协议修订版本
type Revision string

const (
	RevisionMask   Revision = "mask"   // 电池/设备信息/辅助信息/压力
	RevisionLegacy Revision = "legacy" // GPS/温度/湿度/压力 列表
)

// ParseRevision 解析配置中的修订版本名
func ParseRevision(s string) (Revision, error) {
	switch Revision(strings.ToLower(strings.TrimSpace(s))) {
	case RevisionMask, "":
		return RevisionMask, nil
	case RevisionLegacy:
		return RevisionLegacy, nil
	}
	return "", fmt.Errorf("unknown protocol revision %q", s)
}

var commonExtras = map[uint8]extraDecoder{
	ExtraMileage:        {"Mileage", decodeMileage},
	ExtraSignalStrength: {"Mobile Network Signal Strength", decodeSignal},
	ExtraSatellites:     {"GNSS Number of Positioning Satellites", decodeSatellites},
	ExtraBaseStations:   {"Base Station Information", decodeBaseStations},
	ExtraFirmware:       {"Software Version", decodeFirmware},
	ExtraBluetooth:      {"Bluetooth List", decodeBluetooth},
	ExtraWifi:           {"WIFI List", decodeWifi},
	ExtraSensors:        {"Trigger Type and Sensors Information", decodeSensors},
}

var maskExtras = map[uint8]extraDecoder{
	ExtraBattery:    {"Battery Info", decodeBattery},
	ExtraDeviceInfo: {"Device Information", decodeDeviceInfo},
	ExtraAuxiliary:  {"Auxiliary Information", decodeAuxiliary},
	ExtraPressure:   {"Pressure", decodePressure},
}

// extraTable 合并公共表与修订版本专属表，两个修订版本不会混用
func extraTable(rev Revision) map[uint8]extraDecoder {
	t := make(map[uint8]extraDecoder, len(commonExtras)+4)
	for k, v := range commonExtras {
		t[k] = v
	}
	specific := maskExtras
	if rev == RevisionLegacy {
		specific = legacyExtras
	}
	for k, v := range specific {
		t[k] = v
	}
	return t
}

func decodeMileage(p []byte) ExtraValue    { return Mileage{Value: beUint(p)} }
func decodeSignal(p []byte) ExtraValue     { return SignalStrength{Value: beUint(p)} }
func decodeSatellites(p []byte) ExtraValue { return SatelliteCount{Value: beUint(p)} }

const (
	stationShortLen = 12
	stationLongLen  = 13
)

// decodeBaseStations 长度为 12 字节整数倍按短格式解析，否则按 13 字节长格式
func decodeBaseStations(p []byte) ExtraValue {
	v := BaseStationList{Format: StationFormatLong, Stations: []BaseStation{}}
	size := stationLongLen
	if len(p)%stationShortLen == 0 {
		v.Format = StationFormatShort
		size = stationShortLen
	}

	c := newCursor(p)
	for c.remaining() >= size {
		var s BaseStation
		s.MCC, _ = c.u16()
		if size == stationShortLen {
			mnc, _ := c.u8()
			s.MNC = uint16(mnc)
		} else {
			s.MNC, _ = c.u16()
		}
		s.CellID, _ = c.u32()
		s.LAC, _ = c.u32()
		s.Signal, _ = c.u8()
		v.Stations = append(v.Stations, s)
	}
	return v
}

func decodeFirmware(p []byte) ExtraValue {
	text, err := ASCIIString(p)
	if err != nil {
		return FirmwareVersion{Error: err.Error()}
	}
	return FirmwareVersion{Text: text}
}

// 蓝牙条目可选字段，按掩码位从低到高
var bluetoothFields = []struct {
	bit  uint8
	name string
	size int
	set  func(b *BluetoothBeacon, v []byte)
}{
	{0x01, "name", 10, func(b *BluetoothBeacon, v []byte) {
		b.NameRaw = cloneBytes(v)
		if s, err := ASCIIString(v); err == nil {
			b.Name = strings.Trim(s, "\x00")
		}
	}},
	{0x02, "fw_version", 2, func(b *BluetoothBeacon, v []byte) { b.FwVersion = u16ptr(v) }},
	{0x04, "voltage", 2, func(b *BluetoothBeacon, v []byte) { b.Voltage = u16ptr(v) }},
	{0x08, "temperature", 2, func(b *BluetoothBeacon, v []byte) { b.Temperature = u16ptr(v) }},
	{0x10, "humidity", 2, func(b *BluetoothBeacon, v []byte) { b.Humidity = u16ptr(v) }},
	{0x20, "sensor", 6, func(b *BluetoothBeacon, v []byte) { b.Sensor = cloneBytes(v) }},
	{0x40, "reserved1", 2, func(b *BluetoothBeacon, v []byte) { b.Reserved1 = u16ptr(v) }},
	{0x80, "reserved2", 2, func(b *BluetoothBeacon, v []byte) { b.Reserved2 = u16ptr(v) }},
}

const beaconBaseLen = 6 + 1

// decodeBluetooth 首字节为所有条目共享的字段掩码；条目被截断时保留并结束
func decodeBluetooth(p []byte) ExtraValue {
	v := BluetoothList{Beacons: []BluetoothBeacon{}}
	c := newCursor(p)
	mask, ok := c.u8()
	if !ok {
		v.Error = "missing field mask"
		return v
	}
	v.Mask = mask

	for c.remaining() >= beaconBaseLen {
		var b BluetoothBeacon
		mac, _ := c.take(6)
		rssi, _ := c.u8()
		b.MAC = cloneBytes(mac)
		b.RSSI = int8(rssi)

		for _, f := range bluetoothFields {
			if mask&f.bit == 0 {
				continue
			}
			raw, ok := c.take(f.size)
			if !ok {
				b.Error = fmt.Sprintf("%s: need %d bytes, have %d", f.name, f.size, c.remaining())
				break
			}
			f.set(&b, raw)
		}
		v.Beacons = append(v.Beacons, b)
		if b.Error != "" {
			break
		}
	}
	return v
}

const wifiEntryLen = 6 + 1

func decodeWifi(p []byte) ExtraValue {
	v := WifiList{Beacons: []WifiBeacon{}}
	c := newCursor(p)
	for c.remaining() >= wifiEntryLen {
		mac, _ := c.take(6)
		rssi, _ := c.u8()
		v.Beacons = append(v.Beacons, WifiBeacon{MAC: cloneBytes(mac), RSSI: int8(rssi)})
	}
	return v
}

// decodeSensors 数据类型 + 掩码，字段按位序依次出现且只消费一次
func decodeSensors(p []byte) ExtraValue {
	var v SensorReport
	c := newCursor(p)
	var ok bool
	if v.DataType, ok = c.u8(); !ok {
		v.Error = "missing data type"
		return v
	}
	if v.Mask, ok = c.u8(); !ok {
		v.Error = "missing field mask"
		return v
	}

	fields := []struct {
		bit  uint8
		name string
		size int
		set  func(raw []byte)
	}{
		{0x01, "light", 2, func(raw []byte) { v.Light = u16ptr(raw) }},
		{0x02, "temperature", 2, func(raw []byte) { v.Temperature = tenths(raw) }},
		{0x04, "humidity", 2, func(raw []byte) { v.Humidity = tenths(raw) }},
		{0x08, "accelerometer", 6, func(raw []byte) { v.Accelerometer = cloneBytes(raw) }},
		{0x10, "limit", 10, func(raw []byte) { v.Limit = cloneBytes(raw) }},
		{0x20, "reserved1", 2, func(raw []byte) { v.Reserved1 = u16ptr(raw) }},
		{0x40, "reserved2", 2, func(raw []byte) { v.Reserved2 = u16ptr(raw) }},
		{0x80, "reserved3", 2, func(raw []byte) { v.Reserved3 = u16ptr(raw) }},
	}
	for _, f := range fields {
		if v.Mask&f.bit == 0 {
			continue
		}
		raw, ok := c.take(f.size)
		if !ok {
			v.Error = fmt.Sprintf("%s: need %d bytes, have %d", f.name, f.size, c.remaining())
			return v
		}
		f.set(raw)
	}
	return v
}

var chargingLabels = map[uint8]string{
	0: "Invalid",
	1: "Uncharged",
	2: "Charging",
	3: "Full",
	4: "Exception",
}

func decodeBattery(p []byte) ExtraValue {
	var v BatteryStatus
	c := newCursor(p)
	var ok bool
	if v.Voltage, ok = c.u32(); !ok {
		v.Error = shortPayload("voltage", len(p), 6)
		return v
	}
	if v.Charging, ok = c.u8(); !ok {
		v.Error = shortPayload("charging_status", len(p), 6)
		return v
	}
	v.ChargingLabel = chargingLabels[v.Charging]
	if v.ChargingLabel == "" {
		v.ChargingLabel = "Unknown"
	}
	if v.Percentage, ok = c.u8(); !ok {
		v.Error = shortPayload("percentage", len(p), 6)
	}
	return v
}

var workingModeLabels = map[uint8]string{
	0: "Periodic",
	1: "Trigger",
	2: "Tracking+Trigger",
	3: "Clock+Trigger",
	4: "Periodic+Trigger",
}

// WorkingModeLabel 工作模式名称
func WorkingModeLabel(mode uint8) string {
	if s, ok := workingModeLabels[mode]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", mode)
}

const deviceInfoLen = 1 + 8 + 10 + 10

// decodeDeviceInfo 工作模式 + IMEI(BCD[8]) + ICCID(BCD[10]) + 设备型号(ASCII[10])
func decodeDeviceInfo(p []byte) ExtraValue {
	var v DeviceInfo
	c := newCursor(p)

	mode, ok := c.u8()
	if !ok {
		v.Error = shortPayload("working_mode", len(p), deviceInfoLen)
		return v
	}
	v.WorkingMode = mode
	v.WorkingModeLabel = WorkingModeLabel(mode)

	imei, ok := c.take(8)
	if !ok {
		v.Error = shortPayload("imei", len(p), deviceInfoLen)
		return v
	}
	v.IMEI = BCDString(imei)

	iccid, ok := c.take(10)
	if !ok {
		v.Error = shortPayload("iccid", len(p), deviceInfoLen)
		return v
	}
	v.ICCID = BCDString(iccid)

	model, ok := c.take(10)
	if !ok {
		v.Error = shortPayload("device_type", len(p), deviceInfoLen)
		return v
	}
	text, err := ASCIIString(model)
	if err != nil {
		v.Error = "device_type: " + err.Error()
		return v
	}
	v.DeviceType = strings.Trim(text, "\x00")
	return v
}

func decodeAuxiliary(p []byte) ExtraValue { return AuxiliaryInfo{Data: cloneBytes(p)} }

func decodePressure(p []byte) ExtraValue {
	v := PressureList{Sensors: []PressureReading{}}
	c := newCursor(p)
	for c.remaining() >= 2 {
		id, _ := c.u8()
		pressure, _ := c.u8()
		v.Sensors = append(v.Sensors, PressureReading{SensorID: id, Pressure: pressure})
	}
	return v
}

func u16ptr(b []byte) *uint16 {
	v := uint16(beUint(b))
	return &v
}

// tenths 无符号整数除以 10
func tenths(b []byte) *float64 {
	v := float64(beUint(b)) / 10
	return &v
}

func shortPayload(field string, got, need int) string {
	return fmt.Sprintf("%s: payload %d bytes, need %d", field, got, need)
}
