package jt808

// Mileage 0x01 里程，原始整数
type Mileage struct {
	Value uint64 `json:"value"`
}

// SignalStrength 0x30 无线通信网络信号强度
type SignalStrength struct {
	Value uint64 `json:"value"`
}

// SatelliteCount 0x31 GNSS 定位卫星数
type SatelliteCount struct {
	Value uint64 `json:"value"`
}

// 基站列表条目格式
const (
	StationFormatShort = "short" // 12 字节，MNC 1 字节
	StationFormatLong  = "long"  // 13 字节，MNC 2 字节
)

// BaseStation 基站条目
type BaseStation struct {
	MCC    uint16 `json:"mcc"`
	MNC    uint16 `json:"mnc"`
	CellID uint32 `json:"cell_id"`
	LAC    uint32 `json:"lac"`
	Signal uint8  `json:"signal"`
}

// BaseStationList 0xF0 基站信息
type BaseStationList struct {
	Format   string        `json:"format"`
	Stations []BaseStation `json:"stations"`
}

// FirmwareVersion 0xF2 软件版本
type FirmwareVersion struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// BluetoothBeacon 蓝牙信标条目，可选字段由掩码决定
type BluetoothBeacon struct {
	MAC         HexBytes `json:"mac"`
	RSSI        int8     `json:"rssi"`
	NameRaw     HexBytes `json:"name_raw,omitempty"`
	Name        string   `json:"name,omitempty"`
	FwVersion   *uint16  `json:"fw_version,omitempty"`
	Voltage     *uint16  `json:"voltage,omitempty"`
	Temperature *uint16  `json:"temperature,omitempty"`
	Humidity    *uint16  `json:"humidity,omitempty"`
	Sensor      HexBytes `json:"sensor,omitempty"`
	Reserved1   *uint16  `json:"reserved1,omitempty"`
	Reserved2   *uint16  `json:"reserved2,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// BluetoothList 0xF3 蓝牙信标列表
type BluetoothList struct {
	Mask    uint8             `json:"mask"`
	Beacons []BluetoothBeacon `json:"beacons"`
	Error   string            `json:"error,omitempty"`
}

// WifiBeacon WiFi 热点条目
type WifiBeacon struct {
	MAC  HexBytes `json:"mac"`
	RSSI int8     `json:"rssi"`
}

// WifiList 0xF4 WiFi 列表
type WifiList struct {
	Beacons []WifiBeacon `json:"beacons"`
}

// SensorReport 0xF6 触发类型与传感器信息
type SensorReport struct {
	DataType      uint8    `json:"data_type"`
	Mask          uint8    `json:"mask"`
	Light         *uint16  `json:"light,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"` // °C
	Humidity      *float64 `json:"humidity,omitempty"`    // %RH
	Accelerometer HexBytes `json:"accelerometer,omitempty"`
	Limit         HexBytes `json:"limit,omitempty"`
	Reserved1     *uint16  `json:"reserved1,omitempty"`
	Reserved2     *uint16  `json:"reserved2,omitempty"`
	Reserved3     *uint16  `json:"reserved3,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// BatteryStatus 0xF7 电池信息
type BatteryStatus struct {
	Voltage       uint32 `json:"voltage"`
	Charging      uint8  `json:"charging"`
	ChargingLabel string `json:"charging_label"`
	Percentage    uint8  `json:"percentage"`
	Error         string `json:"error,omitempty"`
}

// DeviceInfo 0xF8 设备信息
type DeviceInfo struct {
	WorkingMode      uint8  `json:"working_mode"`
	WorkingModeLabel string `json:"working_mode_label"`
	IMEI             string `json:"imei"`
	ICCID            string `json:"iccid"`
	DeviceType       string `json:"device_type"`
	Error            string `json:"error,omitempty"`
}

// AuxiliaryInfo 0xF9 辅助信息，原样保留
type AuxiliaryInfo struct {
	Data HexBytes `json:"data"`
}

// PressureReading 压力传感器条目
type PressureReading struct {
	SensorID uint8 `json:"sensor_id"`
	Pressure uint8 `json:"pressure"`
}

// PressureList 0xFA 压力传感器列表
type PressureList struct {
	Sensors []PressureReading `json:"sensors"`
}

// Unknown 未识别的附加信息
type Unknown struct {
	Data HexBytes `json:"data"`
}

// Truncated 声明长度超过剩余数据，列表在此终止
type Truncated struct {
	Declared  int      `json:"declared"`
	Remaining HexBytes `json:"remaining"` // 从 tag 起的全部剩余字节
}

func (Mileage) isExtraValue()         {}
func (SignalStrength) isExtraValue()  {}
func (SatelliteCount) isExtraValue()  {}
func (BaseStationList) isExtraValue() {}
func (FirmwareVersion) isExtraValue() {}
func (BluetoothList) isExtraValue()   {}
func (WifiList) isExtraValue()        {}
func (SensorReport) isExtraValue()    {}
func (BatteryStatus) isExtraValue()   {}
func (DeviceInfo) isExtraValue()      {}
func (AuxiliaryInfo) isExtraValue()   {}
func (PressureList) isExtraValue()    {}
func (Unknown) isExtraValue()         {}
func (Truncated) isExtraValue()       {}

func (v FirmwareVersion) fieldError() string { return v.Error }
func (v SensorReport) fieldError() string    { return v.Error }
func (v BatteryStatus) fieldError() string   { return v.Error }
func (v DeviceInfo) fieldError() string      { return v.Error }

func (v BluetoothList) fieldError() string {
	if v.Error != "" {
		return v.Error
	}
	for _, b := range v.Beacons {
		if b.Error != "" {
			return b.Error
		}
	}
	return ""
}
