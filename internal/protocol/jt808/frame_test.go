package jt808

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_SampleFrame(t *testing.T) {
	f, err := Decode(sampleFrame)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0200), f.Header.MessageID)
	assert.Equal(t, "0200", f.MessageIDHex())
	assert.Equal(t, uint16(0x00D7), f.Header.PropertiesWord)
	assert.Equal(t, "251075180278", f.Header.DeviceID)
	assert.Equal(t, uint16(0x002B), f.Header.Sequence)
	assert.Equal(t, uint8(0x4F), f.Checksum)
	assert.Equal(t, uint8(0x7E), f.EndFlag)
	assert.Empty(t, f.Body)

	loc := f.Location
	require.NotNil(t, loc)
	assert.Equal(t, uint32(0), loc.Alarm)
	assert.Equal(t, uint32(0x20000012), loc.Status)
	assert.InDelta(t, 11.101923, loc.Latitude, 1e-9)
	assert.InDelta(t, 77.342981, loc.Longitude, 1e-9)
	assert.Equal(t, uint16(92), loc.Altitude)
	assert.InDelta(t, 73.2, loc.Speed, 1e-9)
	assert.Equal(t, uint16(139), loc.Direction)
	assert.Equal(t, "SE", loc.Compass)
	assert.Equal(t, "250415231600", loc.TimeRaw)
	require.NotNil(t, loc.Time)
	assert.Equal(t, "2025-04-15 23:16:00", loc.Time.Format("2006-01-02 15:04:05"))
	assert.Empty(t, loc.TimeError)

	items := loc.Extras.Items
	require.Len(t, items, 9)
	var tags []string
	for _, e := range items {
		tags = append(tags, e.TagHex())
	}
	assert.Equal(t, []string{"01", "30", "31", "F0", "F2", "F6", "F7", "F8", "F9"}, tags)

	dev, ok := loc.Extras.Find(ExtraDeviceInfo)
	require.True(t, ok)
	info, ok := dev.Value.(DeviceInfo)
	require.True(t, ok)
	assert.Equal(t, "GM100-GL", info.DeviceType)
	assert.Equal(t, "0863251075180278", info.IMEI)
	assert.Equal(t, "89918080264519030599", info.ICCID)
	assert.Equal(t, "Tracking+Trigger", info.WorkingModeLabel)
	assert.Empty(t, info.Error)

	fw, _ := loc.Extras.Find(ExtraFirmware)
	assert.Equal(t, "AOVX_GM100-GL_H2.0_BG95M3LAR02A03_V2.0.8:v05", fw.Value.(FirmwareVersion).Text)

	assert.Empty(t, f.FieldErrors())
	_, truncated := loc.Extras.Truncated()
	assert.False(t, truncated)
}

func TestDecode_SampleFrameProperties(t *testing.T) {
	f, err := Decode(sampleFrame)
	require.NoError(t, err)

	p := f.Header.Properties()
	assert.Equal(t, 215, p.BodyLength)
	assert.Equal(t, uint8(0), p.Encryption)
	assert.False(t, p.Subpackaged)
}

func TestDecode_HeaderRoundTrip(t *testing.T) {
	frames := []string{
		sampleFrame,
		buildFrame(0x0002, nil),
		buildFrame(0x8001, mustHex("002B020000")),
		buildFrame(0x0200, locationBody(locFields{})),
	}
	for _, s := range frames {
		f, err := Decode(s)
		require.NoError(t, err)
		norm := strings.ToUpper(s)
		assert.Equal(t, norm[2:26], f.Header.Hex())
	}
}

func TestDecode_OpaqueResponseBody(t *testing.T) {
	f, err := Decode(buildFrame(0x8001, mustHex("002b020000")))
	require.NoError(t, err)
	assert.Nil(t, f.Location)
	assert.Equal(t, "002B020000", f.Body)
	assert.Nil(t, f.FieldErrors())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"非十六进制字符", "7E0200ZZ", ErrMalformedInput},
		{"奇数位", "7E02000", ErrMalformedInput},
		{"空输入", "", ErrTooShort},
		{"少于15字节", "7E0200000025107518027800017E", ErrTooShort},
		{"缺少起始标识", "00" + buildFrame(0x0002, nil)[2:], ErrMissingDelimiters},
		{"缺少结束标识", buildFrame(0x0002, nil)[:28] + "00", ErrMissingDelimiters},
		{"位置消息体不足28字节", buildFrame(0x0200, make([]byte, 27)), ErrTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode(tt.input)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var fe *FrameError
			require.True(t, errors.As(err, &fe))
		})
	}
}

func TestDecode_MissingTrailerSkipsExtraction(t *testing.T) {
	s := strings.ToUpper(sampleFrame[:len(sampleFrame)-2])
	f, err := Decode(s)
	assert.Nil(t, f)
	assert.Equal(t, KindMissingDelimiters, KindOf(err))
}

func TestDecode_NormalizesInput(t *testing.T) {
	spaced := strings.Join(strings.SplitAfter(strings.ToLower(buildFrame(0x0002, nil)), "0"), " ")
	f, err := Decode(spaced)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0002), f.Header.MessageID)
	assert.Equal(t, "013800138000", f.Header.DeviceID)
}

func TestDecode_JSON(t *testing.T) {
	f, err := Decode(sampleFrame)
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	loc := out["location"].(map[string]any)
	assert.Equal(t, "SE", loc["compass"])
	items := loc["extras"].(map[string]any)["items"].([]any)
	last := items[len(items)-1].(map[string]any)
	assert.Equal(t, "Auxiliary Information", last["desc"])
	assert.Equal(t, "000F0000000100000000006F250415231601", last["raw"])
}

func TestDecoder_Revision(t *testing.T) {
	assert.Equal(t, RevisionMask, NewDecoder("", nil).Revision())
	assert.Equal(t, RevisionLegacy, NewDecoder(RevisionLegacy, nil).Revision())

	rev, err := ParseRevision(" Legacy ")
	require.NoError(t, err)
	assert.Equal(t, RevisionLegacy, rev)

	_, err = ParseRevision("v3")
	assert.Error(t, err)
}
