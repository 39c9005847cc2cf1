package transport

import (
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Hex(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		payload []byte
		want    string
		wantErr bool
	}{
		{"二进制负载", PayloadBinary, []byte{0x7e, 0x02, 0x00, 0xab}, "7E0200AB", false},
		{"默认按二进制", "", []byte{0x01}, "01", false},
		{"十六进制文本", PayloadHex, []byte(" 7e0200\n"), "7e0200", false},
		{"未知格式", "base64", []byte{0x01}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Message{Payload: tt.payload}.Hex(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMessage_AssignsID(t *testing.T) {
	a := NewMessage("mqtt", "gps/1", []byte{1})
	b := NewMessage("mqtt", "gps/1", []byte{1})
	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.ReceivedAt.IsZero())
}

func TestRedisSource_ToMessage(t *testing.T) {
	s := NewRedisSource(nil, "gps.*", nil)
	msg := s.toMessage(&redis.Message{Channel: "gps.dev1", Pattern: "gps.*", Payload: "7E0200"})
	assert.Equal(t, "redis", msg.Source)
	assert.Equal(t, "gps.dev1", msg.Topic)
	assert.Equal(t, []byte("7E0200"), msg.Payload)
}
