package jt808

import (
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeHex 去除空白并转大写，校验十六进制字符与偶数位数
func NormalizeHex(s string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)

	for i := 0; i < len(cleaned); i++ {
		if !isHexDigit(cleaned[i]) {
			return "", frameErr(KindMalformedInput, "non-hex character %q at position %d", cleaned[i], i)
		}
	}
	if len(cleaned)%2 != 0 {
		return "", frameErr(KindMalformedInput, "odd hex digit count %d", len(cleaned))
	}
	return cleaned, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// hexBytes 规范化后的十六进制转字节
func hexBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, frameErr(KindMalformedInput, "%v", err)
	}
	return b, nil
}

func upperHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
