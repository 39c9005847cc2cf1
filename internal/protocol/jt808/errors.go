package jt808

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput    = errors.New("malformed hex input")
	ErrTooShort          = errors.New("frame too short")
	ErrMissingDelimiters = errors.New("missing frame delimiters")
	ErrTextDecode        = errors.New("text decode error")
)

// ErrorKind 帧级错误分类
type ErrorKind string

const (
	KindMalformedInput    ErrorKind = "MalformedInput"
	KindTooShort          ErrorKind = "TooShort"
	KindMissingDelimiters ErrorKind = "MissingDelimiters"
)

// FrameError 整帧解码失败（致命），以值的形式返回给调用方
type FrameError struct {
	Kind   ErrorKind
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is 使 errors.Is(err, ErrTooShort) 等哨兵比较可用
func (e *FrameError) Is(target error) bool {
	switch e.Kind {
	case KindMalformedInput:
		return target == ErrMalformedInput
	case KindTooShort:
		return target == ErrTooShort
	case KindMissingDelimiters:
		return target == ErrMissingDelimiters
	}
	return false
}

func frameErr(kind ErrorKind, format string, args ...any) *FrameError {
	return &FrameError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误分类，非 FrameError 返回空串
func KindOf(err error) ErrorKind {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
