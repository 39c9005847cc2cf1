package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
)

// DecodeRequest 解码请求体
type DecodeRequest struct {
	Hex string `json:"hex" binding:"required"`
}

// DecodeResponse 解码成功响应
type DecodeResponse struct {
	Frame       *jt808.Frame      `json:"frame"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// ErrorResponse 解码失败响应
type ErrorResponse struct {
	Error string          `json:"error"`
	Kind  jt808.ErrorKind `json:"kind,omitempty"`
}

// DecodeHandler 按需解码单帧
type DecodeHandler struct {
	dec    *jt808.Decoder
	logger *zap.Logger
}

// NewDecodeHandler 创建处理器
func NewDecodeHandler(dec *jt808.Decoder, logger *zap.Logger) *DecodeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecodeHandler{dec: dec, logger: logger}
}

// Decode POST /api/v1/decode
func (h *DecodeHandler) Decode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	frame, err := h.dec.Decode(req.Hex)
	if err != nil {
		h.logger.Debug("decode request rejected",
			zap.String("kind", string(jt808.KindOf(err))),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: jt808.KindOf(err)})
		return
	}

	c.JSON(http.StatusOK, DecodeResponse{Frame: frame, FieldErrors: frame.FieldErrors()})
}
