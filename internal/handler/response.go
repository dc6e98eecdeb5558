package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope wraps every JSON body of the /api routes. Code is 0 on success
// and the HTTP status otherwise.
type Envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, Envelope{Message: "ok", Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, Envelope{Code: status, Message: message, Meta: meta})
}

// internalError logs err and answers 500 with its message.
func internalError(c *gin.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	if log != nil {
		log.Warn(msg, append(fields, zap.String("path", c.FullPath()), zap.Error(err))...)
	}
	Error(c, http.StatusInternalServerError, err.Error(), nil)
}
