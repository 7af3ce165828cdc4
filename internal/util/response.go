package util

import (
	"errors"
	"net/http"
	"scorm_trends_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 已知错误和状态码的对应关系，按顺序匹配
var errorStatus = []struct {
	err  error
	code int
}{
	{ErrInvalidID, http.StatusBadRequest},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrScormNotFound, http.StatusNotFound},
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Text 纯文本报表
func Text(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, ContentTypeText, body)
}

// StatusOf 返回错误对应的状态码和对外展示的信息；未知错误不暴露细节
func StatusOf(err error) (int, string) {
	for _, s := range errorStatus {
		if errors.Is(err, s.err) {
			return s.code, s.err.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// HandleError 写出错误响应，500 时记录原始错误
func HandleError(c *gin.Context, err error) {
	code, message := StatusOf(err)
	if code == http.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("scorm_id", c.Param("id")),
			zap.Error(err))
	}
	Error(c, code, message)
}

// Abort 中间件中拒绝请求
func Abort(c *gin.Context, err error) {
	HandleError(c, err)
	c.Abort()
}
