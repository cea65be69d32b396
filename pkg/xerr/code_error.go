package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Cause: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error { return e.cause }

// Is 同码即视为同类错误
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap 给底层错误挂上错误码，保留 cause 供日志使用
func Wrap(code int, msg string, cause error) *CodeError {
	return &CodeError{Code: code, Message: msg, cause: cause}
}

// From 从错误链中提取 CodeError
func From(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf 错误对应的错误码，非 CodeError 一律视为 500
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	if ce, ok := From(err); ok {
		return ce.Code
	}
	return InternalServerError
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	PayloadTooLarge     = 413
	Unprocessable       = 422
	InternalServerError = 500
	BadGateway          = 502
	ServiceUnavailable  = 503
	GatewayTimeout      = 504
)

// 常用预定义错误
var (
	ErrSuccess         = New(OK, "Success")
	ErrServerError     = New(InternalServerError, "internal error, please try again later")
	ErrParam           = New(BadRequest, "invalid parameters")
	ErrBodyTooLarge    = New(PayloadTooLarge, "request body too large")
	ErrUnauthorized    = New(Unauthorized, "unauthorized")
	ErrBadSignature    = New(Unauthorized, "invalid webhook signature")
	ErrOrgNotFound     = New(NotFound, "organization not found")
	ErrUnmappedTenant  = New(Unprocessable, "helpdesk account is not mapped to an organization")
	ErrUpstream        = New(BadGateway, "assistant is temporarily unavailable")
	ErrUpstreamTimeout = New(GatewayTimeout, "assistant timed out")
	ErrContextDown     = New(ServiceUnavailable, "store data is temporarily unavailable")
	ErrSessionNotFound = New(NotFound, "session not found")
	ErrSessionOrg      = New(Conflict, "session token belongs to another organization")
)
