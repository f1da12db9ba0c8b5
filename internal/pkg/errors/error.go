package errors

import (
	"errors"
	"fmt"
)

// AppError 业务错误：Code 决定 HTTP 状态与分类，Err 是内部原因，不回显给客户端
type AppError struct {
	Code    int
	Message string
	Err     error
	Details string
}

func (e *AppError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	case e.Details != "":
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	default:
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) HTTPStatus() int {
	return GetHTTPStatus(e.Code)
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// New creates an AppError for code; the optional detail is shown to the caller.
func New(code int, details ...string) *AppError {
	return &AppError{Code: code, Message: GetMessage(code), Details: firstDetail(details)}
}

func Newf(code int, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 给 err 附加业务码。err 链上已有 AppError 时保留原有 code，
// 传入非空 detail 则在副本上覆盖 Details。
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	detail := firstDetail(details)
	if appErr, ok := asAppError(err); ok {
		if detail == "" {
			return appErr
		}
		cp := *appErr
		cp.Details = detail
		return &cp
	}
	return &AppError{Code: code, Message: GetMessage(code), Err: err, Details: detail}
}

// NewStoreUnavailableError wraps a transient storage failure.
func NewStoreUnavailableError(err error) *AppError {
	return Wrap(err, ErrStoreUnavailable)
}

func Is(err error, code int) bool {
	appErr, ok := asAppError(err)
	return ok && appErr.Code == code
}

// ExtractCode 非 AppError 一律视为内部错误
func ExtractCode(err error) int {
	if appErr, ok := asAppError(err); ok {
		return appErr.Code
	}
	return ErrInternalServer
}

// KindOf returns the taxonomy bucket of err; "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return GetKind(ExtractCode(err))
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// GetDetails 只返回显式设置的 Details，内部原因不外泄
func GetDetails(err error) string {
	if appErr, ok := asAppError(err); ok {
		return appErr.Details
	}
	return ""
}
