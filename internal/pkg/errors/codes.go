package errors

import (
	"fmt"
	"net/http"
)

// Kind classifies an error code into the taxonomy callers branch on.
type Kind string

const (
	KindInternal       Kind = "internal"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindGone           Kind = "gone"
	KindTransientStore Kind = "transient_store"
)

// Code represents an error code with HTTP status, message and kind
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
	Kind    Kind   // Taxonomy bucket
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer   = 1000
	ErrInvalidParams    = 1001
	ErrNotFound         = 1002
	ErrUnauthorized     = 1003
	ErrForbidden        = 1004
	ErrConflict         = 1005
	ErrTooManyRequests  = 1006
	ErrBadRequest       = 1007
	ErrStoreUnavailable = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2000
	ErrAuthTokenExpired = 2001
	ErrNotAllowListed   = 2002

	// User errors (3000-3099)
	ErrUserNotFound = 3000
	ErrUserInactive = 3001

	// Group errors (3100-3199)
	ErrGroupNotFound      = 3100
	ErrDuplicateGroupName = 3101
	ErrGroupNameInvalid   = 3102

	// File errors (3200-3299)
	ErrFileNotFound           = 3200
	ErrSerialAllocationFailed = 3201
	ErrUnsupportedFileType    = 3202
	ErrFileTooLarge           = 3203
	ErrInvalidAttachment      = 3204

	// Link errors (3300-3399)
	ErrLinkNotFound   = 3300
	ErrLinkRevoked    = 3301
	ErrLinkExpired    = 3302
	ErrLinkExhausted  = 3303
	ErrCodeCollision  = 3304
	ErrInvalidTTL     = 3305
	ErrInvalidMaxUses = 3306

	// Upload session errors (3400-3499)
	ErrNoActiveSession = 3400
	ErrSessionMismatch = 3401
)

// linkUnavailableMessage is shared so a revoked code reads the same as an unknown one.
const linkUnavailableMessage = "Link is invalid or no longer available"

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success", ""},

	// Common errors
	ErrInternalServer:   {ErrInternalServer, http.StatusInternalServerError, "Internal server error", KindInternal},
	ErrInvalidParams:    {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters", KindValidation},
	ErrNotFound:         {ErrNotFound, http.StatusNotFound, "Resource not found", KindNotFound},
	ErrUnauthorized:     {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized", KindAuthorization},
	ErrForbidden:        {ErrForbidden, http.StatusForbidden, "Permission denied", KindAuthorization},
	ErrConflict:         {ErrConflict, http.StatusConflict, "Resource conflict", KindConflict},
	ErrTooManyRequests:  {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests", KindValidation},
	ErrBadRequest:       {ErrBadRequest, http.StatusBadRequest, "Bad request", KindValidation},
	ErrStoreUnavailable: {ErrStoreUnavailable, http.StatusServiceUnavailable, "Storage temporarily unavailable, try again", KindTransientStore},

	// Auth errors
	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token", KindAuthorization},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired", KindAuthorization},
	ErrNotAllowListed:   {ErrNotAllowListed, http.StatusForbidden, "This service is restricted to approved users", KindAuthorization},

	// User errors
	ErrUserNotFound: {ErrUserNotFound, http.StatusNotFound, "User not found", KindNotFound},
	ErrUserInactive: {ErrUserInactive, http.StatusForbidden, "User is deactivated", KindAuthorization},

	// Group errors
	ErrGroupNotFound:      {ErrGroupNotFound, http.StatusNotFound, "Group not found", KindNotFound},
	ErrDuplicateGroupName: {ErrDuplicateGroupName, http.StatusConflict, "Group already exists", KindConflict},
	ErrGroupNameInvalid:   {ErrGroupNameInvalid, http.StatusBadRequest, "Invalid group name", KindValidation},

	// File errors
	ErrFileNotFound:           {ErrFileNotFound, http.StatusNotFound, "File not found", KindNotFound},
	ErrSerialAllocationFailed: {ErrSerialAllocationFailed, http.StatusConflict, "Could not assign a serial number, try again", KindConflict},
	ErrUnsupportedFileType:    {ErrUnsupportedFileType, http.StatusBadRequest, "Unsupported file type", KindValidation},
	ErrFileTooLarge:           {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit", KindValidation},
	ErrInvalidAttachment:      {ErrInvalidAttachment, http.StatusBadRequest, "Invalid attachment", KindValidation},

	// Link errors
	ErrLinkNotFound:   {ErrLinkNotFound, http.StatusNotFound, linkUnavailableMessage, KindNotFound},
	ErrLinkRevoked:    {ErrLinkRevoked, http.StatusNotFound, linkUnavailableMessage, KindNotFound},
	ErrLinkExpired:    {ErrLinkExpired, http.StatusGone, "Link has expired", KindGone},
	ErrLinkExhausted:  {ErrLinkExhausted, http.StatusGone, "Link download limit reached", KindGone},
	ErrCodeCollision:  {ErrCodeCollision, http.StatusConflict, "Could not generate a unique code, try again", KindConflict},
	ErrInvalidTTL:     {ErrInvalidTTL, http.StatusBadRequest, "Invalid link expiry", KindValidation},
	ErrInvalidMaxUses: {ErrInvalidMaxUses, http.StatusBadRequest, "Invalid link use limit", KindValidation},

	// Upload session errors
	ErrNoActiveSession: {ErrNoActiveSession, http.StatusConflict, "Select a group first", KindConflict},
	ErrSessionMismatch: {ErrSessionMismatch, http.StatusBadRequest, "Upload session is no longer current", KindValidation},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// GetKind returns the taxonomy kind for a given error code
func GetKind(code int) Kind {
	return GetCode(code).Kind
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// IsServerError checks if the code represents a server error (5xx)
func IsServerError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
