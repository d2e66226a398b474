package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Short aliases used by the factory helpers.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeUnknown        = ErrorCode("")
	CodeOK             = ErrorCode("OK")
)

// Quiz Module Error Codes
const (
	ErrCodeInvalidTestData   ErrorCode = "QUIZ_001"
	ErrCodeUnknownTestType   ErrorCode = "QUIZ_002"
	ErrCodeSessionCompleted  ErrorCode = "QUIZ_003"
	ErrCodeAnswerOutOfOrder  ErrorCode = "QUIZ_004"
	ErrCodeSessionNotStarted ErrorCode = "QUIZ_005"
	ErrCodeInvalidAnswer     ErrorCode = "QUIZ_006"
	ErrCodeUnknownProfile    ErrorCode = "QUIZ_007"
)

// Persistence Error Codes
const (
	ErrCodeRemoteUnavailable ErrorCode = "STORE_001"
	ErrCodeSnapshotMalformed ErrorCode = "STORE_002"
)

// Export Error Codes
const (
	ErrCodeRenderFailed ErrorCode = "EXPORT_001"
)

// Infrastructure aliases
const (
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeExternalService
	CodeStorageError      = ErrCodeExternalService
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeInvalidTestData:   http.StatusUnprocessableEntity,
	ErrCodeUnknownTestType:   http.StatusNotFound,
	ErrCodeSessionCompleted:  http.StatusConflict,
	ErrCodeAnswerOutOfOrder:  http.StatusConflict,
	ErrCodeSessionNotStarted: http.StatusConflict,
	ErrCodeInvalidAnswer:     http.StatusBadRequest,
	ErrCodeUnknownProfile:    http.StatusUnprocessableEntity,

	ErrCodeRemoteUnavailable: http.StatusServiceUnavailable,
	ErrCodeSnapshotMalformed: http.StatusUnprocessableEntity,

	ErrCodeRenderFailed: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeInvalidTestData:   "invalid test data",
	ErrCodeUnknownTestType:   "unknown test type",
	ErrCodeSessionCompleted:  "test already completed",
	ErrCodeAnswerOutOfOrder:  "answer does not match the current question",
	ErrCodeSessionNotStarted: "test has not started",
	ErrCodeInvalidAnswer:     "invalid answer",
	ErrCodeUnknownProfile:    "unknown profile",

	ErrCodeRemoteUnavailable: "remote store unavailable",
	ErrCodeSnapshotMalformed: "stored snapshot is malformed",

	ErrCodeRenderFailed: "failed to render export",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
