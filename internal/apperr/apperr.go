// Package apperr defines the closed error taxonomy returned to clients.
// Every failure, whatever its origin, is reduced to one of these codes
// before it reaches the HTTP layer.
package apperr

import "net/http"

// Code identifies a failure class. The set is closed: handlers and the
// classifier only ever produce codes declared here.
type Code string

const (
	CodeFileMissing            Code = "FILE_MISSING"
	CodeInvalidFileType        Code = "INVALID_FILE_TYPE"
	CodeFileTooLarge           Code = "FILE_TOO_LARGE"
	CodeValidationError        Code = "VALIDATION_ERROR"
	CodeInvalidPassword        Code = "INVALID_PASSWORD"
	CodePasswordRequired       Code = "PASSWORD_REQUIRED"
	CodeInvalidPageRange       Code = "INVALID_PAGE_RANGE"
	CodeInvalidPageNumber      Code = "INVALID_PAGE_NUMBER"
	CodeInvalidPageOrder       Code = "INVALID_PAGE_ORDER"
	CodeDuplicatePages         Code = "DUPLICATE_PAGES"
	CodeInvalidPDF             Code = "INVALID_PDF"
	CodePDFProtected           Code = "PDF_PROTECTED"
	CodeAlreadyProtected       Code = "ALREADY_PROTECTED"
	CodeNotProtected           Code = "NOT_PROTECTED"
	CodeIncorrectPassword      Code = "INCORRECT_PASSWORD"
	CodeAuthFailed             Code = "AUTH_FAILED"
	CodeQuotaExceeded          Code = "QUOTA_EXCEEDED"
	CodeOperationTimeout       Code = "OPERATION_TIMEOUT"
	CodeFileNotFound           Code = "FILE_NOT_FOUND"
	CodeUploadFailed           Code = "UPLOAD_FAILED"
	CodeServerBusy             Code = "SERVER_BUSY"
	CodeCompressionFailed      Code = "COMPRESSION_FAILED"
	CodeConversionFailed       Code = "CONVERSION_FAILED"
	CodeProtectionFailed       Code = "PROTECTION_FAILED"
	CodeRemoveProtectionFailed Code = "REMOVE_PROTECTION_FAILED"
	CodeSplitFailed            Code = "SPLIT_FAILED"
	CodeReorderFailed          Code = "REORDER_FAILED"
	CodeOCRFailed              Code = "OCR_FAILED"
)

// Error is the domain error delivered to clients: a message, a stable
// code, and the HTTP status the handler should respond with.
type Error struct {
	Code    Code
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an Error with an explicit status and message.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// BadRequest creates a 400 Error.
func BadRequest(code Code, message string) *Error {
	return New(code, http.StatusBadRequest, message)
}
