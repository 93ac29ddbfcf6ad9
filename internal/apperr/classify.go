package apperr

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
)

// pattern maps a set of substrings surfaced by the remote provider to a
// taxonomy entry. The provider's error shapes are not enumerable, so
// this table is the single point of change when its wording shifts.
// Order matters: more specific patterns come first.
type pattern struct {
	substrings []string
	code       Code
	status     int
	message    string
}

var providerPatterns = []pattern{
	{[]string{"quota", "rate limit", "too many requests"},
		CodeQuotaExceeded, http.StatusTooManyRequests,
		"Provider quota exceeded. Please try again later."},
	{[]string{"timeout", "timed out", "deadline exceeded"},
		CodeOperationTimeout, http.StatusRequestTimeout,
		"The operation did not complete in time."},
	{[]string{"incorrect password", "wrong password"},
		CodeIncorrectPassword, http.StatusUnauthorized,
		"The password supplied for this document is incorrect."},
	{[]string{"unauthorized", "forbidden", "credential", "authentication"},
		CodeAuthFailed, http.StatusUnauthorized,
		"Authentication with the document provider failed."},
	{[]string{"password", "protected", "encrypted"},
		CodePDFProtected, http.StatusBadRequest,
		"The document is password protected."},
	// Bare "invalid" is too broad: it also appears in local decode
	// failures ("invalid character ..."), which are not the client's
	// document being corrupt.
	{[]string{"corrupt", "invalid pdf", "invalid input", "invalid document", "not a valid", "malformed", "unreadable"},
		CodeInvalidPDF, http.StatusBadRequest,
		"The document is corrupt or not a valid PDF."},
	{[]string{"format"},
		CodeValidationError, http.StatusBadRequest,
		"The requested format is not supported."},
	{[]string{"service unavailable", "busy"},
		CodeServerBusy, http.StatusServiceUnavailable,
		"The document provider is temporarily unavailable."},
}

// Classify reduces err to a domain Error. Already-classified errors
// pass through unchanged; well-known local conditions and provider
// message patterns are mapped; anything else becomes fallback.
func Classify(err error, fallback *Error) *Error {
	if err == nil {
		return nil
	}

	var domain *Error
	if errors.As(err, &domain) {
		return domain
	}

	if errors.Is(err, fs.ErrNotExist) {
		return New(CodeFileNotFound, http.StatusBadRequest,
			"The source file could not be found.")
	}

	msg := strings.ToLower(err.Error())
	for _, p := range providerPatterns {
		for _, s := range p.substrings {
			if strings.Contains(msg, s) {
				return New(p.code, p.status, p.message)
			}
		}
	}

	return fallback
}
