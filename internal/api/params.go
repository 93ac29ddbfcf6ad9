package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pdfrelay/internal/apperr"
	"pdfrelay/internal/operation"
)

// parseParams extracts the operation-specific form fields into a typed
// request. Shape errors get their specific taxonomy codes here, before
// the orchestrator is ever invoked.
func parseParams(kind operation.Kind, r *http.Request) (operation.Request, error) {
	req := operation.Request{Kind: kind}

	switch kind {
	case operation.Compress:
		level := strings.ToUpper(strings.TrimSpace(r.FormValue("compressionLevel")))
		if level == "" {
			level = string(operation.CompressionHigh)
		}
		req.CompressionLevel = operation.CompressionLevel(level)

	case operation.Convert:
		req.ExportFormat = operation.ExportFormat(
			strings.ToLower(strings.TrimSpace(r.FormValue("exportFormat"))))

	case operation.Protect, operation.RemoveProtection:
		req.Password = r.FormValue("password")

	case operation.Split:
		from, err := positiveInt(r.FormValue("fromPage"))
		if err != nil {
			return req, apperr.BadRequest(apperr.CodeInvalidPageRange,
				"fromPage must be a positive integer.")
		}
		to, err := positiveInt(r.FormValue("toPage"))
		if err != nil {
			return req, apperr.BadRequest(apperr.CodeInvalidPageRange,
				"toPage must be a positive integer.")
		}
		req.FromPage, req.ToPage = from, to

	case operation.Reorder:
		order, err := parsePageOrder(r.FormValue("pageOrder"))
		if err != nil {
			return req, apperr.BadRequest(apperr.CodeInvalidPageOrder,
				"pageOrder must be a comma-separated list of page numbers.")
		}
		req.PageOrder = order

	case operation.OCR:
		locale := strings.TrimSpace(r.FormValue("ocrLocale"))
		if locale == "" {
			locale = operation.DefaultOCRLocale
		}
		req.OCRLocale = locale
	}

	return req, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

// parsePageOrder parses "3,1,2" into []int{3, 1, 2}.
func parsePageOrder(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty page order")
	}
	parts := strings.Split(s, ",")
	order := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad page number %q", p)
		}
		order = append(order, n)
	}
	return order, nil
}

// echoFields returns the operation-specific fields echoed back in the
// success envelope, mirroring what the client submitted.
func echoFields(req operation.Request) map[string]any {
	switch req.Kind {
	case operation.Compress:
		return map[string]any{"compressionLevel": string(req.CompressionLevel)}
	case operation.Convert:
		return map[string]any{"exportFormat": string(req.ExportFormat)}
	case operation.Split:
		return map[string]any{"fromPage": req.FromPage, "toPage": req.ToPage}
	case operation.Reorder:
		return map[string]any{"pageOrder": req.PageOrder}
	case operation.OCR:
		return map[string]any{"ocrLocale": req.OCRLocale}
	default:
		return nil
	}
}
