package operation

import (
	"fmt"

	"pdfrelay/internal/apperr"
)

const (
	protectPasswordMin = 6
	protectPasswordMax = 32
	removePasswordMax  = 128
)

// DefaultOCRLocale is applied when no locale is supplied.
const DefaultOCRLocale = "en-US"

// ocrLocales is the closed set of languages the provider can OCR.
var ocrLocales = map[string]struct{}{
	"bg-BG": {}, "ca-CA": {}, "cs-CZ": {}, "da-DK": {}, "de-DE": {}, "de-CH": {},
	"el-GR": {}, "en-GB": {}, "en-US": {}, "es-ES": {}, "et-EE": {}, "fi-FI": {},
	"fr-FR": {}, "hr-HR": {}, "hu-HU": {}, "it-IT": {}, "iw-IL": {}, "ja-JP": {},
	"ko-KR": {}, "lt-LT": {}, "lv-LV": {}, "mk-MK": {}, "mt-MT": {}, "nb-NO": {},
	"nl-NL": {}, "no-NO": {}, "pl-PL": {}, "pt-BR": {}, "ro-RO": {}, "ru-RU": {},
	"sk-SK": {}, "sl-SI": {}, "sr-SR": {}, "sv-SE": {}, "tr-TR": {}, "uk-UA": {},
	"zh-CN": {}, "zh-HK": {},
}

func validateCompress(req Request) error {
	switch req.CompressionLevel {
	case CompressionHigh, CompressionMedium, CompressionLow:
		return nil
	default:
		return apperr.BadRequest(apperr.CodeValidationError,
			fmt.Sprintf("compressionLevel must be one of HIGH, MEDIUM, LOW; got %q", req.CompressionLevel))
	}
}

func validateConvert(req Request) error {
	switch req.ExportFormat {
	case FormatDOCX, FormatJPEG, FormatPNG:
		return nil
	default:
		return apperr.BadRequest(apperr.CodeValidationError,
			fmt.Sprintf("exportFormat must be one of docx, jpeg, png; got %q", req.ExportFormat))
	}
}

func validateProtect(req Request) error {
	if req.Password == "" {
		return apperr.BadRequest(apperr.CodePasswordRequired, "A password is required.")
	}
	if len(req.Password) < protectPasswordMin || len(req.Password) > protectPasswordMax {
		return apperr.BadRequest(apperr.CodeInvalidPassword,
			fmt.Sprintf("Password must be between %d and %d characters.", protectPasswordMin, protectPasswordMax))
	}
	return nil
}

func validateRemoveProtection(req Request) error {
	if req.Password == "" {
		return apperr.BadRequest(apperr.CodePasswordRequired, "A password is required.")
	}
	if len(req.Password) > removePasswordMax {
		return apperr.BadRequest(apperr.CodeInvalidPassword,
			fmt.Sprintf("Password cannot be longer than %d characters.", removePasswordMax))
	}
	return nil
}

func validateSplit(req Request) error {
	if req.FromPage < 1 || req.ToPage < 1 {
		return apperr.BadRequest(apperr.CodeInvalidPageRange,
			"fromPage and toPage must be positive integers.")
	}
	if req.FromPage > req.ToPage {
		return apperr.BadRequest(apperr.CodeInvalidPageRange,
			fmt.Sprintf("fromPage (%d) must not be greater than toPage (%d).", req.FromPage, req.ToPage))
	}
	return nil
}

func validateReorder(req Request) error {
	if len(req.PageOrder) == 0 {
		return apperr.BadRequest(apperr.CodeInvalidPageOrder, "pageOrder must not be empty.")
	}
	seen := make(map[int]struct{}, len(req.PageOrder))
	for _, page := range req.PageOrder {
		if page < 1 {
			return apperr.BadRequest(apperr.CodeInvalidPageNumber,
				fmt.Sprintf("Page numbers must be positive; got %d.", page))
		}
		if _, dup := seen[page]; dup {
			return apperr.BadRequest(apperr.CodeDuplicatePages,
				fmt.Sprintf("Page %d appears more than once in pageOrder.", page))
		}
		seen[page] = struct{}{}
	}
	return nil
}

func validateOCR(req Request) error {
	if _, ok := ocrLocales[req.OCRLocale]; !ok {
		return apperr.BadRequest(apperr.CodeValidationError,
			fmt.Sprintf("ocrLocale %q is not supported", req.OCRLocale))
	}
	return nil
}
