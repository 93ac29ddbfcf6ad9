// Package operation declares one descriptor per transformation kind:
// how to validate its parameters, which preconditions to check against
// the actual document, how to build the provider job, and what file
// extension the output carries.
package operation

import (
	"fmt"
	"net/http"
	"strings"

	"pdfrelay/internal/apperr"
	"pdfrelay/internal/pdfinfo"
	"pdfrelay/internal/provider"
)

// Kind identifies a transformation.
type Kind string

const (
	Compress         Kind = "compress"
	Convert          Kind = "convert"
	Protect          Kind = "protect"
	RemoveProtection Kind = "remove-protection"
	Split            Kind = "split"
	Reorder          Kind = "reorder"
	OCR              Kind = "ocr"
)

// CompressionLevel selects how aggressively the provider compresses.
type CompressionLevel string

const (
	CompressionHigh   CompressionLevel = "HIGH"
	CompressionMedium CompressionLevel = "MEDIUM"
	CompressionLow    CompressionLevel = "LOW"
)

// ExportFormat selects the convert target.
type ExportFormat string

const (
	FormatDOCX ExportFormat = "docx"
	FormatJPEG ExportFormat = "jpeg"
	FormatPNG  ExportFormat = "png"
)

// Request carries the validated, typed parameters for one operation.
// Only the fields relevant to Kind are set.
type Request struct {
	Kind             Kind
	CompressionLevel CompressionLevel
	ExportFormat     ExportFormat
	Password         string
	FromPage         int
	ToPage           int
	PageOrder        []int
	OCRLocale        string
}

// Spec describes one transformation kind end to end.
type Spec struct {
	Kind Kind

	// Failure is the generic per-operation fallback the classifier uses
	// when nothing more specific matches.
	Failure *apperr.Error

	// Validate checks the request parameters, including cross-field
	// rules that need no document access. It never touches the file.
	Validate func(req Request) error

	// Precheck verifies the request against the actual document (page
	// counts, encryption state) before any upload happens.
	Precheck func(req Request, info pdfinfo.Info) error

	// OutputExt is the extension of the result file.
	OutputExt func(req Request) string

	// BuildJob turns the request and an uploaded asset into the
	// provider job to submit.
	BuildJob func(req Request, asset provider.Asset) provider.JobSpec
}

// SpecFor returns the descriptor for kind.
func SpecFor(kind Kind) (Spec, bool) {
	s, ok := specs[kind]
	return s, ok
}

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{Compress, Convert, Protect, RemoveProtection, Split, Reorder, OCR}
}

var specs = map[Kind]Spec{
	Compress: {
		Kind:     Compress,
		Failure:  apperr.New(apperr.CodeCompressionFailed, http.StatusInternalServerError, "Failed to compress PDF"),
		Validate: validateCompress,
		Precheck: rejectEncrypted,
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "compress",
				AssetID:   asset.ID,
				Params: map[string]any{
					"compressionLevel": string(req.CompressionLevel),
				},
			}
		},
	},

	Convert: {
		Kind:     Convert,
		Failure:  apperr.New(apperr.CodeConversionFailed, http.StatusInternalServerError, "Failed to convert PDF"),
		Validate: validateConvert,
		Precheck: rejectEncrypted,
		OutputExt: func(req Request) string {
			if req.ExportFormat == FormatDOCX {
				return "docx"
			}
			// Image targets come back as one zip of per-page images.
			return "zip"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			if req.ExportFormat == FormatDOCX {
				return provider.JobSpec{
					Operation: "export",
					AssetID:   asset.ID,
					Params: map[string]any{
						"targetFormat": "DOCX",
					},
				}
			}
			return provider.JobSpec{
				Operation: "export-images",
				AssetID:   asset.ID,
				Params: map[string]any{
					"targetFormat": strings.ToUpper(string(req.ExportFormat)),
					"outputType":   "zip-of-page-images",
				},
			}
		},
	},

	Protect: {
		Kind:     Protect,
		Failure:  apperr.New(apperr.CodeProtectionFailed, http.StatusInternalServerError, "Failed to protect PDF"),
		Validate: validateProtect,
		Precheck: func(req Request, info pdfinfo.Info) error {
			if info.Encrypted {
				return apperr.BadRequest(apperr.CodeAlreadyProtected,
					"The document is already password protected.")
			}
			return nil
		},
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "protect",
				AssetID:   asset.ID,
				Params: map[string]any{
					"userPassword":        req.Password,
					"encryptionAlgorithm": "AES_256",
				},
			}
		},
	},

	RemoveProtection: {
		Kind:     RemoveProtection,
		Failure:  apperr.New(apperr.CodeRemoveProtectionFailed, http.StatusInternalServerError, "Failed to remove PDF protection"),
		Validate: validateRemoveProtection,
		Precheck: func(req Request, info pdfinfo.Info) error {
			if !info.Encrypted {
				return apperr.BadRequest(apperr.CodeNotProtected,
					"The document is not password protected.")
			}
			return nil
		},
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "remove-protection",
				AssetID:   asset.ID,
				Params: map[string]any{
					"password": req.Password,
				},
			}
		},
	},

	Split: {
		Kind:     Split,
		Failure:  apperr.New(apperr.CodeSplitFailed, http.StatusInternalServerError, "Failed to split PDF"),
		Validate: validateSplit,
		Precheck: func(req Request, info pdfinfo.Info) error {
			if info.Encrypted {
				return errEncrypted
			}
			if req.ToPage > info.PageCount {
				return apperr.BadRequest(apperr.CodeInvalidPageRange,
					fmt.Sprintf("Page range ends at %d but the document has only %d pages.",
						req.ToPage, info.PageCount))
			}
			return nil
		},
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "split",
				AssetID:   asset.ID,
				Params: map[string]any{
					"pageRanges": []map[string]int{
						{"start": req.FromPage, "end": req.ToPage},
					},
				},
			}
		},
	},

	Reorder: {
		Kind:     Reorder,
		Failure:  apperr.New(apperr.CodeReorderFailed, http.StatusInternalServerError, "Failed to reorder PDF"),
		Validate: validateReorder,
		Precheck: func(req Request, info pdfinfo.Info) error {
			if info.Encrypted {
				return errEncrypted
			}
			for _, page := range req.PageOrder {
				if page > info.PageCount {
					return apperr.BadRequest(apperr.CodeInvalidPageNumber,
						fmt.Sprintf("Page %d does not exist; the document has %d pages.",
							page, info.PageCount))
				}
			}
			return nil
		},
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "reorder",
				AssetID:   asset.ID,
				Params: map[string]any{
					"pageOrder": req.PageOrder,
				},
			}
		},
	},

	OCR: {
		Kind:     OCR,
		Failure:  apperr.New(apperr.CodeOCRFailed, http.StatusInternalServerError, "Failed to OCR PDF"),
		Validate: validateOCR,
		Precheck: rejectEncrypted,
		OutputExt: func(Request) string {
			return "pdf"
		},
		BuildJob: func(req Request, asset provider.Asset) provider.JobSpec {
			return provider.JobSpec{
				Operation: "ocr",
				AssetID:   asset.ID,
				Params: map[string]any{
					"ocrLocale": req.OCRLocale,
				},
			}
		},
	},
}

var errEncrypted = apperr.BadRequest(apperr.CodePDFProtected,
	"This operation requires an unprotected document.")

// rejectEncrypted is the shared precheck for operations that cannot act
// on an encrypted document.
func rejectEncrypted(req Request, info pdfinfo.Info) error {
	if info.Encrypted {
		return errEncrypted
	}
	return nil
}
