// Package pdfinfo probes uploaded documents locally so that page-range
// preconditions can be checked before anything is sent to the provider.
package pdfinfo

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Info describes what could be learned from a local read of a PDF.
// When Encrypted is true the page count is unknown (0).
type Info struct {
	PageCount int
	Encrypted bool
}

// Prober inspects a PDF on disk. The orchestrator depends on this
// interface so tests can substitute fixed results.
type Prober interface {
	Inspect(path string) (Info, error)
}

type pdfcpuProber struct{}

// NewProber returns a pdfcpu-backed Prober.
func NewProber() Prober {
	return pdfcpuProber{}
}

// Inspect reads the document at path and reports its page count. A read
// failure that looks like an encryption prompt is reported as an
// encrypted document rather than an error; any other failure means the
// file is not a readable PDF.
func (pdfcpuProber) Inspect(path string) (Info, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		if isEncryptionError(err) {
			return Info{Encrypted: true}, nil
		}
		return Info{}, fmt.Errorf("read pdf %q: %w", path, err)
	}
	return Info{PageCount: count}, nil
}

// isEncryptionError detects pdfcpu's refusal to open an encrypted
// document without a password.
func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}
