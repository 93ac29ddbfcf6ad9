// Package doctor validates pdfrelay configuration and environment
// before the service starts taking traffic.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"

	"pdfrelay/internal/config"
	"pdfrelay/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the host.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkProviderCredentials(r)
	d.checkArtifactRoot(r)
	d.checkStateDB(r)
	d.checkRetention(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) checkProviderCredentials(r *Result) {
	if d.cfg.Provider.ClientID == "" {
		d.addError(r, "provider", "provider.client_id",
			"provider client ID is empty (set PDF_SERVICES_CLIENT_ID)")
	}
	if d.cfg.Provider.ClientSecret == "" {
		d.addError(r, "provider", "provider.client_secret",
			"provider client secret is empty (set PDF_SERVICES_CLIENT_SECRET)")
	}
	if d.cfg.Provider.BaseURL == "" {
		d.addError(r, "provider", "provider.base_url", "provider base URL is empty")
	}
}

// checkArtifactRoot verifies the storage root exists (or can be
// created) and is writable.
func (d *Doctor) checkArtifactRoot(r *Result) {
	root := d.cfg.Artifacts.Root
	if err := os.MkdirAll(root, 0o755); err != nil {
		d.addError(r, "artifacts", "artifacts.root",
			fmt.Sprintf("cannot create artifact root %q: %v", root, err))
		return
	}

	probe := filepath.Join(root, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		d.addError(r, "artifacts", "artifacts.root",
			fmt.Sprintf("artifact root %q is not writable: %v", root, err))
		return
	}
	_ = os.Remove(probe)
}

func (d *Doctor) checkStateDB(r *Result) {
	if err := storage.ValidateSQLiteFilesystem(d.cfg.Service.StatePath); err != nil {
		d.addError(r, "state", "service.state_path", err.Error())
	}
}

func (d *Doctor) checkRetention(r *Result) {
	if d.cfg.Artifacts.TTL < d.cfg.Artifacts.SweepInterval {
		d.addWarning(r, "artifacts", "artifacts.ttl",
			fmt.Sprintf("TTL %s is shorter than the sweep interval %s; expired files stay on disk (though unserved) until the next sweep",
				d.cfg.Artifacts.TTL, d.cfg.Artifacts.SweepInterval))
	}
}
