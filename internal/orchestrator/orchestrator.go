// Package orchestrator drives each transformation end to end: precheck
// the document, upload it, submit and await the provider job, fetch the
// output, persist it, and arm its expiry. Every operation kind runs the
// same state machine; the differences live in operation.Spec.
package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pdfrelay/internal/apperr"
	"pdfrelay/internal/artifact"
	"pdfrelay/internal/expiry"
	"pdfrelay/internal/operation"
	"pdfrelay/internal/pdfinfo"
	"pdfrelay/internal/provider"
)

// UploadedDocument is a transient reference to the client's bytes. The
// upload layer owns the underlying temp file; the orchestrator only
// reads it.
type UploadedDocument struct {
	Path         string
	OriginalName string
	MIMEType     string
	Size         int64
}

// Result is what a successful run produces: the persisted artifact and
// the extension its name carries.
type Result struct {
	Artifact  artifact.Record
	OutputExt string
}

// Expirer arms a deletion deadline for a persisted artifact.
type Expirer interface {
	Schedule(ctx context.Context, e expiry.Entry) error
}

// Orchestrator executes operation requests. It is constructed once at
// process start and shared by all request handlers; it holds no
// per-request state.
type Orchestrator struct {
	client provider.Client
	store  *artifact.Store
	expiry Expirer
	prober pdfinfo.Prober
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New wires an Orchestrator from its collaborators.
func New(client provider.Client, store *artifact.Store, exp Expirer, prober pdfinfo.Prober, ttl time.Duration, logger *slog.Logger) *Orchestrator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Orchestrator{
		client: client,
		store:  store,
		expiry: exp,
		prober: prober,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

var errUpload = apperr.New(apperr.CodeUploadFailed, http.StatusInternalServerError,
	"Failed to upload file")

// Run executes one request. The returned error is always a classified
// *apperr.Error; no raw provider or filesystem error escapes. The
// source file handle is closed on every exit path, and on success
// exactly one artifact exists with its expiry armed before the
// reference is returned.
func (o *Orchestrator) Run(ctx context.Context, doc UploadedDocument, req operation.Request) (Result, error) {
	spec, ok := operation.SpecFor(req.Kind)
	if !ok {
		return Result{}, apperr.BadRequest(apperr.CodeValidationError,
			"Unknown operation "+string(req.Kind))
	}

	log := o.logger.With("operation", string(req.Kind), "original_name", doc.OriginalName)
	started := o.now()

	if err := spec.Validate(req); err != nil {
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	// Preconditions are checked against the actual document before any
	// byte reaches the provider.
	info, err := o.prober.Inspect(doc.Path)
	if err != nil {
		log.Warn("document probe failed", "error", err)
		return Result{}, apperr.Classify(err, apperr.BadRequest(apperr.CodeInvalidPDF,
			"The document is corrupt or not a valid PDF."))
	}
	if err := spec.Precheck(req, info); err != nil {
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	source, err := os.Open(doc.Path)
	if err != nil {
		return Result{}, apperr.Classify(err, spec.Failure)
	}
	defer source.Close()

	asset, err := o.client.Upload(ctx, source)
	if err != nil {
		log.Error("stage failed", "stage", "upload", "error", err)
		return Result{}, apperr.Classify(err, errUpload)
	}
	log.Debug("stage done", "stage", "upload", "asset", asset.ID)

	handle, err := o.client.Submit(ctx, spec.BuildJob(req, asset))
	if err != nil {
		log.Error("stage failed", "stage", "submit", "error", err)
		return Result{}, apperr.Classify(err, spec.Failure)
	}
	log.Debug("stage done", "stage", "submit", "job", handle.ID)

	remote, err := o.client.Await(ctx, handle)
	if err != nil {
		log.Error("stage failed", "stage", "await", "error", err)
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	if len(remote.Assets) == 0 {
		log.Error("stage failed", "stage", "await", "error", "no output assets")
		return Result{}, spec.Failure
	}

	output, err := o.client.Fetch(ctx, remote.Assets[0])
	if err != nil {
		log.Error("stage failed", "stage", "fetch", "error", err)
		return Result{}, apperr.Classify(err, spec.Failure)
	}
	defer output.Close()

	ext := spec.OutputExt(req)
	name, err := o.store.ReserveName(doc.OriginalName, ext)
	if err != nil {
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	record, err := o.store.Persist(name, output)
	if err != nil {
		log.Error("stage failed", "stage", "persist", "artifact", name, "error", err)
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	// Expiry must be armed before the reference escapes; an artifact
	// without a deadline would live forever.
	err = o.expiry.Schedule(ctx, expiry.Entry{
		Name:      record.Name,
		Operation: string(req.Kind),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.CreatedAt.Add(o.ttl),
	})
	if err != nil {
		log.Error("stage failed", "stage", "schedule_expiry", "artifact", record.Name, "error", err)
		o.store.Remove(record.Name)
		return Result{}, apperr.Classify(err, spec.Failure)
	}

	log.Info("operation complete",
		"artifact", record.Name,
		"size", record.Size,
		"checksum", record.Checksum,
		"duration_ms", o.now().Sub(started).Milliseconds(),
	)
	return Result{Artifact: record, OutputExt: ext}, nil
}

// TTL returns the artifact retention window.
func (o *Orchestrator) TTL() time.Duration {
	return o.ttl
}
