// Package provider adapts the remote document-processing service. The
// service performs all real PDF work; this package only moves bytes and
// job state across its REST surface.
package provider

import (
	"context"
	"io"
)

// Asset is an opaque handle to a document stored inside the remote
// system. It is created and consumed within a single orchestration run.
type Asset struct {
	ID string `json:"id"`
}

// JobHandle is an opaque polling token returned after job submission.
type JobHandle struct {
	ID string `json:"id"`
}

// JobSpec describes one transformation job to submit. Params carries
// the operation-specific knobs (compression level, passwords, page
// ranges) in the shape the provider expects.
type JobSpec struct {
	Operation string         `json:"operation"`
	AssetID   string         `json:"assetId"`
	Params    map[string]any `json:"params,omitempty"`
}

// Result holds the output assets of a completed job. Every operation
// served here produces at least one asset; only the first is used.
type Result struct {
	Assets []Asset `json:"assets"`
}

// Client is the four-capability contract the orchestrator needs. Each
// call may fail independently and nothing is retried.
type Client interface {
	// Upload streams a source document into the remote system.
	Upload(ctx context.Context, r io.Reader) (Asset, error)

	// Submit creates a transformation job and returns its polling handle.
	Submit(ctx context.Context, spec JobSpec) (JobHandle, error)

	// Await polls the job until it completes, fails, or the bounded wait
	// elapses. It never blocks past the configured await timeout.
	Await(ctx context.Context, handle JobHandle) (Result, error)

	// Fetch opens the content stream of a result asset. The caller must
	// close the returned reader.
	Fetch(ctx context.Context, asset Asset) (io.ReadCloser, error)
}
