package orchestrator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrelay/internal/apperr"
	"pdfrelay/internal/artifact"
	"pdfrelay/internal/expiry"
	"pdfrelay/internal/log"
	"pdfrelay/internal/operation"
	"pdfrelay/internal/pdfinfo"
	"pdfrelay/internal/provider"
)

// mockProvider implements provider.Client with scriptable failures and
// call recording.
type mockProvider struct {
	calls []string

	uploadErr error
	submitErr error
	awaitErr  error
	fetchErr  error

	output    string
	fetchBody *countingCloser
	lastJob   provider.JobSpec
}

func (m *mockProvider) Upload(ctx context.Context, r io.Reader) (provider.Asset, error) {
	m.calls = append(m.calls, "upload")
	if m.uploadErr != nil {
		return provider.Asset{}, m.uploadErr
	}
	// Drain the stream like a real transport would.
	_, _ = io.Copy(io.Discard, r)
	return provider.Asset{ID: "asset-1"}, nil
}

func (m *mockProvider) Submit(ctx context.Context, spec provider.JobSpec) (provider.JobHandle, error) {
	m.calls = append(m.calls, "submit")
	m.lastJob = spec
	if m.submitErr != nil {
		return provider.JobHandle{}, m.submitErr
	}
	return provider.JobHandle{ID: "job-1"}, nil
}

func (m *mockProvider) Await(ctx context.Context, handle provider.JobHandle) (provider.Result, error) {
	m.calls = append(m.calls, "await")
	if m.awaitErr != nil {
		return provider.Result{}, m.awaitErr
	}
	return provider.Result{Assets: []provider.Asset{{ID: "out-1"}}}, nil
}

func (m *mockProvider) Fetch(ctx context.Context, asset provider.Asset) (io.ReadCloser, error) {
	m.calls = append(m.calls, "fetch")
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	m.fetchBody = &countingCloser{Reader: strings.NewReader(m.output)}
	return m.fetchBody, nil
}

type countingCloser struct {
	io.Reader
	closes int
}

func (c *countingCloser) Close() error {
	c.closes++
	return nil
}

// fixedProber returns a canned Info for every path.
type fixedProber struct {
	info pdfinfo.Info
	err  error
}

func (p fixedProber) Inspect(string) (pdfinfo.Info, error) {
	return p.info, p.err
}

// recordingExpirer captures Schedule calls.
type recordingExpirer struct {
	entries []expiry.Entry
	err     error
}

func (e *recordingExpirer) Schedule(ctx context.Context, entry expiry.Entry) error {
	if e.err != nil {
		return e.err
	}
	e.entries = append(e.entries, entry)
	return nil
}

type fixture struct {
	orch    *Orchestrator
	client  *mockProvider
	store   *artifact.Store
	expirer *recordingExpirer
	doc     UploadedDocument
}

func newFixture(t *testing.T, info pdfinfo.Info) *fixture {
	t.Helper()

	store, err := artifact.NewStore(t.TempDir(), log.Get())
	require.NoError(t, err)

	srcPath := filepath.Join(t.TempDir(), "input.pdf")
	require.NoError(t, os.WriteFile(srcPath, []byte("%PDF-1.4 source"), 0o644))

	client := &mockProvider{output: "transformed bytes"}
	expirer := &recordingExpirer{}

	return &fixture{
		orch:    New(client, store, expirer, fixedProber{info: info}, 5*time.Minute, log.Get()),
		client:  client,
		store:   store,
		expirer: expirer,
		doc: UploadedDocument{
			Path:         srcPath,
			OriginalName: "report.pdf",
			MIMEType:     "application/pdf",
			Size:         15,
		},
	}
}

func domainErr(t *testing.T, err error) *apperr.Error {
	t.Helper()
	var derr *apperr.Error
	require.True(t, errors.As(err, &derr), "expected domain error, got %v", err)
	return derr
}

func TestRunCompressHappyPath(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 10})

	result, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:             operation.Compress,
		CompressionLevel: operation.CompressionHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"upload", "submit", "await", "fetch"}, fx.client.calls)
	assert.Equal(t, "compress", fx.client.lastJob.Operation)
	assert.Equal(t, "pdf", result.OutputExt)
	assert.True(t, strings.HasSuffix(result.Artifact.Name, ".pdf"))

	// Bytes are on disk before Run returns.
	written, err := os.ReadFile(result.Artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "transformed bytes", string(written))

	// Expiry armed from the persist timestamp.
	require.Len(t, fx.expirer.entries, 1)
	entry := fx.expirer.entries[0]
	assert.Equal(t, result.Artifact.Name, entry.Name)
	assert.Equal(t, result.Artifact.CreatedAt.Add(5*time.Minute), entry.ExpiresAt)

	// The fetched stream is closed exactly once.
	assert.Equal(t, 1, fx.client.fetchBody.closes)
}

func TestRunConvertImageProducesZip(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 2})

	result, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:         operation.Convert,
		ExportFormat: operation.FormatPNG,
	})
	require.NoError(t, err)
	assert.Equal(t, "zip", result.OutputExt)
	assert.True(t, strings.HasSuffix(result.Artifact.Name, ".zip"))
}

func TestRunRejectsBadParamsBeforeProvider(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 10})

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:     operation.Protect,
		Password: "short",
	})
	derr := domainErr(t, err)
	assert.Equal(t, apperr.CodeInvalidPassword, derr.Code)
	assert.Empty(t, fx.client.calls, "provider must not be touched")
}

func TestRunRejectsOutOfRangeSplitBeforeUpload(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 3})

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:     operation.Split,
		FromPage: 1,
		ToPage:   9,
	})
	derr := domainErr(t, err)
	assert.Equal(t, apperr.CodeInvalidPageRange, derr.Code)
	assert.Empty(t, fx.client.calls)
}

func TestRunUploadFailureClassified(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 1})
	fx.client.uploadErr = errors.New("connection reset by peer")

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:             operation.Compress,
		CompressionLevel: operation.CompressionHigh,
	})
	derr := domainErr(t, err)
	assert.Equal(t, apperr.CodeUploadFailed, derr.Code)
	assert.Equal(t, http.StatusInternalServerError, derr.Status)
}

func TestRunProviderFailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		awaitErr   string
		wantCode   apperr.Code
		wantStatus int
	}{
		{"quota", "status 429: quota exceeded", apperr.CodeQuotaExceeded, http.StatusTooManyRequests},
		{"timeout", "job job-1 timed out after 2m0s", apperr.CodeOperationTimeout, http.StatusRequestTimeout},
		{"unrecognized", "inexplicable remote hiccup", apperr.CodeCompressionFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, pdfinfo.Info{PageCount: 1})
			fx.client.awaitErr = errors.New(tt.awaitErr)

			_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
				Kind:             operation.Compress,
				CompressionLevel: operation.CompressionHigh,
			})
			derr := domainErr(t, err)
			assert.Equal(t, tt.wantCode, derr.Code)
			assert.Equal(t, tt.wantStatus, derr.Status)
		})
	}
}

func TestRunMissingSourceFile(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 1})
	fx.doc.Path = filepath.Join(t.TempDir(), "vanished.pdf")

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:             operation.Compress,
		CompressionLevel: operation.CompressionHigh,
	})
	derr := domainErr(t, err)
	assert.Equal(t, apperr.CodeFileNotFound, derr.Code)
}

func TestRunTwiceYieldsDistinctArtifacts(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 1})
	req := operation.Request{Kind: operation.Compress, CompressionLevel: operation.CompressionHigh}

	first, err := fx.orch.Run(context.Background(), fx.doc, req)
	require.NoError(t, err)
	second, err := fx.orch.Run(context.Background(), fx.doc, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Artifact.Name, second.Artifact.Name)

	for _, name := range []string{first.Artifact.Name, second.Artifact.Name} {
		f, _, err := fx.store.Open(name)
		require.NoError(t, err)
		f.Close()
	}
}

func TestRunRemovesArtifactWhenExpiryCannotBeArmed(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{PageCount: 1})
	fx.expirer.err = errors.New("state database is locked")

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:             operation.Compress,
		CompressionLevel: operation.CompressionHigh,
	})
	require.Error(t, err)

	// No unexpiring artifact may survive.
	n, err := fx.store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunEncryptedDocumentPrechecks(t *testing.T) {
	fx := newFixture(t, pdfinfo.Info{Encrypted: true})

	_, err := fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:             operation.Compress,
		CompressionLevel: operation.CompressionHigh,
	})
	assert.Equal(t, apperr.CodePDFProtected, domainErr(t, err).Code)

	_, err = fx.orch.Run(context.Background(), fx.doc, operation.Request{
		Kind:     operation.Protect,
		Password: "hunter2!",
	})
	assert.Equal(t, apperr.CodeAlreadyProtected, domainErr(t, err).Code)
	assert.Empty(t, fx.client.calls)
}
