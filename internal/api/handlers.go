package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pdfrelay/internal/apperr"
	"pdfrelay/internal/operation"
	"pdfrelay/internal/orchestrator"
)

const uploadField = "pdf"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// handleOperation builds the POST handler for one transformation kind.
// Every kind shares the same shape: upload guards, parameter parsing,
// one orchestrator run, one envelope.
func (s *Server) handleOperation(kind operation.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, cleanup, derr := s.receiveUpload(w, r)
		if derr != nil {
			s.writeError(w, derr)
			return
		}
		defer cleanup()

		req, err := parseParams(kind, r)
		if err != nil {
			s.writeError(w, apperr.Classify(err, genericFailure))
			return
		}

		result, err := s.runner.Run(r.Context(), doc, req)
		if err != nil {
			s.writeError(w, apperr.Classify(err, genericFailure))
			return
		}
		s.countServed(kind)

		data := map[string]any{
			"filePath":     s.downloadURL(result.Artifact.Name),
			"originalName": doc.OriginalName,
			"checksum":     result.Artifact.Checksum,
		}
		for k, v := range echoFields(req) {
			data[k] = v
		}
		s.writeSuccess(w, data)
	}
}

var genericFailure = apperr.New(apperr.CodeUploadFailed, http.StatusInternalServerError,
	"An error occurred while processing your request")

// receiveUpload enforces the upload guards (file present, PDF MIME
// type, size cap) and spools the part to a temp file the orchestrator
// can probe and re-read. cleanup removes the temp file and is non-nil
// whenever the returned error is nil.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (orchestrator.UploadedDocument, func(), *apperr.Error) {
	var doc orchestrator.UploadedDocument

	// Slack on top of the cap covers the other form fields and
	// multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return doc, nil, s.fileTooLarge()
		}
		return doc, nil, apperr.BadRequest(apperr.CodeFileMissing,
			"No PDF file uploaded. Please select a PDF file.")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return doc, nil, apperr.BadRequest(apperr.CodeFileMissing,
			"No PDF file uploaded. Please select a PDF file.")
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
		return doc, nil, apperr.BadRequest(apperr.CodeInvalidFileType,
			"Invalid file type. Please upload a PDF file.")
	}
	if header.Size > s.config.MaxUploadBytes {
		return doc, nil, s.fileTooLarge()
	}

	tmp, err := os.CreateTemp("", "pdfrelay-upload-*.pdf")
	if err != nil {
		s.logger.Error("failed to spool upload", "error", err)
		return doc, nil, apperr.New(apperr.CodeUploadFailed, http.StatusInternalServerError,
			"File upload failed. Please try again.")
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		s.logger.Error("failed to spool upload", "error", err)
		return doc, nil, apperr.New(apperr.CodeUploadFailed, http.StatusInternalServerError,
			"File upload failed. Please try again.")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return doc, nil, apperr.New(apperr.CodeUploadFailed, http.StatusInternalServerError,
			"File upload failed. Please try again.")
	}

	doc = orchestrator.UploadedDocument{
		Path:         tmp.Name(),
		OriginalName: header.Filename,
		MIMEType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	return doc, cleanup, nil
}

func (s *Server) fileTooLarge() *apperr.Error {
	maxMB := s.config.MaxUploadBytes / (1024 * 1024)
	return apperr.BadRequest(apperr.CodeFileTooLarge,
		fmt.Sprintf("File size exceeds the %dMB limit. Please upload a smaller file.", maxMB))
}

// handleDownload handles GET /result/{filename}: streams the artifact
// as an attachment, or 404 if it is absent or already expired.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	// The TTL is the contract, not the sweep tick: an artifact whose
	// deadline passed but which no sweep has collected yet is already
	// expired from the client's point of view.
	if s.expiry != nil {
		due, err := s.expiry.Due(r.Context(), name)
		if err != nil {
			s.logger.Error("failed to check artifact deadline", "artifact", name, "error", err)
		} else if due {
			s.writeError(w, apperr.New(apperr.CodeFileNotFound, http.StatusNotFound,
				"The requested file does not exist or has expired."))
			return
		}
	}

	f, size, err := s.artifacts.Open(name)
	if err != nil {
		s.writeError(w, apperr.New(apperr.CodeFileNotFound, http.StatusNotFound,
			"The requested file does not exist or has expired."))
		return
	}
	defer f.Close()

	ct := contentTypes[strings.ToLower(filepath.Ext(name))]
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Time{}, f)
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	live, err := s.artifacts.Count()
	if err != nil {
		s.logger.Error("failed to count artifacts", "error", err)
		s.writeError(w, apperr.New(apperr.CodeServerBusy, http.StatusInternalServerError,
			"failed to inspect artifact store"))
		return
	}
	pending := 0
	if s.expiry != nil {
		if pending, err = s.expiry.Pending(r.Context()); err != nil {
			s.logger.Error("failed to count pending expiries", "error", err)
		}
	}

	resp := HealthzResponse{
		Status:           "ok",
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		ArtifactsLive:    live,
		ExpiriesPending:  pending,
		OperationsServed: s.servedSnapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) downloadURL(name string) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/result/" + name
}

// writeSuccess writes the uniform 200 envelope.
func (s *Server) writeSuccess(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Status: "success", Data: data})
}

// writeError is the single place an error envelope is produced.
func (s *Server) writeError(w http.ResponseWriter, derr *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(derr.Status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Status:  "error",
		Message: derr.Message,
		Code:    string(derr.Code),
	})
}
