package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

// maxFilesPerUpload bounds a single multipart request.
const maxFilesPerUpload = 10

type DocumentHandler struct {
	svc      *services.DocumentService
	maxBytes int64
	log      logger.ILogger
}

func NewDocumentHandler(svc *services.DocumentService, maxBytes int, log logger.ILogger) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxBytes: int64(maxBytes), log: log}
}

// UploadDocuments accepts one or more PDFs under the "file" or "files" form fields.
func (h *DocumentHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFilesPerUpload*h.maxBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %w", services.ErrInvalidRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["file"]...)
	headers = append(headers, r.MultipartForm.File["files"]...)
	if len(headers) > maxFilesPerUpload {
		writeError(w, h.log, fmt.Errorf("%w: at most %d files per upload", services.ErrInvalidRequest, maxFilesPerUpload))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := h.read(fh)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		files = append(files, services.UploadFile{Filename: fh.Filename, Data: data})
	}

	res, err := h.svc.Upload(r.Context(), chi.URLParam(r, "session_id"), files)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("%d document(s) loaded", len(res.Loaded)), res)
}

// read returns at most maxBytes+1 bytes so the session can reject oversized files.
func (h *DocumentHandler) read(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, h.maxBytes+1))
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	docs, err := h.svc.List(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]interface{}{
		"session_id":      id,
		"documents":       docs,
		"total_documents": len(docs),
	})
}

func (h *DocumentHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	filename, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", services.ErrInvalidRequest, err))
		return
	}
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "session_id"), filename); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Document removed", map[string]string{"filename": filename})
}
