package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/storage"
)

const uploadField = "file"

// FileSaver stores an upload and returns its public URL.
type FileSaver interface {
	Save(r io.Reader, filename string) (string, error)
}

// UploadHandler accepts photos and invoices for parts and comments.
type UploadHandler struct {
	files    FileSaver
	maxBytes int64
	log      *logrus.Entry
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(files FileSaver, maxBytes int64, log *logrus.Entry) *UploadHandler {
	return &UploadHandler{files: files, maxBytes: maxBytes, log: log.WithField("component", "uploads")}
}

// Upload stores the multipart field "file" and returns {"url": ...}.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		http.Error(w, "Multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.files.Save(file, header.Filename)
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, storage.ErrTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		h.log.WithError(err).WithField("filename", header.Filename).Error("Failed to store upload")
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	h.log.WithFields(logrus.Fields{"filename": header.Filename, "url": url}).Info("file uploaded")
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
