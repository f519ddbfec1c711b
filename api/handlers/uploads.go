package handlers

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/models"
)

// uploadField is the only multipart field name accepted for files
const uploadField = "file"

var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
}

// formOverhead leaves room for the text fields next to the file
const formOverhead = 1 << 20

// uploadMemory is how much of a multipart body is held in memory; larger
// files are spooled to temp files
const uploadMemory = 1 << 20

// receiveUpload parses a multipart request and returns the file sent under
// "file". On success the caller closes the file and calls removeUpload;
// on failure the temp files are already gone.
func receiveUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTooLarge(w, maxBytes)
			return nil, nil, "", false
		}
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return nil, nil, "", false
	}
	keep := false
	defer func() {
		if !keep {
			removeUpload(r)
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		for name := range r.MultipartForm.File {
			config.ErrorCode(http.StatusBadRequest, w, models.ErrorDetail{
				Code:    models.ErrCodeFieldNameMismatch,
				Message: fmt.Sprintf("file must be sent in the %q field, got %q", uploadField, name),
				Field:   name,
			})
			return nil, nil, "", false
		}
		config.ErrorStatus("no file uploaded", http.StatusBadRequest, w, nil)
		return nil, nil, "", false
	}
	header := headers[0]
	if header.Size > maxBytes {
		writeTooLarge(w, maxBytes)
		return nil, nil, "", false
	}

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || !allowedMimeTypes[mediaType] {
		config.ErrorCode(http.StatusBadRequest, w, models.ErrorDetail{
			Code:    models.ErrCodeUnsupportedType,
			Message: "only PDF, DOC, DOCX, JPEG and PNG files are allowed",
			Value:   header.Header.Get("Content-Type"),
		})
		return nil, nil, "", false
	}

	f, err := header.Open()
	if err != nil {
		config.ErrorStatus("failed to read uploaded file", http.StatusBadRequest, w, err)
		return nil, nil, "", false
	}
	keep = true
	return f, header, mediaType, true
}

// removeUpload deletes the temp files behind a parsed multipart form. The
// server only does this for the request it created, and handlers behind
// http.TimeoutHandler see a copy.
func removeUpload(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func writeTooLarge(w http.ResponseWriter, maxBytes int64) {
	config.ErrorCode(http.StatusBadRequest, w, models.ErrorDetail{
		Code:    models.ErrCodeFileTooLarge,
		Message: fmt.Sprintf("file exceeds the %d MB limit", maxBytes>>20),
	})
}

func writeNotConfigured(w http.ResponseWriter, feature string) {
	config.ErrorCode(http.StatusServiceUnavailable, w, models.ErrorDetail{
		Code:    models.ErrCodeNotConfigured,
		Message: feature + " is not configured",
	})
}
