// Package httpapi exposes split jobs and downloads over HTTP with the form
// fields and JSON bodies existing clients of the service expect.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

const (
	DefaultMaxUploadBytes = 200 << 20

	// multipart parts beyond this are spooled to disk by net/http
	multipartMemory = 32 << 20
)

// FileLink is one entry of a split response.
type FileLink struct {
	Range       string `json:"range"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// SplitResponse is the success body of both split endpoints.
type SplitResponse struct {
	Message    string     `json:"message"`
	TotalPages int        `json:"total_pages"`
	Files      []FileLink `json:"files"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Handler serves the HTTP endpoints. It holds no per-request state.
type Handler struct {
	splitter       *operations.Splitter
	baseURL        string
	maxUploadBytes int64
	log            logger.Logger
}

// NewHandler creates a handler whose download links start with baseURL.
func NewHandler(splitter *operations.Splitter, baseURL string, maxUploadBytes int64, log logger.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		splitter:       splitter,
		baseURL:        strings.TrimRight(baseURL, "/"),
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Routes returns the endpoint mux wrapped in the CORS policy.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("POST /split-pdf-url/", h.HandleSplitURL)
	mux.HandleFunc("POST /split-pdf-upload/", h.HandleSplitUpload)
	mux.HandleFunc("GET /download/{name}", h.HandleDownload)
	return allowAllOrigins(mux)
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "PDF Splitter API is running."})
}

// HandleSplitURL splits the document behind the "url" form field.
func (h *Handler) HandleSplitURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := parseForm(r); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "missing form field: url")
		return
	}
	rangeInput, ok := formField(r, "ranges")
	if !ok {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "missing form field: ranges")
		return
	}

	h.split(w, r, models.SourceInfo{URL: url}, rangeInput)
}

// HandleSplitUpload splits the multipart "file" part.
func (h *Handler) HandleSplitUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.sendError(w, http.StatusRequestEntityTooLarge, "invalid_request", fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		h.sendError(w, http.StatusBadRequest, "invalid_request", "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "missing form field: file")
		return
	}
	defer file.Close()

	rangeInput, ok := formField(r, "ranges")
	if !ok {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "missing form field: ranges")
		return
	}

	// The declared type only allows an early rejection. The decoder decides.
	if !isPDFContentType(header.Header.Get("Content-Type")) {
		h.sendError(w, http.StatusBadRequest, apperr.KindAcquisition.String(), "Uploaded file is not a PDF.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "could not read uploaded file")
		return
	}

	h.split(w, r, models.SourceInfo{RawData: data}, rangeInput)
}

func (h *Handler) split(w http.ResponseWriter, r *http.Request, source models.SourceInfo, rangeInput string) {
	manifest, err := h.splitter.RunSplit(r.Context(), source, rangeInput)
	if err != nil {
		h.sendAppError(w, err)
		return
	}

	response := SplitResponse{
		Message:    operations.Describe(manifest),
		TotalPages: manifest.TotalPages,
		Files:      make([]FileLink, 0, len(manifest.Files)),
	}
	for _, f := range manifest.Files {
		response.Files = append(response.Files, FileLink{
			Range:       f.Range,
			Name:        f.Name,
			DownloadURL: h.baseURL + "/download/" + f.Name,
			Filename:    f.Filename,
		})
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleDownload streams a stored file as an attachment.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rc, artifact, filename, err := h.splitter.Download(name)
	if err != nil {
		h.sendAppError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", pdf.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, filename, artifact.CreatedAt, rs)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(artifact.Size))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("Download of %s interrupted: %v", name, err)
	}
}

// sendAppError maps an error kind to a status code and a caller-safe
// message.
func (h *Handler) sendAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindAcquisition:
		h.sendError(w, http.StatusBadRequest, kind.String(), apperr.DetailOf(err))
	case apperr.KindNoValidRanges:
		h.sendError(w, http.StatusBadRequest, kind.String(), "No valid page ranges specified.")
	case apperr.KindNotFound:
		h.sendError(w, http.StatusNotFound, kind.String(), "File not found or expired.")
	case apperr.KindDecode:
		h.log.Error("Split failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, kind.String(), "Error splitting PDF: "+apperr.DetailOf(err))
	case apperr.KindStorage:
		h.log.Error("Store failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, kind.String(), "Error saving split files.")
	default:
		h.log.Error("Unexpected error: %v", err)
		h.sendError(w, http.StatusInternalServerError, kind.String(), "internal error")
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, kind, detail string) {
	h.writeJSON(w, status, ErrorResponse{Error: kind, Detail: detail})
}

// writeJSON encodes value as JSON into w. Encoding failures mean the client
// went away, so they are only logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.log.Warn("Writing JSON response failed: %v", err)
	}
}

// parseForm accepts both urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

// formField distinguishes a missing field from an empty one; an empty
// ranges value is a valid request that yields no ranges.
func formField(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if v, ok := r.MultipartForm.Value[key]; ok && len(v) > 0 {
			return v[0], true
		}
	}
	if v, ok := r.PostForm[key]; ok && len(v) > 0 {
		return v[0], true
	}
	return "", false
}

func isPDFContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf")
}

func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				header.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
