package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/anirudhmenon/resumatch/internal/ingest"
	"github.com/google/uuid"
)

// Uploads above this size are rejected per file before any job is created.
const maxFileBytes = 10 << 20

const maxMultipartMemory = 32 << 20

// Ingestor defines the dispatcher surface the ingestion handlers depend on.
type Ingestor interface {
	IngestUploads(ctx context.Context, ownerID uuid.UUID, files []ingest.UploadedFile, description string) (*ingest.BatchAck, error)
	IngestDriveFolder(ctx context.Context, ownerID uuid.UUID, folderID, token, description string) (*ingest.BatchAck, error)
	Reset(ctx context.Context, ownerID uuid.UUID) error
}

// NewUploadIngestHandler returns an http.HandlerFunc for POST /api/v1/ingest/upload.
// The request is multipart form data: one or more "files" parts plus a
// "description" field holding the job description to score against.
func NewUploadIngestHandler(d Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart form", nil)
			return
		}

		description := r.FormValue("description")
		if description == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "description is required", nil)
			return
		}

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "at least one file is required", nil)
			return
		}

		files := make([]ingest.UploadedFile, 0, len(headers))
		for _, fh := range headers {
			if fh.Size > maxFileBytes {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					"File exceeds the 10MB limit", map[string]string{"filename": fh.Filename})
				return
			}

			f, err := fh.Open()
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unreadable file part", nil)
				return
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unreadable file part", nil)
				return
			}

			files = append(files, ingest.UploadedFile{
				// Base strips any client-supplied directory components.
				Filename:  filepath.Base(fh.Filename),
				MediaType: fh.Header.Get("Content-Type"),
				Content:   content,
			})
		}

		ack, err := d.IngestUploads(r.Context(), userID, files, description)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to queue the batch", nil)
			return
		}

		response.Accepted(w, ack)
	}
}

// NewDriveIngestHandler returns an http.HandlerFunc for POST /api/v1/ingest/drive.
// The caller supplies a Drive folder id and a delegated OAuth token; listing
// failures reject the whole batch before any job is created.
func NewDriveIngestHandler(d Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		var req struct {
			FolderID    string `json:"folder_id"`
			GoogleToken string `json:"google_token"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.FolderID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "folder_id is required", nil)
			return
		}
		if req.GoogleToken == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "google_token is required", nil)
			return
		}
		if req.Description == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "description is required", nil)
			return
		}

		ack, err := d.IngestDriveFolder(r.Context(), userID, req.FolderID, req.GoogleToken, req.Description)
		if err != nil {
			response.Error(w, http.StatusBadGateway, "DRIVE_LISTING_FAILED",
				"Could not list the Drive folder", nil)
			return
		}

		response.Accepted(w, ack)
	}
}
