package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

const maxUploadBytes = 16 << 20

var allowedExtensions = map[string]bool{
	".txt": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

type AttachmentHTTP struct {
	issues repository.IssueRepository
	blobs  repository.BlobStore
	log    zerolog.Logger
}

func NewAttachmentHTTP(issues repository.IssueRepository, blobs repository.BlobStore, log zerolog.Logger) *AttachmentHTTP {
	return &AttachmentHTTP{issues: issues, blobs: blobs, log: log}
}

// POST /api/issues/{id}/attachments accepts a multipart upload in the "file" field.
func (h *AttachmentHTTP) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issueID := pathParam(r, "id")
		is, err := h.issues.Get(r.Context(), issueID)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load issue")
			return
		}
		if is == nil {
			utils.Error(w, http.StatusNotFound, "issue not found")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		name := utils.SecureFilename(header.Filename)
		if name == "" {
			utils.Error(w, http.StatusBadRequest, "invalid file name")
			return
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			utils.Error(w, http.StatusBadRequest, "file type not allowed")
			return
		}

		if err := h.blobs.SaveFile(r.Context(), issueID, name, file); err != nil {
			h.log.Error().Err(err).Str("id", issueID).Str("file", name).Msg("save attachment")
			utils.Error(w, http.StatusInternalServerError, "failed to save file")
			return
		}

		email, _ := utils.GetString(r.Context(), middleware.CtxEmail)
		a := models.Attachment{
			FileName:    name,
			DownloadURL: fmt.Sprintf("/attachments/%s/%s", issueID, name),
			UploadedBy:  email,
		}
		if err := h.issues.AddAttachment(r.Context(), issueID, &a); err != nil {
			h.log.Error().Err(err).Str("id", issueID).Msg("record attachment")
			utils.Error(w, http.StatusInternalServerError, "failed to record attachment")
			return
		}
		h.recordAttachmentHistory(r, issueID, fmt.Sprintf("uploaded attachment: %s.", name))
		utils.JSON(w, http.StatusCreated, a)
	}
}

// GET /attachments/{issueID}/{fileName}
func (h *AttachmentHTTP) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issueID := pathParam(r, "issueID")
		fileName := pathParam(r, "fileName")
		path, err := h.blobs.FilePath(r.Context(), issueID, fileName)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "file not found")
				return
			}
			utils.Error(w, http.StatusBadRequest, "invalid file name")
			return
		}
		http.ServeFile(w, r, path)
	}
}

// DELETE /api/issues/{id}/attachments/{attachmentID}. Admin only, wired in
// the router.
func (h *AttachmentHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issueID := pathParam(r, "id")
		attachmentID := pathParam(r, "attachmentID")
		if err := h.issues.DeleteAttachment(r.Context(), issueID, attachmentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "attachment not found")
				return
			}
			h.log.Error().Err(err).Str("id", issueID).Msg("delete attachment")
			utils.Error(w, http.StatusInternalServerError, "failed to delete attachment")
			return
		}
		h.recordAttachmentHistory(r, issueID, "deleted an attachment.")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *AttachmentHTTP) recordAttachmentHistory(r *http.Request, issueID, action string) {
	entry := models.HistoryEntry{User: actorName(r), Action: action}
	if err := h.issues.AddHistory(r.Context(), issueID, &entry); err != nil {
		h.log.Warn().Err(err).Str("id", issueID).Msg("record history")
	}
}
