package csvstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

// Per-issue sidecar files: comments/{id}.csv, history/{id}.csv,
// attachments/{id}.csv, plus raw payloads under attachments/files/{id}/.

func (r *IssueRepo) Comments(ctx context.Context, issueID string) ([]models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.commentsPath(issueID))
	if err != nil {
		return nil, err
	}
	out := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Comment{
			ID:          row["id"],
			Text:        row["text"],
			AuthorName:  row["authorName"],
			AuthorEmail: row["authorEmail"],
			Timestamp:   row["timestamp"],
		})
	}
	return out, nil
}

func (r *IssueRepo) AddComment(ctx context.Context, issueID string, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	path := r.s.commentsPath(issueID)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	c.ID = nextID(rows)
	if c.Timestamp == "" {
		c.Timestamp = utils.Now()
	}
	rows = append(rows, map[string]string{
		"id": c.ID, "text": c.Text, "authorName": c.AuthorName,
		"authorEmail": c.AuthorEmail, "timestamp": c.Timestamp,
	})
	return writeRows(path, commentHeaders, rows)
}

func (r *IssueRepo) History(ctx context.Context, issueID string) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.historyPath(issueID))
	if err != nil {
		return nil, err
	}
	out := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.HistoryEntry{
			ID:        row["id"],
			User:      row["user"],
			Action:    row["action"],
			Timestamp: row["timestamp"],
		})
	}
	return out, nil
}

func (r *IssueRepo) AddHistory(ctx context.Context, issueID string, h *models.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	path := r.s.historyPath(issueID)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	h.ID = nextID(rows)
	if h.Timestamp == "" {
		h.Timestamp = utils.Now()
	}
	rows = append(rows, map[string]string{
		"id": h.ID, "user": h.User, "action": h.Action, "timestamp": h.Timestamp,
	})
	return writeRows(path, historyHeaders, rows)
}

func (r *IssueRepo) Attachments(ctx context.Context, issueID string) ([]models.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.attachmentsPath(issueID))
	if err != nil {
		return nil, err
	}
	out := make([]models.Attachment, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Attachment{
			ID:          row["id"],
			FileName:    row["fileName"],
			DownloadURL: row["downloadURL"],
			UploadedBy:  row["uploadedBy"],
			Timestamp:   row["timestamp"],
		})
	}
	return out, nil
}

func (r *IssueRepo) AddAttachment(ctx context.Context, issueID string, a *models.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	path := r.s.attachmentsPath(issueID)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	a.ID = nextID(rows)
	if a.Timestamp == "" {
		a.Timestamp = utils.Now()
	}
	rows = append(rows, map[string]string{
		"id": a.ID, "fileName": a.FileName, "downloadURL": a.DownloadURL,
		"uploadedBy": a.UploadedBy, "timestamp": a.Timestamp,
	})
	return writeRows(path, attachmentHeaders, rows)
}

func (r *IssueRepo) DeleteAttachment(ctx context.Context, issueID, attachmentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	path := r.s.attachmentsPath(issueID)
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	var fileName string
	found := false
	kept := rows[:0]
	for _, row := range rows {
		if row["id"] == attachmentID {
			found = true
			fileName = row["fileName"]
			continue
		}
		kept = append(kept, row)
	}
	if !found {
		return fmt.Errorf("attachment %s: %w", attachmentID, repository.ErrNotFound)
	}
	if err := writeRows(path, attachmentHeaders, kept); err != nil {
		return err
	}
	if p, err := r.s.safeFilePath(issueID, fileName); err == nil {
		_ = os.Remove(p)
	}
	return nil
}

// removeIssueSidecars deletes the per-issue CSVs and payload dir; callers
// hold the write lock.
func (s *Store) removeIssueSidecars(issueID string) error {
	for _, p := range []string{s.commentsPath(issueID), s.historyPath(issueID), s.attachmentsPath(issueID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.RemoveAll(filepath.Join(s.filesDir(), issueID))
}

// --- BlobStore ---

func (s *Store) safeFilePath(issueID, fileName string) (string, error) {
	if issueID == "" || strings.ContainsAny(issueID, `/\`) {
		return "", fmt.Errorf("invalid issue id %q", issueID)
	}
	base := filepath.Base(fileName)
	if base == "" || base == "." || base == ".." || base != fileName {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return filepath.Join(s.filesDir(), issueID, base), nil
}

func (s *Store) SaveFile(ctx context.Context, issueID, fileName string, r io.Reader) error {
	path, err := s.safeFilePath(issueID, fileName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) FilePath(ctx context.Context, issueID, fileName string) (string, error) {
	path, err := s.safeFilePath(issueID, fileName)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s/%s: %w", issueID, fileName, repository.ErrNotFound)
		}
		return "", err
	}
	return path, nil
}

func (s *Store) RemoveFile(ctx context.Context, issueID, fileName string) error {
	path, err := s.safeFilePath(issueID, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
