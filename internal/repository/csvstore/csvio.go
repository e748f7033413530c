package csvstore

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

// Header orders match the files written by the original deployment; readers
// elsewhere (spreadsheets, the export endpoint) rely on them.
var (
	issueHeaders = []string{
		"id", "hospitalUnit", "zone", "priority", "category", "taskName",
		"description", "mainOwner", "coOwners", "dueDate", "status",
		"dateLogged", "dateClosed", "createdBy", "lastModified",
		"lastModifiedBy", "resolvedBy", "stepsTaken", "reviewNotes",
	}
	userHeaders       = []string{"id", "email", "name", "role", "googleChatWebhookUrl"}
	hospitalHeaders   = []string{"name", "zone"}
	teamHeaders       = []string{"uid", "name", "email"}
	commentHeaders    = []string{"id", "text", "authorName", "authorEmail", "timestamp"}
	historyHeaders    = []string{"id", "user", "action", "timestamp"}
	attachmentHeaders = []string{"id", "fileName", "downloadURL", "uploadedBy", "timestamp"}
)

// readRows reads a header-first CSV into row maps. A missing file is an empty
// collection, not an error.
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeRows rewrites the file via temp-and-rename so a crash mid-write never
// leaves a truncated CSV behind.
func writeRows(path string, headers []string, rows []map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".csv-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(headers); err != nil {
		tmp.Close()
		return err
	}
	rec := make([]string, len(headers))
	for _, row := range rows {
		for i, col := range headers {
			rec[i] = row[col]
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// nextID returns max(numeric ids)+1, starting at 1. Non-numeric ids (imported
// Firestore document ids) are skipped, matching the original behavior.
func nextID(rows []map[string]string) string {
	max := 0
	for _, row := range rows {
		if n, err := strconv.Atoi(row["id"]); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

func nextIssueID(issues []models.Issue) string {
	max := 0
	for _, is := range issues {
		if n, err := strconv.Atoi(is.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

func issueFromRow(row map[string]string) models.Issue {
	return models.Issue{
		ID:             row["id"],
		HospitalUnit:   row["hospitalUnit"],
		Zone:           row["zone"],
		Priority:       row["priority"],
		Category:       row["category"],
		TaskName:       row["taskName"],
		Description:    row["description"],
		MainOwner:      row["mainOwner"],
		CoOwners:       row["coOwners"],
		DueDate:        row["dueDate"],
		Status:         row["status"],
		DateLogged:     row["dateLogged"],
		DateClosed:     row["dateClosed"],
		CreatedBy:      row["createdBy"],
		LastModified:   row["lastModified"],
		LastModifiedBy: row["lastModifiedBy"],
		ResolvedBy:     row["resolvedBy"],
		StepsTaken:     row["stepsTaken"],
		ReviewNotes:    row["reviewNotes"],
	}
}

func issueToRow(is models.Issue) map[string]string {
	return map[string]string{
		"id":             is.ID,
		"hospitalUnit":   is.HospitalUnit,
		"zone":           is.Zone,
		"priority":       is.Priority,
		"category":       is.Category,
		"taskName":       is.TaskName,
		"description":    is.Description,
		"mainOwner":      is.MainOwner,
		"coOwners":       is.CoOwners,
		"dueDate":        is.DueDate,
		"status":         is.Status,
		"dateLogged":     is.DateLogged,
		"dateClosed":     is.DateClosed,
		"createdBy":      is.CreatedBy,
		"lastModified":   is.LastModified,
		"lastModifiedBy": is.LastModifiedBy,
		"resolvedBy":     is.ResolvedBy,
		"stepsTaken":     is.StepsTaken,
		"reviewNotes":    is.ReviewNotes,
	}
}
