package csvstore

import (
	"encoding/csv"
	"io"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

// WriteIssuesCSV streams issues as CSV in the canonical column order, header
// first. Used by the export endpoint so downloads match the on-disk layout.
func WriteIssuesCSV(w io.Writer, issues []models.Issue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(issueHeaders); err != nil {
		return err
	}
	rec := make([]string, len(issueHeaders))
	for _, is := range issues {
		row := issueToRow(is)
		for i, col := range issueHeaders {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
