package csvstore

import (
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

// Raw bulk writers used by the Firestore import. Unlike the repo methods
// these keep the ids they are given (Firestore document ids) and replace
// whole files.

func (s *Store) WriteIssuesRaw(issues []models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(issues))
	for i, is := range issues {
		rows[i] = issueToRow(is)
	}
	s.loaded = false
	return writeRows(s.issuesPath(), issueHeaders, rows)
}

func (s *Store) WriteUsersRaw(users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(users))
	for i, u := range users {
		rows[i] = userToRow(u)
	}
	return writeRows(s.usersPath(), userHeaders, rows)
}

func (s *Store) WriteHospitalsRaw(hs []models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(hs))
	for i, h := range hs {
		rows[i] = map[string]string{"name": h.Name, "zone": h.Zone}
	}
	return writeRows(s.hospitalsPath(), hospitalHeaders, rows)
}

func (s *Store) WriteTeamMembersRaw(tms []models.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(tms))
	for i, tm := range tms {
		rows[i] = map[string]string{"uid": tm.UID, "name": tm.Name, "email": tm.Email}
	}
	return writeRows(s.teamPath(), teamHeaders, rows)
}

func (s *Store) WriteCommentsRaw(issueID string, cs []models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(cs))
	for i, c := range cs {
		rows[i] = map[string]string{
			"id": c.ID, "text": c.Text, "authorName": c.AuthorName,
			"authorEmail": c.AuthorEmail, "timestamp": c.Timestamp,
		}
	}
	return writeRows(s.commentsPath(issueID), commentHeaders, rows)
}

func (s *Store) WriteHistoryRaw(issueID string, hs []models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(hs))
	for i, h := range hs {
		rows[i] = map[string]string{
			"id": h.ID, "user": h.User, "action": h.Action, "timestamp": h.Timestamp,
		}
	}
	return writeRows(s.historyPath(issueID), historyHeaders, rows)
}

func (s *Store) WriteAttachmentsRaw(issueID string, as []models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]string, len(as))
	for i, a := range as {
		rows[i] = map[string]string{
			"id": a.ID, "fileName": a.FileName, "downloadURL": a.DownloadURL,
			"uploadedBy": a.UploadedBy, "timestamp": a.Timestamp,
		}
	}
	return writeRows(s.attachmentsPath(issueID), attachmentHeaders, rows)
}

func (s *Store) AttachmentsRaw(issueID string) ([]models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := readRows(s.attachmentsPath(issueID))
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
