package models

import "strings"

// Issue statuses. A non-empty DateClosed implies StatusClosed; the store
// normalizes rows where the two disagree.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// Issue is one trackable task logged against a hospital unit. All date fields
// are ISO-8601 strings, matching the on-disk CSV format; empty means unset.
type Issue struct {
	ID           string `json:"id"`
	HospitalUnit string `json:"hospitalUnit"`
	Zone         string `json:"zone"`
	Priority     string `json:"priority"`
	Category     string `json:"category"` // "Main" or "Main: Sub"
	TaskName     string `json:"taskName"`
	Description  string `json:"description"`
	MainOwner    string `json:"mainOwner"`
	CoOwners     string `json:"coOwners"` // comma-joined names
	DueDate      string `json:"dueDate"`
	Status       string `json:"status"`
	DateLogged   string `json:"dateLogged"`
	DateClosed   string `json:"dateClosed"`
	CreatedBy    string `json:"createdBy"`
	LastModified string `json:"lastModified"`
	LastModifiedBy string `json:"lastModifiedBy"`
	ResolvedBy   string `json:"resolvedBy"`
	StepsTaken   string `json:"stepsTaken"`
	ReviewNotes  string `json:"reviewNotes"`
}

// Closed reports whether the issue has been closed out.
func (i *Issue) Closed() bool { return i.DateClosed != "" }

// CoOwnerList splits the comma-joined co-owner names, dropping blanks.
func (i *Issue) CoOwnerList() []string {
	var out []string
	for _, p := range strings.Split(i.CoOwners, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OwnedBy reports whether name is the main owner or one of the co-owners.
func (i *Issue) OwnedBy(name string) bool {
	if name == "" {
		return false
	}
	if i.MainOwner == name {
		return true
	}
	for _, co := range i.CoOwnerList() {
		if co == name {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Comment struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	Timestamp   string `json:"timestamp"`
}

type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadURL"`
	UploadedBy  string `json:"uploadedBy"`
	Timestamp   string `json:"timestamp"`
}

type HistoryEntry struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}
