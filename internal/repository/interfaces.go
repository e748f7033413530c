package repository

import (
	"context"
	"errors"
	"io"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

// ErrNotFound is returned by mutations that target a missing record. Lookups
// return (nil, nil) for a miss.
var ErrNotFound = errors.New("record not found")

type IssueRepository interface {
	// List applies the filter and returns one page plus the total match count.
	List(ctx context.Context, f IssueFilter) ([]models.Issue, int, error)
	// All returns every issue, unfiltered, in file order.
	All(ctx context.Context) ([]models.Issue, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	Create(ctx context.Context, is *models.Issue) error
	Update(ctx context.Context, is *models.Issue) error
	// Delete removes the issue and its comments, history and attachments.
	Delete(ctx context.Context, id string) error

	Comments(ctx context.Context, issueID string) ([]models.Comment, error)
	AddComment(ctx context.Context, issueID string, c *models.Comment) error
	History(ctx context.Context, issueID string) ([]models.HistoryEntry, error)
	AddHistory(ctx context.Context, issueID string, h *models.HistoryEntry) error
	Attachments(ctx context.Context, issueID string) ([]models.Attachment, error)
	AddAttachment(ctx context.Context, issueID string, a *models.Attachment) error
	DeleteAttachment(ctx context.Context, issueID, attachmentID string) error
}

type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Upsert matches by email; a new user gets the next sequential id.
	Upsert(ctx context.Context, u *models.User) error
}

type SettingsRepository interface {
	Hospitals(ctx context.Context) ([]models.Hospital, error)
	SaveHospitals(ctx context.Context, hs []models.Hospital) error
	TeamMembers(ctx context.Context) ([]models.TeamMember, error)
	SaveTeamMembers(ctx context.Context, tms []models.TeamMember) error
	Categories(ctx context.Context) (models.CategoryMap, error)
	SaveCategories(ctx context.Context, cats models.CategoryMap) error
}

// BlobStore holds attachment payloads keyed by issue id and file name.
type BlobStore interface {
	SaveFile(ctx context.Context, issueID, fileName string, r io.Reader) error
	// FilePath returns the on-disk path, or an error if the name escapes the
	// issue's directory or the file does not exist.
	FilePath(ctx context.Context, issueID, fileName string) (string, error)
	RemoveFile(ctx context.Context, issueID, fileName string) error
}
