// Package firebase is the read-only legacy backend: the Firestore layout the
// tracker used before it moved to CSV files. It exists solely to feed the
// one-way import.
package firebase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

type Client struct {
	fs *firestore.Client
}

func Dial(ctx context.Context, projectID, credentialsFile string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore dial: %w", err)
	}
	return &Client{fs: fs}, nil
}

func (c *Client) Close() error { return c.fs.Close() }

// str pulls a string field out of a Firestore document map.
func str(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// isoTime normalizes Firestore timestamps (time.Time) and string dates to the
// CSV timestamp format.
func isoTime(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case time.Time:
		return utils.FormatTime(v)
	case string:
		return v
	default:
		return ""
	}
}

// joined flattens an array field to the comma-joined form the CSVs use.
func joined(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	case string:
		return v
	default:
		return ""
	}
}

func (c *Client) Issues(ctx context.Context) ([]models.Issue, error) {
	iter := c.fs.Collection("issues").Documents(ctx)
	defer iter.Stop()

	var out []models.Issue
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate issues: %w", err)
		}
		d := doc.Data()
		status := str(d, "status")
		if status == "" {
			status = models.StatusOpen
		}
		out = append(out, models.Issue{
			ID:             doc.Ref.ID,
			HospitalUnit:   str(d, "hospitalUnit"),
			Zone:           str(d, "zone"),
			Priority:       str(d, "priority"),
			Category:       str(d, "category"),
			TaskName:       str(d, "taskName"),
			Description:    str(d, "description"),
			MainOwner:      str(d, "mainOwner"),
			CoOwners:       joined(d, "coOwners"),
			DueDate:        isoTime(d, "dueDate"),
			Status:         status,
			DateLogged:     isoTime(d, "dateLogged"),
			DateClosed:     isoTime(d, "dateClosed"),
			CreatedBy:      str(d, "createdBy"),
			LastModified:   isoTime(d, "lastModified"),
			LastModifiedBy: str(d, "lastModifiedBy"),
			ResolvedBy:     str(d, "resolvedBy"),
			StepsTaken:     str(d, "stepsTaken"),
			ReviewNotes:    str(d, "reviewNotes"),
		})
	}
	return out, nil
}

func (c *Client) Comments(ctx context.Context, issueID string) ([]models.Comment, error) {
	iter := c.fs.Collection("issues").Doc(issueID).Collection("comments").Documents(ctx)
	defer iter.Stop()

	var out []models.Comment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate comments for %s: %w", issueID, err)
		}
		d := doc.Data()
		out = append(out, models.Comment{
			ID:          doc.Ref.ID,
			Text:        str(d, "text"),
			AuthorName:  str(d, "authorName"),
			AuthorEmail: str(d, "authorEmail"),
			Timestamp:   isoTime(d, "timestamp"),
		})
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, issueID string) ([]models.HistoryEntry, error) {
	iter := c.fs.Collection("issues").Doc(issueID).Collection("history").Documents(ctx)
	defer iter.Stop()

	var out []models.HistoryEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate history for %s: %w", issueID, err)
		}
		d := doc.Data()
		out = append(out, models.HistoryEntry{
			ID:        doc.Ref.ID,
			User:      str(d, "user"),
			Action:    str(d, "action"),
			Timestamp: isoTime(d, "timestamp"),
		})
	}
	return out, nil
}

func (c *Client) Attachments(ctx context.Context, issueID string) ([]models.Attachment, error) {
	iter := c.fs.Collection("issues").Doc(issueID).Collection("attachments").Documents(ctx)
	defer iter.Stop()

	var out []models.Attachment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate attachments for %s: %w", issueID, err)
		}
		d := doc.Data()
		out = append(out, models.Attachment{
			ID:          doc.Ref.ID,
			FileName:    str(d, "fileName"),
			DownloadURL: str(d, "downloadURL"),
			UploadedBy:  str(d, "uploadedBy"),
			Timestamp:   isoTime(d, "timestamp"),
		})
	}
	return out, nil
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	iter := c.fs.Collection("users").Documents(ctx)
	defer iter.Stop()

	var out []models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate users: %w", err)
		}
		d := doc.Data()
		role := str(d, "role")
		if role == "" {
			role = models.RoleMember
		}
		out = append(out, models.User{
			ID:                   doc.Ref.ID,
			Email:                str(d, "email"),
			Name:                 str(d, "name"),
			Role:                 role,
			GoogleChatWebhookURL: str(d, "googleChatWebhookUrl"),
		})
	}
	return out, nil
}

// Hospitals reads the settings/hospitals document's "list" array.
func (c *Client) Hospitals(ctx context.Context) ([]models.Hospital, error) {
	snap, err := c.fs.Doc("settings/hospitals").Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings/hospitals: %w", err)
	}
	raw, _ := snap.Data()["list"].([]any)
	out := make([]models.Hospital, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Hospital{Name: str(m, "name"), Zone: str(m, "zone")})
	}
	return out, nil
}

// TeamMembers reads the settings/teamMembers document's "members" array.
func (c *Client) TeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	snap, err := c.fs.Doc("settings/teamMembers").Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings/teamMembers: %w", err)
	}
	raw, _ := snap.Data()["members"].([]any)
	out := make([]models.TeamMember, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.TeamMember{UID: str(m, "uid"), Name: str(m, "name"), Email: str(m, "email")})
	}
	return out, nil
}
