package csvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIssueRepoCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewIssueRepo(newTestStore(t))

	first := models.Issue{TaskName: "Fix monitor", HospitalUnit: "Apollo", Status: models.StatusOpen, DateLogged: "2025-06-01T10:00:00Z"}
	require.NoError(t, repo.Create(ctx, &first))
	assert.Equal(t, "1", first.ID)

	second := models.Issue{TaskName: "Replace cable", HospitalUnit: "Fortis", Status: models.StatusOpen, DateLogged: "2025-06-02T10:00:00Z"}
	require.NoError(t, repo.Create(ctx, &second))
	assert.Equal(t, "2", second.ID)

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Fix monitor", got.TaskName)

	got.Priority = models.PriorityHigh
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)

	missing, err := repo.Get(ctx, "99")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Update(ctx, &models.Issue{ID: "99"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "1"))
	got, err = repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, repo.Delete(ctx, "1"), repository.ErrNotFound)
}

func TestCreateSkipsNonNumericIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.WriteIssuesRaw([]models.Issue{
		{ID: "fb-doc-abc123", TaskName: "Imported"},
		{ID: "7", TaskName: "Native"},
	}))

	repo := NewIssueRepo(s)
	is := models.Issue{TaskName: "New"}
	require.NoError(t, repo.Create(ctx, &is))
	assert.Equal(t, "8", is.ID)
}

func TestStatusNormalizedOnLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.WriteIssuesRaw([]models.Issue{
		{ID: "1", TaskName: "Stale", Status: models.StatusOpen, DateClosed: "2025-05-01T00:00:00Z"},
	}))

	got, err := NewIssueRepo(s).Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusClosed, got.Status)
}

func seedFilterIssues(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.WriteIssuesRaw([]models.Issue{
		{ID: "1", TaskName: "Ventilator alarm", Category: "Clinical: Equipment", HospitalUnit: "Apollo", Zone: "South", Priority: models.PriorityHigh, Status: models.StatusOpen, MainOwner: "Asha", DateLogged: "2025-06-01T08:00:00Z"},
		{ID: "2", TaskName: "Network drop", Category: "IT", HospitalUnit: "Fortis", Zone: "North", Priority: models.PriorityCritical, Status: models.StatusOpen, MainOwner: "Ravi", CoOwners: "Asha, Kiran", DateLogged: "2025-06-03T08:00:00Z"},
		{ID: "3", TaskName: "Billing mismatch", Category: "Clinical", HospitalUnit: "Apollo", Zone: "South", Priority: models.PriorityLow, Status: models.StatusClosed, MainOwner: "Asha", DateLogged: "2025-06-02T08:00:00Z", DateClosed: "2025-06-05T08:00:00Z"},
	}))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedFilterIssues(t, s)
	repo := NewIssueRepo(s)

	list := func(f repository.IssueFilter) []models.Issue {
		items, _, err := repo.List(ctx, f)
		require.NoError(t, err)
		return items
	}
	ids := func(items []models.Issue) []string {
		out := make([]string, len(items))
		for i, is := range items {
			out[i] = is.ID
		}
		return out
	}

	t.Run("substring search is case-insensitive", func(t *testing.T) {
		assert.Equal(t, []string{"2"}, ids(list(repository.IssueFilter{Q: "NETWORK"})))
	})

	t.Run("category matches main or prefixed sub", func(t *testing.T) {
		got := ids(list(repository.IssueFilter{Category: "Clinical"}))
		assert.ElementsMatch(t, []string{"1", "3"}, got)
	})

	t.Run("owner covers co-owners and skips closed", func(t *testing.T) {
		got := ids(list(repository.IssueFilter{Owner: "Asha"}))
		assert.ElementsMatch(t, []string{"1", "2"}, got)
	})

	t.Run("hospital and status", func(t *testing.T) {
		assert.Equal(t, []string{"3"}, ids(list(repository.IssueFilter{Hospital: "Apollo", Status: models.StatusClosed})))
	})

	t.Run("default sort is dateLogged desc", func(t *testing.T) {
		assert.Equal(t, []string{"2", "3", "1"}, ids(list(repository.IssueFilter{})))
	})

	t.Run("explicit asc sort by taskName", func(t *testing.T) {
		got := ids(list(repository.IssueFilter{SortBy: "taskName", SortDir: "asc"}))
		assert.Equal(t, []string{"3", "2", "1"}, got)
	})

	t.Run("pagination reports full total", func(t *testing.T) {
		items, total, err := repo.List(ctx, repository.IssueFilter{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, items, 1)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		items, total, err := repo.List(ctx, repository.IssueFilter{Page: 9, PerPage: 25})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, items)
	})
}

func TestDeleteRemovesSidecars(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewIssueRepo(s)

	is := models.Issue{TaskName: "With sidecars"}
	require.NoError(t, repo.Create(ctx, &is))
	require.NoError(t, repo.AddComment(ctx, is.ID, &models.Comment{Text: "note", AuthorName: "Asha"}))
	require.NoError(t, repo.AddHistory(ctx, is.ID, &models.HistoryEntry{User: "Asha", Action: "created the task."}))
	require.NoError(t, s.SaveFile(ctx, is.ID, "scan.pdf", strings.NewReader("payload")))
	require.NoError(t, repo.AddAttachment(ctx, is.ID, &models.Attachment{FileName: "scan.pdf"}))

	require.NoError(t, repo.Delete(ctx, is.ID))

	for _, p := range []string{
		s.commentsPath(is.ID),
		s.historyPath(is.ID),
		s.attachmentsPath(is.ID),
		filepath.Join(s.filesDir(), is.ID),
	} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "expected %s to be gone", p)
	}
}

func TestSubrecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := NewIssueRepo(s)

	t.Run("comments get sequential ids and timestamps", func(t *testing.T) {
		c1 := models.Comment{Text: "first", AuthorName: "Asha"}
		c2 := models.Comment{Text: "second", AuthorName: "Ravi"}
		require.NoError(t, repo.AddComment(ctx, "10", &c1))
		require.NoError(t, repo.AddComment(ctx, "10", &c2))
		assert.Equal(t, "1", c1.ID)
		assert.Equal(t, "2", c2.ID)
		assert.NotEmpty(t, c1.Timestamp)

		got, err := repo.Comments(ctx, "10")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Text)
	})

	t.Run("missing sidecar file reads as empty", func(t *testing.T) {
		got, err := repo.History(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete attachment removes row and payload", func(t *testing.T) {
		require.NoError(t, s.SaveFile(ctx, "11", "photo.png", strings.NewReader("img")))
		a := models.Attachment{FileName: "photo.png"}
		require.NoError(t, repo.AddAttachment(ctx, "11", &a))

		require.NoError(t, repo.DeleteAttachment(ctx, "11", a.ID))
		left, err := repo.Attachments(ctx, "11")
		require.NoError(t, err)
		assert.Empty(t, left)
		_, err = s.FilePath(ctx, "11", "photo.png")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete unknown attachment", func(t *testing.T) {
		err := repo.DeleteAttachment(ctx, "11", "42")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestFilePathRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveFile(ctx, "1", "ok.txt", strings.NewReader("x")))

	_, err := s.FilePath(ctx, "1", "../../users.csv")
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrNotFound))

	_, err = s.FilePath(ctx, "../1", "ok.txt")
	require.Error(t, err)

	p, err := s.FilePath(ctx, "1", "ok.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, filepath.Join("attachments", "files", "1", "ok.txt")))
}
