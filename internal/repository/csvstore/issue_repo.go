package csvstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

const defaultPerPage = 25

type IssueRepo struct{ s *Store }

func NewIssueRepo(s *Store) repository.IssueRepository { return &IssueRepo{s: s} }

func (r *IssueRepo) All(ctx context.Context) ([]models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.ensureIssuesLocked(); err != nil {
		return nil, err
	}
	out := make([]models.Issue, len(r.s.issues))
	copy(out, r.s.issues)
	return out, nil
}

func (r *IssueRepo) List(ctx context.Context, f repository.IssueFilter) ([]models.Issue, int, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.Issue, 0, len(all))
	for _, is := range all {
		if matches(&is, f) {
			matched = append(matched, is)
		}
	}
	sortIssues(matched, f.SortBy, f.SortDir)

	total := len(matched)
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= total {
		return []models.Issue{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matches(is *models.Issue, f repository.IssueFilter) bool {
	if f.Owner != "" {
		if !is.OwnedBy(f.Owner) || is.Status == models.StatusClosed {
			return false
		}
	}
	if f.Category != "" {
		if is.Category != f.Category && !strings.HasPrefix(is.Category, f.Category+": ") {
			return false
		}
	}
	if f.Hospital != "" && is.HospitalUnit != f.Hospital {
		return false
	}
	if f.Zone != "" && is.Zone != f.Zone {
		return false
	}
	if f.Priority != "" && is.Priority != f.Priority {
		return false
	}
	if f.Status != "" && is.Status != f.Status {
		return false
	}
	if f.Q != "" {
		q := strings.ToLower(f.Q)
		if !strings.Contains(strings.ToLower(is.TaskName), q) &&
			!strings.Contains(strings.ToLower(is.Description), q) &&
			!strings.Contains(strings.ToLower(is.HospitalUnit), q) &&
			!strings.Contains(strings.ToLower(is.Category), q) {
			return false
		}
	}
	return true
}

func issueField(is *models.Issue, col string) string {
	switch col {
	case "id":
		return is.ID
	case "hospitalUnit":
		return is.HospitalUnit
	case "zone":
		return is.Zone
	case "priority":
		return is.Priority
	case "category":
		return is.Category
	case "taskName":
		return is.TaskName
	case "mainOwner":
		return is.MainOwner
	case "dueDate":
		return is.DueDate
	case "status":
		return is.Status
	case "dateClosed":
		return is.DateClosed
	case "lastModified":
		return is.LastModified
	default:
		return is.DateLogged
	}
}

// sortIssues orders by the given column, comparing as timestamps when both
// sides parse and falling back to case-insensitive strings. Default is
// dateLogged descending.
func sortIssues(issues []models.Issue, by, dir string) {
	if by == "" {
		by = "dateLogged"
	}
	desc := dir != "asc"
	sort.SliceStable(issues, func(i, j int) bool {
		c := compareVals(issueField(&issues[i], by), issueField(&issues[j], by))
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareVals(a, b string) int {
	ta, okA := utils.ParseTime(a)
	tb, okB := utils.ParseTime(b)
	switch {
	case okA && okB:
		switch {
		case ta.Before(tb):
			return -1
		case tb.Before(ta):
			return 1
		}
		return 0
	case okA != okB:
		// Parseable timestamps sort after blanks/garbage.
		if okA {
			return 1
		}
		return -1
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}

func (r *IssueRepo) Get(ctx context.Context, id string) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.ensureIssuesLocked(); err != nil {
		return nil, err
	}
	for _, is := range r.s.issues {
		if is.ID == id {
			cp := is
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *IssueRepo) Create(ctx context.Context, is *models.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.ensureIssuesLocked(); err != nil {
		return err
	}
	is.ID = nextIssueID(r.s.issues)
	r.s.issues = append(r.s.issues, *is)
	return r.s.writeIssuesLocked()
}

func (r *IssueRepo) Update(ctx context.Context, is *models.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.ensureIssuesLocked(); err != nil {
		return err
	}
	for i := range r.s.issues {
		if r.s.issues[i].ID == is.ID {
			r.s.issues[i] = *is
			return r.s.writeIssuesLocked()
		}
	}
	return fmt.Errorf("issue %s: %w", is.ID, repository.ErrNotFound)
}

func (r *IssueRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.ensureIssuesLocked(); err != nil {
		return err
	}
	found := false
	kept := r.s.issues[:0]
	for _, is := range r.s.issues {
		if is.ID == id {
			found = true
			continue
		}
		kept = append(kept, is)
	}
	if !found {
		return fmt.Errorf("issue %s: %w", id, repository.ErrNotFound)
	}
	r.s.issues = kept
	if err := r.s.writeIssuesLocked(); err != nil {
		return err
	}
	return r.s.removeIssueSidecars(id)
}
