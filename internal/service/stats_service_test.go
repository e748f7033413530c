package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
)

type stubIssueRepo struct {
	repository.IssueRepository
	issues []models.Issue
}

func (s *stubIssueRepo) All(ctx context.Context) ([]models.Issue, error) {
	return s.issues, nil
}

func TestDashboardStats(t *testing.T) {
	// Fixed clock: noon on 2025-06-15.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	issues := []models.Issue{
		{ID: "1", Category: "Clinical: Equipment", HospitalUnit: "Apollo",
			DateLogged: "2025-06-15T09:00:00Z", Status: models.StatusOpen},
		{ID: "2", Category: "IT", HospitalUnit: "Fortis",
			DateLogged: "2025-06-01T09:00:00Z", DateClosed: "2025-06-11T09:00:00Z", Status: models.StatusClosed},
		{ID: "3", Category: "IT", HospitalUnit: "Apollo",
			DateLogged: "2025-06-10T09:00:00Z", DateClosed: "2025-06-14T09:00:00Z", Status: models.StatusClosed},
		{ID: "4", HospitalUnit: "",
			DateLogged: "2025-04-01T09:00:00Z", Status: models.StatusOpen},
	}

	svc := NewStatsService(&stubIssueRepo{issues: issues})
	svc.now = func() time.Time { return now }

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalTasks)
	assert.Equal(t, 2, stats.OpenTasks)
	assert.Equal(t, 2, stats.ClosedTasks)
	assert.Equal(t, 2, stats.ClosedThisWeek)
	assert.Equal(t, 1, stats.ClosedToday, "closed within the last day")
	assert.Equal(t, 1, stats.CreatedToday)

	assert.Equal(t, map[string]int{"Clinical: Equipment": 1, "IT": 2, "Other": 1}, stats.CategoryCounts)
	assert.Equal(t, map[string]int{"Apollo": 2, "Fortis": 1, "Unknown": 1}, stats.HospitalCounts)

	// (10 + 4) / 2 resolved issues
	assert.InDelta(t, 7.0, stats.AvgResolutionTime, 0.01)

	require.Len(t, stats.TrendData, 30)
	assert.Equal(t, "2025-06-15", stats.TrendData[29].Date)
	assert.Equal(t, 1, stats.TrendData[29].Created)
	assert.Equal(t, 0, stats.TrendData[29].Closed)
	assert.Equal(t, "2025-06-14", stats.TrendData[28].Date)
	assert.Equal(t, 1, stats.TrendData[28].Closed)
}

func TestDashboardStatsEmpty(t *testing.T) {
	svc := NewStatsService(&stubIssueRepo{})
	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTasks)
	assert.Zero(t, stats.AvgResolutionTime)
	assert.Len(t, stats.TrendData, 30)
}
