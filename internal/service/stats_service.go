package service

import (
	"context"
	"math"
	"time"

	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

const trendDays = 30

type TrendPoint struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Created int    `json:"created"`
	Closed  int    `json:"closed"`
}

type DashboardStats struct {
	TotalTasks        int            `json:"totalTasks"`
	OpenTasks         int            `json:"openTasks"`
	ClosedTasks       int            `json:"closedTasks"`
	ClosedThisWeek    int            `json:"closedThisWeek"`
	CreatedToday      int            `json:"createdToday"`
	ClosedToday       int            `json:"closedToday"`
	CategoryCounts    map[string]int `json:"categoryCounts"`
	HospitalCounts    map[string]int `json:"hospitalCounts"`
	AvgResolutionTime float64        `json:"avgResolutionTime"` // days
	TrendData         []TrendPoint   `json:"trendData"`
}

type StatsService struct {
	issues repository.IssueRepository
	now    func() time.Time // swappable in tests
}

func NewStatsService(issues repository.IssueRepository) *StatsService {
	return &StatsService{issues: issues, now: time.Now}
}

// Dashboard aggregates all issues in one pass: open/closed totals, counts by
// category and hospital, average resolution time, and a 30-day
// created/closed trend.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	issues, err := s.issues.All(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	oneWeekAgo := today.AddDate(0, 0, -7)
	oneDayAgo := today.AddDate(0, 0, -1)

	stats := &DashboardStats{
		TotalTasks:     len(issues),
		CategoryCounts: map[string]int{},
		HospitalCounts: map[string]int{},
	}

	trend := make(map[string]*TrendPoint, trendDays)
	for i := 0; i < trendDays; i++ {
		d := today.AddDate(0, 0, -(trendDays - 1 - i)).Format("2006-01-02")
		trend[d] = &TrendPoint{Date: d}
	}

	totalResolutionDays := 0
	resolvedCount := 0

	for i := range issues {
		is := &issues[i]
		if is.Closed() {
			stats.ClosedTasks++
		} else {
			stats.OpenTasks++
		}

		cat := is.Category
		if cat == "" {
			cat = "Other"
		}
		stats.CategoryCounts[cat]++

		hosp := is.HospitalUnit
		if hosp == "" {
			hosp = "Unknown"
		}
		stats.HospitalCounts[hosp]++

		logged, loggedOK := utils.ParseTime(is.DateLogged)
		closed, closedOK := utils.ParseTime(is.DateClosed)

		if closedOK {
			if !closed.Before(oneWeekAgo) {
				stats.ClosedThisWeek++
			}
			if !closed.Before(oneDayAgo) {
				stats.ClosedToday++
			}
			if loggedOK {
				totalResolutionDays += int(closed.Sub(logged).Hours() / 24)
				resolvedCount++
			}
			if p, ok := trend[closed.Format("2006-01-02")]; ok {
				p.Closed++
			}
		}
		if loggedOK && !logged.Before(oneDayAgo) {
			stats.CreatedToday++
			if p, ok := trend[logged.Format("2006-01-02")]; ok {
				p.Created++
			}
		}
	}

	if resolvedCount > 0 {
		avg := float64(totalResolutionDays) / float64(resolvedCount)
		stats.AvgResolutionTime = math.Round(avg*10) / 10
	}

	stats.TrendData = make([]TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		d := today.AddDate(0, 0, -(trendDays - 1 - i)).Format("2006-01-02")
		stats.TrendData = append(stats.TrendData, *trend[d])
	}
	return stats, nil
}
