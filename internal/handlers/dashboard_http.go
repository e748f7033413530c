package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/service"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

type DashboardHTTP struct {
	stats *service.StatsService
	log   zerolog.Logger
}

func NewDashboardHTTP(stats *service.StatsService, log zerolog.Logger) *DashboardHTTP {
	return &DashboardHTTP{stats: stats, log: log}
}

// GET /api/dashboard/stats
func (h *DashboardHTTP) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.stats.Dashboard(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("dashboard stats")
			utils.Error(w, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		utils.JSON(w, http.StatusOK, stats)
	}
}
