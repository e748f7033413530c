package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/csvstore"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

type IssueHTTP struct {
	issues   repository.IssueRepository
	users    repository.UserRepository
	settings repository.SettingsRepository
	log      zerolog.Logger
}

func NewIssueHTTP(issues repository.IssueRepository, users repository.UserRepository, settings repository.SettingsRepository, log zerolog.Logger) *IssueHTTP {
	return &IssueHTTP{issues: issues, users: users, settings: settings, log: log}
}

func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func actorName(r *http.Request) string {
	name, _ := utils.GetString(r.Context(), middleware.CtxName)
	if name == "" {
		name, _ = utils.GetString(r.Context(), middleware.CtxEmail)
	}
	return name
}

func filterFromQuery(r *http.Request) repository.IssueFilter {
	q := r.URL.Query()
	f := repository.IssueFilter{
		Q:        q.Get("q"),
		Category: q.Get("category"),
		Hospital: q.Get("hospital"),
		Zone:     q.Get("zone"),
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
		Page:     utils.QueryInt(q, "page", 1),
		PerPage:  utils.QueryInt(q, "per_page", 0),
		SortBy:   q.Get("sort_by"),
		SortDir:  q.Get("sort_dir"),
	}
	if utils.QueryBool(q, "my_tasks") {
		f.Owner, _ = utils.GetString(r.Context(), middleware.CtxName)
	}
	return f
}

// GET /api/issues
func (h *IssueHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, total, err := h.issues.List(r.Context(), filterFromQuery(r))
		if err != nil {
			h.log.Error().Err(err).Msg("list issues")
			utils.Error(w, http.StatusInternalServerError, "failed to list issues")
			return
		}
		if items == nil {
			items = []models.Issue{}
		}
		w.Header().Set("X-Total-Count", fmt.Sprintf("%d", total))
		utils.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
	}
}

type createIssueRequest struct {
	HospitalUnit     string `json:"hospitalUnit"`
	Zone             string `json:"zone"`
	Priority         string `json:"priority"`
	MainCategory     string `json:"mainCategory"`
	SubCategory      string `json:"subCategory"`
	OtherSubCategory string `json:"otherSubCategory"`
	TaskName         string `json:"taskName"`
	Description      string `json:"description"`
	MainOwner        string `json:"mainOwner"`
	CoOwner1         string `json:"coOwner1"`
	CoOwner2         string `json:"coOwner2"`
	DueDate          string `json:"dueDate"`
}

// composeCategory builds "Main" or "Main: Sub", preferring the free-text
// sub-category when the picker was set to Other.
func composeCategory(main, sub, other string) string {
	if strings.EqualFold(sub, "Other") && other != "" {
		sub = other
	}
	if sub == "" {
		return main
	}
	return main + ": " + sub
}

// POST /api/issues
func (h *IssueHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in createIssueRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.TaskName = strings.TrimSpace(in.TaskName)
		in.HospitalUnit = strings.TrimSpace(in.HospitalUnit)
		if in.TaskName == "" || in.HospitalUnit == "" {
			utils.Error(w, http.StatusBadRequest, "taskName and hospitalUnit are required")
			return
		}
		if in.Priority == "" {
			in.Priority = models.PriorityMedium
		}
		if !models.ValidPriority(in.Priority) {
			utils.Error(w, http.StatusBadRequest, "invalid priority")
			return
		}

		zone := in.Zone
		if zone == "" {
			if hs, err := h.settings.Hospitals(r.Context()); err == nil {
				for _, hos := range hs {
					if strings.EqualFold(hos.Name, in.HospitalUnit) {
						zone = hos.Zone
						break
					}
				}
			}
		}

		actor := actorName(r)
		now := utils.Now()
		var coOwners []string
		for _, co := range []string{in.CoOwner1, in.CoOwner2} {
			if co = strings.TrimSpace(co); co != "" {
				coOwners = append(coOwners, co)
			}
		}
		is := models.Issue{
			HospitalUnit:   in.HospitalUnit,
			Zone:           zone,
			Priority:       in.Priority,
			Category:       composeCategory(in.MainCategory, in.SubCategory, in.OtherSubCategory),
			TaskName:       in.TaskName,
			Description:    in.Description,
			MainOwner:      in.MainOwner,
			CoOwners:       strings.Join(coOwners, ", "),
			DueDate:        in.DueDate,
			Status:         models.StatusOpen,
			DateLogged:     now,
			CreatedBy:      actor,
			LastModified:   now,
			LastModifiedBy: actor,
		}
		if err := h.issues.Create(r.Context(), &is); err != nil {
			h.log.Error().Err(err).Msg("create issue")
			utils.Error(w, http.StatusInternalServerError, "failed to create issue")
			return
		}
		h.recordHistory(r, is.ID, fmt.Sprintf("created the task for %s.", is.HospitalUnit))
		utils.JSON(w, http.StatusCreated, is)
	}
}

type issueDetail struct {
	models.Issue
	Comments    []models.Comment      `json:"comments"`
	History     []models.HistoryEntry `json:"history"`
	Attachments []models.Attachment   `json:"attachments"`
}

// GET /api/issues/{id}
func (h *IssueHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathParam(r, "id")
		is, err := h.issues.Get(r.Context(), id)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load issue")
			return
		}
		if is == nil {
			utils.Error(w, http.StatusNotFound, "issue not found")
			return
		}

		detail := issueDetail{Issue: *is, Comments: []models.Comment{}, History: []models.HistoryEntry{}, Attachments: []models.Attachment{}}
		if cs, err := h.issues.Comments(r.Context(), id); err == nil && cs != nil {
			detail.Comments = h.backfillEmails(r, cs)
		}
		if hs, err := h.issues.History(r.Context(), id); err == nil && hs != nil {
			detail.History = hs
		}
		if as, err := h.issues.Attachments(r.Context(), id); err == nil && as != nil {
			detail.Attachments = as
		}
		utils.JSON(w, http.StatusOK, detail)
	}
}

// Older comment rows only carried the author name; resolve emails from the
// user list so the client can render avatars.
func (h *IssueHTTP) backfillEmails(r *http.Request, cs []models.Comment) []models.Comment {
	var byName map[string]string
	for i := range cs {
		if cs[i].AuthorEmail != "" || cs[i].AuthorName == "" {
			continue
		}
		if byName == nil {
			byName = map[string]string{}
			if users, err := h.users.List(r.Context()); err == nil {
				for _, u := range users {
					byName[u.Name] = u.Email
				}
			}
		}
		cs[i].AuthorEmail = byName[cs[i].AuthorName]
	}
	return cs
}

type updateIssueRequest struct {
	HospitalUnit *string `json:"hospitalUnit"`
	Zone         *string `json:"zone"`
	Priority     *string `json:"priority"`
	Category     *string `json:"category"`
	TaskName     *string `json:"taskName"`
	Description  *string `json:"description"`
	MainOwner    *string `json:"mainOwner"`
	CoOwners     *string `json:"coOwners"`
	DueDate      *string `json:"dueDate"`
	Status       *string `json:"status"`
	StepsTaken   *string `json:"stepsTaken"`
	ReviewNotes  *string `json:"reviewNotes"`
}

// PATCH /api/issues/{id}
func (h *IssueHTTP) Update() http.HandlerFunc {
	type change struct{ field, from, to string }
	apply := func(is *models.Issue, in updateIssueRequest) ([]change, error) {
		var changes []change
		set := func(field string, dst *string, src *string) {
			if src == nil || *src == *dst {
				return
			}
			changes = append(changes, change{field, *dst, *src})
			*dst = *src
		}
		if in.Priority != nil && !models.ValidPriority(*in.Priority) {
			return nil, errors.New("invalid priority")
		}
		if in.Status != nil && !models.ValidStatus(*in.Status) {
			return nil, errors.New("invalid status")
		}
		set("hospitalUnit", &is.HospitalUnit, in.HospitalUnit)
		set("zone", &is.Zone, in.Zone)
		set("priority", &is.Priority, in.Priority)
		set("category", &is.Category, in.Category)
		set("taskName", &is.TaskName, in.TaskName)
		set("description", &is.Description, in.Description)
		set("mainOwner", &is.MainOwner, in.MainOwner)
		set("coOwners", &is.CoOwners, in.CoOwners)
		set("dueDate", &is.DueDate, in.DueDate)
		set("status", &is.Status, in.Status)
		set("stepsTaken", &is.StepsTaken, in.StepsTaken)
		set("reviewNotes", &is.ReviewNotes, in.ReviewNotes)
		return changes, nil
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id := pathParam(r, "id")
		is, err := h.issues.Get(r.Context(), id)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load issue")
			return
		}
		if is == nil {
			utils.Error(w, http.StatusNotFound, "issue not found")
			return
		}

		var in updateIssueRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		changes, err := apply(is, in)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(changes) == 0 {
			utils.JSON(w, http.StatusOK, is)
			return
		}

		actor := actorName(r)
		now := utils.Now()
		is.LastModified = now
		is.LastModifiedBy = actor
		// Keep status and dateClosed in lockstep.
		if is.Status == models.StatusClosed && is.DateClosed == "" {
			is.DateClosed = now
			if is.ResolvedBy == "" {
				is.ResolvedBy = actor
			}
		}
		if is.Status != models.StatusClosed && is.DateClosed != "" {
			is.DateClosed = ""
			is.ResolvedBy = ""
		}

		if err := h.issues.Update(r.Context(), is); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.Error(w, http.StatusNotFound, "issue not found")
				return
			}
			h.log.Error().Err(err).Str("id", id).Msg("update issue")
			utils.Error(w, http.StatusInternalServerError, "failed to update issue")
			return
		}
		for _, c := range changes {
			h.recordHistory(r, id, fmt.Sprintf("changed %s from %q to %q.", c.field, c.from, c.to))
		}
		utils.JSON(w, http.StatusOK, is)
	}
}

// POST /api/issues/{id}/close
func (h *IssueHTTP) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathParam(r, "id")
		is, err := h.issues.Get(r.Context(), id)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load issue")
			return
		}
		if is == nil {
			utils.Error(w, http.StatusNotFound, "issue not found")
			return
		}
		if is.Closed() {
			utils.Error(w, http.StatusConflict, "issue is already closed")
			return
		}

		var in struct {
			StepsTaken  string `json:"stepsTaken"`
			ReviewNotes string `json:"reviewNotes"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&in)
		}

		actor := actorName(r)
		now := utils.Now()
		is.Status = models.StatusClosed
		is.DateClosed = now
		is.ResolvedBy = actor
		is.LastModified = now
		is.LastModifiedBy = actor
		if in.StepsTaken != "" {
			is.StepsTaken = in.StepsTaken
		}
		if in.ReviewNotes != "" {
			is.ReviewNotes = in.ReviewNotes
		}
		if err := h.issues.Update(r.Context(), is); err != nil {
			h.log.Error().Err(err).Str("id", id).Msg("close issue")
			utils.Error(w, http.StatusInternalServerError, "failed to close issue")
			return
		}
		h.recordHistory(r, id, "closed the task.")
		utils.JSON(w, http.StatusOK, is)
	}
}

// POST /api/issues/{id}/comments
func (h *IssueHTTP) AddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathParam(r, "id")
		is, err := h.issues.Get(r.Context(), id)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load issue")
			return
		}
		if is == nil {
			utils.Error(w, http.StatusNotFound, "issue not found")
			return
		}

		var in struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Text) == "" {
			utils.Error(w, http.StatusBadRequest, "comment text is required")
			return
		}

		email, _ := utils.GetString(r.Context(), middleware.CtxEmail)
		c := models.Comment{
			Text:        strings.TrimSpace(in.Text),
			AuthorName:  actorName(r),
			AuthorEmail: email,
		}
		if err := h.issues.AddComment(r.Context(), id, &c); err != nil {
			h.log.Error().Err(err).Str("id", id).Msg("add comment")
			utils.Error(w, http.StatusInternalServerError, "failed to add comment")
			return
		}

		is.LastModified = utils.Now()
		is.LastModifiedBy = c.AuthorName
		if err := h.issues.Update(r.Context(), is); err != nil {
			h.log.Warn().Err(err).Str("id", id).Msg("bump lastModified after comment")
		}
		utils.JSON(w, http.StatusCreated, c)
	}
}

// GET /api/issues/{id}/history
func (h *IssueHTTP) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathParam(r, "id")
		hs, err := h.issues.History(r.Context(), id)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		if hs == nil {
			hs = []models.HistoryEntry{}
		}
		utils.JSON(w, http.StatusOK, hs)
	}
}

// GET /api/issues/export streams the current filter as a CSV download.
func (h *IssueHTTP) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := filterFromQuery(r)
		f.Page = 1
		f.PerPage = 1 << 20 // everything that matches
		items, _, err := h.issues.List(r.Context(), f)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to export issues")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="issues.csv"`)
		if err := csvstore.WriteIssuesCSV(w, items); err != nil {
			h.log.Error().Err(err).Msg("write csv export")
		}
	}
}

func (h *IssueHTTP) recordHistory(r *http.Request, issueID, action string) {
	entry := models.HistoryEntry{User: actorName(r), Action: action}
	if err := h.issues.AddHistory(r.Context(), issueID, &entry); err != nil {
		h.log.Warn().Err(err).Str("id", issueID).Msg("record history")
	}
}
