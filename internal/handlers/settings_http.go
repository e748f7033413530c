package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sanathkumar-crypto/issue-tracker/internal/middleware"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

type SettingsHTTP struct {
	settings repository.SettingsRepository
	users    repository.UserRepository
	log      zerolog.Logger
}

func NewSettingsHTTP(settings repository.SettingsRepository, users repository.UserRepository, log zerolog.Logger) *SettingsHTTP {
	return &SettingsHTTP{settings: settings, users: users, log: log}
}

// --- hospitals ---

// GET /api/settings/hospitals
func (h *SettingsHTTP) ListHospitals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hs, err := h.settings.Hospitals(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load hospitals")
			return
		}
		if hs == nil {
			hs = []models.Hospital{}
		}
		utils.JSON(w, http.StatusOK, hs)
	}
}

// POST /api/settings/hospitals
func (h *SettingsHTTP) AddHospital() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.Hospital
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			utils.Error(w, http.StatusBadRequest, "hospital name is required")
			return
		}
		hs, err := h.settings.Hospitals(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load hospitals")
			return
		}
		for _, existing := range hs {
			if strings.EqualFold(existing.Name, in.Name) {
				utils.Error(w, http.StatusConflict, "hospital already exists")
				return
			}
		}
		hs = append(hs, in)
		if err := h.settings.SaveHospitals(r.Context(), hs); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save hospitals")
			return
		}
		utils.JSON(w, http.StatusCreated, in)
	}
}

// PUT /api/settings/hospitals/{name}
func (h *SettingsHTTP) UpdateHospital() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := pathParam(r, "name")
		var in models.Hospital
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		hs, err := h.settings.Hospitals(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load hospitals")
			return
		}
		idx := -1
		for i, existing := range hs {
			if strings.EqualFold(existing.Name, name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			utils.Error(w, http.StatusNotFound, "hospital not found")
			return
		}
		if in.Name = strings.TrimSpace(in.Name); in.Name != "" {
			for i, existing := range hs {
				if i != idx && strings.EqualFold(existing.Name, in.Name) {
					utils.Error(w, http.StatusConflict, "hospital already exists")
					return
				}
			}
			hs[idx].Name = in.Name
		}
		hs[idx].Zone = in.Zone
		if err := h.settings.SaveHospitals(r.Context(), hs); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save hospitals")
			return
		}
		utils.JSON(w, http.StatusOK, hs[idx])
	}
}

// DELETE /api/settings/hospitals/{name}
func (h *SettingsHTTP) DeleteHospital() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := pathParam(r, "name")
		hs, err := h.settings.Hospitals(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load hospitals")
			return
		}
		kept := hs[:0]
		for _, existing := range hs {
			if !strings.EqualFold(existing.Name, name) {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(hs) {
			utils.Error(w, http.StatusNotFound, "hospital not found")
			return
		}
		if err := h.settings.SaveHospitals(r.Context(), kept); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save hospitals")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/settings/hospitals/bulk. Body: {"text": "name[,zone]\n..."}.
func (h *SettingsHTTP) BulkAddHospitals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		hs, err := h.settings.Hospitals(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load hospitals")
			return
		}
		seen := make(map[string]bool, len(hs))
		for _, existing := range hs {
			seen[strings.ToLower(existing.Name)] = true
		}

		added, skipped := 0, 0
		for _, line := range strings.Split(in.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			name, zone := line, ""
			if i := strings.Index(line, ","); i >= 0 {
				name = strings.TrimSpace(line[:i])
				zone = strings.TrimSpace(line[i+1:])
			}
			if name == "" || seen[strings.ToLower(name)] {
				skipped++
				continue
			}
			seen[strings.ToLower(name)] = true
			hs = append(hs, models.Hospital{Name: name, Zone: zone})
			added++
		}
		if added > 0 {
			if err := h.settings.SaveHospitals(r.Context(), hs); err != nil {
				utils.Error(w, http.StatusInternalServerError, "failed to save hospitals")
				return
			}
		}
		utils.JSON(w, http.StatusOK, map[string]int{"added": added, "skipped": skipped})
	}
}

// --- team members ---

// GET /api/settings/team
func (h *SettingsHTTP) ListTeam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tms, err := h.settings.TeamMembers(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load team members")
			return
		}
		if tms == nil {
			tms = []models.TeamMember{}
		}
		utils.JSON(w, http.StatusOK, tms)
	}
}

// POST /api/settings/team adds a registered user to the roster by email.
func (h *SettingsHTTP) AddTeamMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Email) == "" {
			utils.Error(w, http.StatusBadRequest, "email is required")
			return
		}
		u, err := h.users.GetByEmail(r.Context(), strings.TrimSpace(in.Email))
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to look up user")
			return
		}
		if u == nil {
			utils.Error(w, http.StatusNotFound, "no user with that email")
			return
		}
		tms, err := h.settings.TeamMembers(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load team members")
			return
		}
		for _, tm := range tms {
			if strings.EqualFold(tm.Email, u.Email) {
				utils.Error(w, http.StatusConflict, "already a team member")
				return
			}
		}
		tm := models.TeamMember{UID: u.ID, Name: u.Name, Email: u.Email}
		tms = append(tms, tm)
		if err := h.settings.SaveTeamMembers(r.Context(), tms); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save team members")
			return
		}
		utils.JSON(w, http.StatusCreated, tm)
	}
}

// DELETE /api/settings/team/{uid}
func (h *SettingsHTTP) DeleteTeamMember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := pathParam(r, "uid")
		tms, err := h.settings.TeamMembers(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load team members")
			return
		}
		kept := tms[:0]
		for _, tm := range tms {
			if tm.UID != uid {
				kept = append(kept, tm)
			}
		}
		if len(kept) == len(tms) {
			utils.Error(w, http.StatusNotFound, "team member not found")
			return
		}
		if err := h.settings.SaveTeamMembers(r.Context(), kept); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save team members")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- categories ---

// GET /api/settings/categories
func (h *SettingsHTTP) ListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		if cats == nil {
			cats = models.CategoryMap{}
		}
		utils.JSON(w, http.StatusOK, cats)
	}
}

// POST /api/settings/categories. Body: {"name": "Main"}.
func (h *SettingsHTTP) AddCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
			utils.Error(w, http.StatusBadRequest, "category name is required")
			return
		}
		name := strings.TrimSpace(in.Name)
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		if cats == nil {
			cats = models.CategoryMap{}
		}
		if _, ok := cats[name]; ok {
			utils.Error(w, http.StatusConflict, "category already exists")
			return
		}
		cats[name] = []string{}
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		utils.JSON(w, http.StatusCreated, cats)
	}
}

// PUT /api/settings/categories/{name} renames a category, keeping its subs.
func (h *SettingsHTTP) RenameCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		old := pathParam(r, "name")
		var in struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
			utils.Error(w, http.StatusBadRequest, "category name is required")
			return
		}
		next := strings.TrimSpace(in.Name)
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		subs, ok := cats[old]
		if !ok {
			utils.Error(w, http.StatusNotFound, "category not found")
			return
		}
		if next != old {
			if _, clash := cats[next]; clash {
				utils.Error(w, http.StatusConflict, "category already exists")
				return
			}
			delete(cats, old)
			cats[next] = subs
		}
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		utils.JSON(w, http.StatusOK, cats)
	}
}

// DELETE /api/settings/categories/{name}
func (h *SettingsHTTP) DeleteCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := pathParam(r, "name")
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		if _, ok := cats[name]; !ok {
			utils.Error(w, http.StatusNotFound, "category not found")
			return
		}
		delete(cats, name)
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /api/settings/categories/{name}/subcategories. Body: {"name": "Sub"}.
func (h *SettingsHTTP) AddSubcategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		main := pathParam(r, "name")
		var in struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
			utils.Error(w, http.StatusBadRequest, "subcategory name is required")
			return
		}
		sub := strings.TrimSpace(in.Name)
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		subs, ok := cats[main]
		if !ok {
			utils.Error(w, http.StatusNotFound, "category not found")
			return
		}
		for _, s := range subs {
			if strings.EqualFold(s, sub) {
				utils.Error(w, http.StatusConflict, "subcategory already exists")
				return
			}
		}
		cats[main] = append(subs, sub)
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		utils.JSON(w, http.StatusCreated, cats)
	}
}

// PUT /api/settings/categories/{name}/subcategories/{sub}. Body: {"name": "New"}.
func (h *SettingsHTTP) RenameSubcategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		main := pathParam(r, "name")
		old := pathParam(r, "sub")
		var in struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
			utils.Error(w, http.StatusBadRequest, "subcategory name is required")
			return
		}
		next := strings.TrimSpace(in.Name)
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		subs, ok := cats[main]
		if !ok {
			utils.Error(w, http.StatusNotFound, "category not found")
			return
		}
		idx := -1
		for i, s := range subs {
			if strings.EqualFold(s, old) {
				idx = i
			} else if strings.EqualFold(s, next) {
				utils.Error(w, http.StatusConflict, "subcategory already exists")
				return
			}
		}
		if idx < 0 {
			utils.Error(w, http.StatusNotFound, "subcategory not found")
			return
		}
		subs[idx] = next
		cats[main] = subs
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		utils.JSON(w, http.StatusOK, cats)
	}
}

// DELETE /api/settings/categories/{name}/subcategories/{sub}
func (h *SettingsHTTP) DeleteSubcategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		main := pathParam(r, "name")
		sub := pathParam(r, "sub")
		cats, err := h.settings.Categories(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		subs, ok := cats[main]
		if !ok {
			utils.Error(w, http.StatusNotFound, "category not found")
			return
		}
		kept := subs[:0]
		for _, s := range subs {
			if !strings.EqualFold(s, sub) {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(subs) {
			utils.Error(w, http.StatusNotFound, "subcategory not found")
			return
		}
		cats[main] = kept
		if err := h.settings.SaveCategories(r.Context(), cats); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save categories")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- users ---

// GET /api/settings/users
func (h *SettingsHTTP) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.users.List(r.Context())
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to load users")
			return
		}
		out := make([]map[string]any, 0, len(users))
		for i := range users {
			out = append(out, profileJSON(&users[i]))
		}
		utils.JSON(w, http.StatusOK, out)
	}
}

// PUT /api/settings/users/role takes {"email", "role"}; creates the user when the
// address has never signed in.
func (h *SettingsHTTP) SetUserRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		if in.Email == "" {
			utils.Error(w, http.StatusBadRequest, "email is required")
			return
		}
		if in.Role != models.RoleAdmin && in.Role != models.RoleMember {
			utils.Error(w, http.StatusBadRequest, "invalid role")
			return
		}
		u, err := h.users.GetByEmail(r.Context(), in.Email)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to look up user")
			return
		}
		if u == nil {
			u = &models.User{Email: in.Email, Name: models.NameFromEmail(in.Email)}
		}
		u.Role = in.Role
		if err := h.users.Upsert(r.Context(), u); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save user")
			return
		}
		utils.JSON(w, http.StatusOK, profileJSON(u))
	}
}

// --- profile ---

// GET /api/profile
func (h *SettingsHTTP) GetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := utils.GetString(r.Context(), middleware.CtxUserID)
		u, err := h.users.GetByID(r.Context(), uid)
		if err != nil || u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		out := profileJSON(u)
		out["googleChatWebhookUrl"] = u.GoogleChatWebhookURL
		utils.JSON(w, http.StatusOK, out)
	}
}

// PUT /api/profile. Body: {"googleChatWebhookUrl"}.
func (h *SettingsHTTP) UpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := utils.GetString(r.Context(), middleware.CtxUserID)
		u, err := h.users.GetByID(r.Context(), uid)
		if err != nil || u == nil {
			utils.Error(w, http.StatusNotFound, "user not found")
			return
		}
		var in struct {
			GoogleChatWebhookURL string `json:"googleChatWebhookUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		u.GoogleChatWebhookURL = strings.TrimSpace(in.GoogleChatWebhookURL)
		if err := h.users.Upsert(r.Context(), u); err != nil {
			utils.Error(w, http.StatusInternalServerError, "failed to save profile")
			return
		}
		out := profileJSON(u)
		out["googleChatWebhookUrl"] = u.GoogleChatWebhookURL
		utils.JSON(w, http.StatusOK, out)
	}
}
