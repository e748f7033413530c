package csvstore

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
)

type SettingsRepo struct{ s *Store }

func NewSettingsRepo(s *Store) repository.SettingsRepository { return &SettingsRepo{s: s} }

func (r *SettingsRepo) Hospitals(ctx context.Context) ([]models.Hospital, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.hospitalsPath())
	if err != nil {
		return nil, err
	}
	out := make([]models.Hospital, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Hospital{Name: row["name"], Zone: row["zone"]})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *SettingsRepo) SaveHospitals(ctx context.Context, hs []models.Hospital) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sort.Slice(hs, func(i, j int) bool {
		return strings.ToLower(hs[i].Name) < strings.ToLower(hs[j].Name)
	})
	rows := make([]map[string]string, len(hs))
	for i, h := range hs {
		rows[i] = map[string]string{"name": h.Name, "zone": h.Zone}
	}
	return writeRows(r.s.hospitalsPath(), hospitalHeaders, rows)
}

func (r *SettingsRepo) TeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.teamPath())
	if err != nil {
		return nil, err
	}
	out := make([]models.TeamMember, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.TeamMember{UID: row["uid"], Name: row["name"], Email: row["email"]})
	}
	return out, nil
}

func (r *SettingsRepo) SaveTeamMembers(ctx context.Context, tms []models.TeamMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make([]map[string]string, len(tms))
	for i, tm := range tms {
		rows[i] = map[string]string{"uid": tm.UID, "name": tm.Name, "email": tm.Email}
	}
	return writeRows(r.s.teamPath(), teamHeaders, rows)
}

func (r *SettingsRepo) Categories(ctx context.Context) (models.CategoryMap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	raw, err := os.ReadFile(r.s.categoriesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return models.CategoryMap{}, nil
		}
		return nil, err
	}
	var cats models.CategoryMap
	if err := json.Unmarshal(raw, &cats); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = models.CategoryMap{}
	}
	return cats, nil
}

func (r *SettingsRepo) SaveCategories(ctx context.Context, cats models.CategoryMap) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	raw, err := json.MarshalIndent(cats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.s.categoriesPath(), raw, 0o644)
}
