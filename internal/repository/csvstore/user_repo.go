package csvstore

import (
	"context"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
)

type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) repository.UserRepository { return &UserRepo{s: s} }

func userFromRow(row map[string]string) models.User {
	return models.User{
		ID:                   row["id"],
		Email:                row["email"],
		Name:                 row["name"],
		Role:                 row["role"],
		GoogleChatWebhookURL: row["googleChatWebhookUrl"],
	}
}

func userToRow(u models.User) map[string]string {
	return map[string]string{
		"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role,
		"googleChatWebhookUrl": u.GoogleChatWebhookURL,
	}
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows, err := readRows(r.s.usersPath())
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.ToLower(u.Email) == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Upsert(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, err := readRows(r.s.usersPath())
	if err != nil {
		return err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.RoleMember
	}

	replaced := false
	for i, row := range rows {
		if strings.ToLower(row["email"]) == u.Email {
			u.ID = row["id"]
			rows[i] = userToRow(*u)
			replaced = true
			break
		}
	}
	if !replaced {
		u.ID = nextID(rows)
		rows = append(rows, userToRow(*u))
	}
	return writeRows(r.s.usersPath(), userHeaders, rows)
}
