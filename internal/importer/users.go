package importer

import (
	"context"
	"regexp"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
)

// rosterEntry matches `Name <email>` and `"Dr. Name" <email>` forms in a
// comma-separated roster dump.
var rosterEntry = regexp.MustCompile(`"?([^<"]+)"?\s*<([^>]+@[^>]+)>`)

type RosterUser struct {
	Name  string
	Email string
}

// ParseRoster extracts name/email pairs from a pasted address-book string.
func ParseRoster(raw string) []RosterUser {
	var out []RosterUser
	for _, m := range rosterEntry.FindAllStringSubmatch(raw, -1) {
		name := strings.TrimSpace(m[1])
		name = strings.TrimSpace(strings.Trim(strings.TrimPrefix(name, ","), `" `))
		email := strings.ToLower(strings.TrimSpace(m[2]))
		if name != "" && email != "" {
			out = append(out, RosterUser{Name: name, Email: email})
		}
	}
	return out
}

type RosterResult struct {
	Added   int
	Skipped int
}

// IsAdmin reports allowlist membership; wired to config.Config.IsAdminEmail.
type IsAdmin func(email string) bool

// ImportRoster upserts roster users, skipping emails that already exist.
func ImportRoster(ctx context.Context, users repository.UserRepository, roster []RosterUser, isAdmin IsAdmin) (RosterResult, error) {
	var res RosterResult
	existing, err := users.List(ctx)
	if err != nil {
		return res, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		seen[strings.ToLower(u.Email)] = struct{}{}
	}

	for _, ru := range roster {
		if _, dup := seen[ru.Email]; dup {
			res.Skipped++
			continue
		}
		role := models.RoleMember
		if isAdmin != nil && isAdmin(ru.Email) {
			role = models.RoleAdmin
		}
		u := models.User{Email: ru.Email, Name: ru.Name, Role: role}
		if err := users.Upsert(ctx, &u); err != nil {
			return res, err
		}
		seen[ru.Email] = struct{}{}
		res.Added++
	}
	return res, nil
}
