package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository"
	"github.com/sanathkumar-crypto/issue-tracker/internal/utils"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
)

const sessionTTL = 24 * time.Hour

type AuthService struct {
	users repository.UserRepository
	cfg   config.Config
}

func NewAuthService(users repository.UserRepository, cfg config.Config) *AuthService {
	return &AuthService{users: users, cfg: cfg}
}

// checkDomain enforces the single allowed email domain.
func (a *AuthService) checkDomain(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	if !strings.HasSuffix(email, "@"+a.cfg.AllowedDomain) {
		return "", fmt.Errorf("only @%s addresses are allowed: %w", a.cfg.AllowedDomain, ErrDomainNotAllowed)
	}
	return email, nil
}

// LoginWithEmail is the fallback login used when OAuth isn't configured:
// domain check, get-or-create, session mint.
func (a *AuthService) LoginWithEmail(ctx context.Context, email string) (string, *models.User, error) {
	email, err := a.checkDomain(email)
	if err != nil {
		return "", nil, err
	}
	u, err := a.upsertForEmail(ctx, email, "")
	if err != nil {
		return "", nil, err
	}
	tok, err := a.mintSession(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// CompleteOAuth finishes the Google flow with the verified email and display
// name from the userinfo endpoint.
func (a *AuthService) CompleteOAuth(ctx context.Context, email, name string) (string, *models.User, error) {
	email, err := a.checkDomain(email)
	if err != nil {
		return "", nil, err
	}
	u, err := a.upsertForEmail(ctx, email, name)
	if err != nil {
		return "", nil, err
	}
	tok, err := a.mintSession(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// upsertForEmail loads or creates the user, applying the admin allowlist and
// refreshing the display name when the identity provider supplies one.
func (a *AuthService) upsertForEmail(ctx context.Context, email, name string) (*models.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = &models.User{
			Email: email,
			Name:  name,
			Role:  models.RoleMember,
		}
		if u.Name == "" {
			u.Name = models.NameFromEmail(email)
		}
	} else if name != "" {
		u.Name = name
	}
	if a.cfg.IsAdminEmail(email) {
		u.Role = models.RoleAdmin
	}
	if err := a.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *AuthService) mintSession(u *models.User) (string, error) {
	return utils.SignJWT(a.cfg.SessionSecret, u.ID, u.Email, u.Name, u.Role, sessionTTL)
}

// EffectiveRole re-applies the allowlist to a session's claims so a
// promotion lands without waiting for the token to be reissued.
func (a *AuthService) EffectiveRole(email, claimedRole string) string {
	if a.cfg.IsAdminEmail(email) {
		return models.RoleAdmin
	}
	return claimedRole
}
