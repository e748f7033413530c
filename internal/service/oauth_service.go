package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sanathkumar-crypto/issue-tracker/internal/config"
)

var ErrOAuthNotConfigured = errors.New("google oauth is not configured")

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthService drives the Google authorization-code flow.
type OAuthService struct {
	conf *oauth2.Config
}

func NewOAuthService(cfg config.Config) *OAuthService {
	if !cfg.OAuthConfigured() {
		return &OAuthService{}
	}
	return &OAuthService{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (o *OAuthService) Enabled() bool { return o.conf != nil }

// AuthURL builds the consent-screen redirect carrying the CSRF state nonce.
func (o *OAuthService) AuthURL(state string) string {
	return o.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades the authorization code for a token and fetches the
// userinfo profile with it.
func (o *OAuthService) Exchange(ctx context.Context, code string) (*UserInfo, error) {
	if !o.Enabled() {
		return nil, ErrOAuthNotConfigured
	}
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	resp, err := o.conf.Client(ctx, tok).Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo fetch: unexpected status %s", resp.Status)
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo decode: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("userinfo response missing email")
	}
	return &info, nil
}
