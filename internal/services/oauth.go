package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	"portfolio/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ErrUnverifiedEmail is returned when the provider has no verified email.
var ErrUnverifiedEmail = errors.New("oauth: no verified email")

// Profile is the identity returned by a provider.
type Profile struct {
	ID    string
	Email string
	Name  string
	Image string
}

// OAuthProvider couples an oauth2 config with the provider's profile API.
type OAuthProvider struct {
	Name   string
	Config *oauth2.Config

	UserInfoURL string
	EmailsURL   string // GitHub only
}

// NewOAuthProviders returns the providers that have client credentials.
func NewOAuthProviders(cfg config.OAuthConfig, siteURL string) map[string]*OAuthProvider {
	siteURL = strings.TrimRight(siteURL, "/")
	providers := make(map[string]*OAuthProvider)

	if cfg.Google.ClientID != "" {
		providers[ProviderGoogle] = &OAuthProvider{
			Name: ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  siteURL + "/auth/google/callback",
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		}
	}
	if cfg.GitHub.ClientID != "" {
		providers[ProviderGitHub] = &OAuthProvider{
			Name: ProviderGitHub,
			Config: &oauth2.Config{
				ClientID:     cfg.GitHub.ClientID,
				ClientSecret: cfg.GitHub.ClientSecret,
				RedirectURL:  siteURL + "/auth/github/callback",
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			UserInfoURL: "https://api.github.com/user",
			EmailsURL:   "https://api.github.com/user/emails",
		}
	}
	return providers
}

// Exchange trades the callback code for a token and loads the profile.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return p.FetchProfile(ctx, p.Config.Client(ctx, token))
}

// FetchProfile reads the user's identity with an authorized client.
func (p *OAuthProvider) FetchProfile(ctx context.Context, client *http.Client) (*Profile, error) {
	switch p.Name {
	case ProviderGoogle:
		var info struct {
			ID            string `json:"id"`
			Email         string `json:"email"`
			VerifiedEmail bool   `json:"verified_email"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}
		if err := getJSON(ctx, client, p.UserInfoURL, &info); err != nil {
			return nil, err
		}
		if !info.VerifiedEmail || info.Email == "" {
			return nil, ErrUnverifiedEmail
		}
		return &Profile{ID: info.ID, Email: info.Email, Name: info.Name, Image: info.Picture}, nil

	case ProviderGitHub:
		var info struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, p.UserInfoURL, &info); err != nil {
			return nil, err
		}

		// 公开邮箱不一定存在，取已验证的主邮箱
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, p.EmailsURL, &emails); err != nil {
			return nil, err
		}
		email := ""
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
		if email == "" {
			return nil, ErrUnverifiedEmail
		}

		name := info.Name
		if name == "" {
			name = info.Login
		}
		return &Profile{ID: strconv.FormatInt(info.ID, 10), Email: email, Name: name, Image: info.AvatarURL}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.Name)
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// UpsertOAuthUser finds the user owning the provider account, or the user
// with the same email, creating either as needed. Emails listed in
// admin.Emails are promoted to admin on every login.
func UpsertOAuthUser(ctx context.Context, db *gorm.DB, provider string, profile *Profile, admin config.AdminConfig) (*models.User, error) {
	var user models.User

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		err := tx.Where("provider = ? AND provider_account_id = ?", provider, profile.ID).Take(&account).Error
		switch {
		case err == nil:
			if err := tx.Where("id = ?", account.UserID).Take(&user).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			err := tx.Where("email = ?", profile.Email).Take(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				user = models.User{Name: profile.Name, Email: profile.Email, Image: profile.Image, Role: models.RoleUser}
				if user.Name == "" {
					user.Name = strings.Split(profile.Email, "@")[0]
				}
				err = tx.Create(&user).Error
			}
			if err != nil {
				return err
			}
			account = models.Account{UserID: user.ID, Provider: provider, ProviderAccountID: profile.ID}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		default:
			return err
		}

		updates := map[string]interface{}{}
		if profile.Image != "" && profile.Image != user.Image {
			updates["image"] = profile.Image
		}
		if admin.IsAdminEmail(user.Email) && user.Role != models.RoleAdmin {
			updates["role"] = models.RoleAdmin
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	logger := logging.Ctx(ctx)
	logger.Info().Str(logging.FieldUserEmail, user.Email).Str("provider", provider).Msg("user signed in")
	return &user, nil
}
