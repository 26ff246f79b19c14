package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOAuthProvidersSkipsUnconfigured(t *testing.T) {
	providers := NewOAuthProviders(config.OAuthConfig{
		GitHub: config.OAuthProvider{ClientID: "id", ClientSecret: "secret"},
	}, "https://example.com/")

	require.Len(t, providers, 1)
	assert.Equal(t, "https://example.com/auth/github/callback", providers[ProviderGitHub].Config.RedirectURL)
}

func jsonHandler(v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func TestFetchGoogleProfile(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(map[string]interface{}{
		"id": "g-1", "email": "ann@example.com", "verified_email": true, "name": "Ann", "picture": "https://img/ann",
	}))
	defer srv.Close()

	p := &OAuthProvider{Name: ProviderGoogle, UserInfoURL: srv.URL}
	profile, err := p.FetchProfile(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: "g-1", Email: "ann@example.com", Name: "Ann", Image: "https://img/ann"}, profile)
}

func TestFetchGoogleProfileUnverified(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(map[string]interface{}{"id": "g-1", "email": "ann@example.com"}))
	defer srv.Close()

	p := &OAuthProvider{Name: ProviderGoogle, UserInfoURL: srv.URL}
	_, err := p.FetchProfile(context.Background(), srv.Client())
	assert.ErrorIs(t, err, ErrUnverifiedEmail)
}

func TestFetchGitHubProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", jsonHandler(map[string]interface{}{"id": 42, "login": "octo", "avatar_url": "https://img/octo"}))
	mux.HandleFunc("/user/emails", jsonHandler([]map[string]interface{}{
		{"email": "old@example.com", "primary": false, "verified": true},
		{"email": "octo@example.com", "primary": true, "verified": true},
	}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &OAuthProvider{Name: ProviderGitHub, UserInfoURL: srv.URL + "/user", EmailsURL: srv.URL + "/user/emails"}
	profile, err := p.FetchProfile(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: "42", Email: "octo@example.com", Name: "octo", Image: "https://img/octo"}, profile)
}

func TestUpsertOAuthUser(t *testing.T) {
	conn := db.OpenTest(t)
	ctx := context.Background()
	admins := config.AdminConfig{Emails: []string{"owner@example.com"}}

	user, err := UpsertOAuthUser(ctx, conn, ProviderGoogle, &Profile{ID: "g-1", Email: "ann@example.com", Name: "Ann"}, admins)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	// Same email through another provider links a second account.
	again, err := UpsertOAuthUser(ctx, conn, ProviderGitHub, &Profile{ID: "7", Email: "ann@example.com"}, admins)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// Known provider account wins even if the email changed upstream.
	third, err := UpsertOAuthUser(ctx, conn, ProviderGitHub, &Profile{ID: "7", Email: "new@example.com"}, admins)
	require.NoError(t, err)
	assert.Equal(t, user.ID, third.ID)

	var accounts int64
	conn.Model(&models.Account{}).Where("user_id = ?", user.ID).Count(&accounts)
	assert.EqualValues(t, 2, accounts)
}

func TestUpsertOAuthUserPromotesAdmins(t *testing.T) {
	conn := db.OpenTest(t)
	admins := config.AdminConfig{Emails: []string{"owner@example.com"}}

	user, err := UpsertOAuthUser(context.Background(), conn, ProviderGoogle, &Profile{ID: "g-9", Email: "owner@example.com"}, admins)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, conn.Where("id = ?", user.ID).Take(&stored).Error)
	assert.Equal(t, models.RoleAdmin, stored.Role)
	assert.Equal(t, "owner", stored.Name)
}
