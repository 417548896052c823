package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func freeRedirect(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return fmt.Sprintf("http://%s/oauth2callback", addr)
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeRedirect(t *testing.T) {
	log := logging.NewNop()
	assert.Equal(t, "http://localhost:6789/oauth2callback", normalizeRedirect("urn:ietf:wg:oauth:2.0:oob", log))
	assert.Equal(t, "http://localhost:6789/cb", normalizeRedirect("http://localhost/cb", log))
	assert.Equal(t, "http://127.0.0.1:6789/cb", normalizeRedirect("http://127.0.0.1:9999/cb", log))
	assert.Equal(t, "https://example.com/cb", normalizeRedirect("https://example.com/cb", log))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	secrets := `{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ClientSecretsFile), []byte(secrets), 0600))

	cfg, err := LoadConfig(dir, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "http://localhost:6789", cfg.RedirectURL)
	assert.Equal(t, Scopes, cfg.Scopes)

	_, err = LoadConfig(t.TempDir(), logging.NewNop())
	assert.Error(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	tokens := tokenServer(t)
	tokenPath := filepath.Join(t.TempDir(), "planner", TokenFile)
	cfg := &oauth2.Config{
		ClientID:    "id",
		Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokens.URL},
		RedirectURL: freeRedirect(t),
	}

	a := NewOAuth(cfg, tokenPath, io.Discard, logging.NewNop())
	a.Prompt = func(authURL string) {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		state := u.Query().Get("state")
		go func() {
			resp, err := http.Get(cfg.RedirectURL + "?code=the-code&state=" + url.QueryEscape(state))
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	require.NoError(t, a.Login(context.Background()))

	tok, err := tokenFromFile(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)

	client, err := a.HTTPClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRestoreAndLogout(t *testing.T) {
	var revoked string
	revoke := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		revoked = r.Form.Get("token")
	}))
	defer revoke.Close()

	tokenPath := filepath.Join(t.TempDir(), TokenFile)
	a := NewOAuth(&oauth2.Config{}, tokenPath, io.Discard, logging.NewNop())
	a.revokeURL = revoke.URL

	ok, err := a.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = a.HTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, saveToken(tokenPath, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}))
	ok, err = a.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, "rt", revoked)
	_, err = os.Stat(tokenPath)
	assert.True(t, os.IsNotExist(err))

	_, err = a.HTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRestoreCorruptToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), TokenFile)
	require.NoError(t, os.WriteFile(tokenPath, []byte("{"), 0600))

	a := NewOAuth(&oauth2.Config{}, tokenPath, io.Discard, logging.NewNop())
	ok, err := a.Restore(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
