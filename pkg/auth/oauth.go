package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/planner/pkg/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// cloud console, expected in the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the access and refresh token after consent.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server captures the OAuth redirect.
	LocalhostAuthPort = "6789"

	// RevokeURL is Google's token revocation endpoint.
	RevokeURL = "https://oauth2.googleapis.com/revoke"

	consentTimeout = 5 * time.Minute
)

// Scopes needed to read and write events on the primary calendar.
var Scopes = []string{calendar.CalendarEventsScope}

// ErrNoToken is returned when no persisted token exists.
var ErrNoToken = errors.New("no stored oauth token")

// LoadConfig creates an oauth2.Config from the client secrets file in dir,
// forcing localhost redirects onto LocalhostAuthPort.
func LoadConfig(dir string, log logging.Logger) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = normalizeRedirect(config.RedirectURL, log)
	return config, nil
}

func normalizeRedirect(redirect string, log logging.Logger) string {
	if redirect == "" || redirect == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	parsed, err := url.Parse(redirect)
	if err != nil {
		log.Warn("could not parse redirect url, using it as is", logging.Fields{"redirect": redirect, "error": err})
		return redirect
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		log.Warn("redirect url is not a localhost callback", logging.Fields{"redirect": redirect})
		return redirect
	}
	if parsed.Port() != LocalhostAuthPort {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), LocalhostAuthPort)
	}
	return parsed.String()
}

// OAuth runs the Google consent flow and keeps the resulting token on disk.
type OAuth struct {
	config    *oauth2.Config
	tokenPath string
	revokeURL string
	log       logging.Logger

	// Prompt shows the consent URL to the user.
	Prompt func(authURL string)

	mu     sync.Mutex
	tok    *oauth2.Token
	client *http.Client
}

func NewOAuth(config *oauth2.Config, tokenPath string, out io.Writer, log logging.Logger) *OAuth {
	if log == nil {
		log = logging.NewNop()
	}
	return &OAuth{
		config:    config,
		tokenPath: tokenPath,
		revokeURL: RevokeURL,
		log:       log,
		Prompt: func(authURL string) {
			fmt.Fprintf(out, "Open the following URL in your browser to connect Google Calendar:\n%s\n", authURL)
		},
	}
}

// Restore loads a persisted token, reporting whether one was found.
func (a *OAuth) Restore(_ context.Context) (bool, error) {
	tok, err := tokenFromFile(a.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	a.mu.Lock()
	a.tok, a.client = tok, nil
	a.mu.Unlock()
	return true, nil
}

// Login performs the interactive consent flow and stores the token.
func (a *OAuth) Login(ctx context.Context) error {
	tok, err := a.tokenFromWeb(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token from web: %w", err)
	}
	if err := saveToken(a.tokenPath, tok); err != nil {
		return err
	}
	a.mu.Lock()
	a.tok, a.client = tok, nil
	a.mu.Unlock()
	a.log.Info("authentication successful", logging.Fields{"token_file": a.tokenPath})
	return nil
}

// Logout forgets the token locally and revokes it with Google. Revocation
// failure is reported but the local token is removed regardless.
func (a *OAuth) Logout(ctx context.Context) error {
	a.mu.Lock()
	tok := a.tok
	a.tok, a.client = nil, nil
	a.mu.Unlock()

	if err := os.Remove(a.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete token file '%s': %w", a.tokenPath, err)
	}
	if tok == nil {
		return nil
	}
	return a.revoke(ctx, tok)
}

func (a *OAuth) revoke(ctx context.Context, tok *oauth2.Token) error {
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}
	if value == "" || a.revokeURL == "" {
		return nil
	}
	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: unexpected status %s", resp.Status)
	}
	return nil
}

// HTTPClient returns a client that refreshes the token as needed and writes
// refreshed tokens back to disk. The same client is returned until the
// session changes.
func (a *OAuth) HTTPClient(_ context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tok == nil {
		return nil, ErrNoToken
	}
	if a.client != nil {
		return a.client, nil
	}
	// Refreshes outlive any single request, so they run on a background context.
	bg := context.Background()
	src := &savingSource{
		base:  a.config.TokenSource(bg, a.tok),
		last:  a.tok,
		path:  a.tokenPath,
		log:   a.log,
		store: a.setToken,
	}
	a.client = oauth2.NewClient(bg, oauth2.ReuseTokenSource(a.tok, src))
	return a.client, nil
}

func (a *OAuth) setToken(tok *oauth2.Token) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tok != nil {
		a.tok = tok
	}
}

type savingSource struct {
	base  oauth2.TokenSource
	path  string
	log   logging.Logger
	store func(*oauth2.Token)

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn("could not persist refreshed token", logging.Fields{"error": err})
		}
		s.store(tok)
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb runs the authorization code flow through a local redirect server.
func (a *OAuth) tokenFromWeb(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url %q: %w", a.config.RedirectURL, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	state := uuid.NewString()

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on %s: %w", redirect.Host, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "State mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// AccessTypeOffline makes Google return a refresh token.
	authURL := a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	a.Prompt(authURL)
	a.log.Info("waiting for authorization code", logging.Fields{"redirect": a.config.RedirectURL})

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := a.config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(consentTimeout):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// saveToken writes tok to path, readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
