package calendar

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
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNoToken is returned when no cached token exists yet. Run the
// interactive authorization once ("planner auth") to create it.
var ErrNoToken = errors.New("no calendar token, run the auth command first")

// DefaultAuthPort is where the local listener waits for the OAuth redirect.
const DefaultAuthPort = "6789"

// AuthConfig locates the OAuth client credentials and the token cache.
type AuthConfig struct {
	CredentialsFile string
	TokenFile       string
	Port            string
}

func (ac AuthConfig) port() string {
	if ac.Port == "" {
		return DefaultAuthPort
	}
	return ac.Port
}

// OAuthConfig reads the client credentials file downloaded from the Google
// Cloud console. The redirect is forced onto the local listener.
func (ac AuthConfig) OAuthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(ac.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", ac.CredentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	redirect := &url.URL{Scheme: "http", Host: "localhost:" + ac.port(), Path: "/oauth2callback"}
	if u, err := url.Parse(cfg.RedirectURL); err == nil && (u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1") {
		redirect.Host = u.Hostname() + ":" + ac.port()
		if u.Path != "" {
			redirect.Path = u.Path
		}
	}
	cfg.RedirectURL = redirect.String()
	return cfg, nil
}

// HTTPClient returns a client authorized with the cached token. Refreshed
// tokens are written back to the cache.
func (ac AuthConfig) HTTPClient(ctx context.Context) (*http.Client, error) {
	cfg, err := ac.OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(ac.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	src := &cachingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: ac.TokenFile,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// NewService builds a Calendar service from the cached token.
func (ac AuthConfig) NewService(ctx context.Context) (*gcal.Service, error) {
	client, err := ac.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return srv, nil
}

// Authorize runs the browser flow: it prints the consent URL to out, waits
// for the redirect on the local listener and caches the token.
func (ac AuthConfig) Authorize(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	cfg, err := ac.OAuthConfig()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "localhost:"+ac.port())
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", ac.port(), err)
	}
	defer listener.Close()

	state := fmt.Sprintf("planner-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- errors.New("authorization code not found in redirect")
				return
			}
			fmt.Fprintln(w, "Authentication successful, you can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(out, "Open the following URL in your browser to authorize the planner:\n%s\n", authURL)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		if err := saveToken(ac.TokenFile, tok); err != nil {
			return nil, err
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

// =============================================================================
// TOKEN CACHE
// =============================================================================

// cachingTokenSource saves refreshed tokens.
type cachingTokenSource struct {
	base oauth2.TokenSource
	path string
	last string
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
