package clients

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AirtableTokenURL is Airtable's OAuth2 token endpoint
const AirtableTokenURL = "https://airtable.com/oauth2/v1/token"

// OAuth2Config configures the refresh-token grant used to obtain access
// tokens for Airtable.
type OAuth2Config struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RefreshToken string   `json:"refresh_token"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// TokenSource is an oauth2.TokenSource that caches the current token,
// refreshes it when expired and remembers rotated refresh tokens.
type TokenSource struct {
	logger *zap.Logger
	base   oauth2.TokenSource

	refreshes atomic.Int64

	mu          sync.Mutex
	lastRefresh time.Time
	onRefresh   func(*oauth2.Token)
}

// NewTokenSource builds a token source for config. Token requests are sent
// with the *http.Client stored in ctx under oauth2.HTTPClient, if any (see
// HTTPClient.Context).
func NewTokenSource(ctx context.Context, config *OAuth2Config, logger *zap.Logger) (*TokenSource, error) {
	if config == nil || config.ClientID == "" || config.RefreshToken == "" {
		return nil, fmt.Errorf("oauth2 requires client_id and refresh_token")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = AirtableTokenURL
	}

	authStyle := oauth2.AuthStyleInParams
	if config.ClientSecret != "" {
		authStyle = oauth2.AuthStyleInHeader
	}

	oc := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       config.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: authStyle,
		},
	}

	ts := &TokenSource{
		logger: logger.With(zap.String("component", "oauth2")),
	}
	ts.base = oauth2.ReuseTokenSource(nil, &refreshingSource{
		parent: ts,
		inner:  oc.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken}),
	})
	return ts, nil
}

// Token returns a valid access token, refreshing it if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	return ts.base.Token()
}

// OnRefresh registers a callback invoked after each refresh. Airtable
// rotates refresh tokens, so callers persisting credentials should store
// tok.RefreshToken.
func (ts *TokenSource) OnRefresh(callback func(tok *oauth2.Token)) {
	ts.mu.Lock()
	ts.onRefresh = callback
	ts.mu.Unlock()
}

// Refreshes returns how many token refreshes were performed
func (ts *TokenSource) Refreshes() int64 {
	return ts.refreshes.Load()
}

// LastRefresh returns when the token was last refreshed
func (ts *TokenSource) LastRefresh() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastRefresh
}

// refreshingSource sits under the reuse cache so only real refreshes are
// counted and logged.
type refreshingSource struct {
	parent *TokenSource
	inner  oauth2.TokenSource
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	tok, err := r.inner.Token()
	if err != nil {
		r.parent.logger.Warn("oauth2 token refresh failed", zap.Error(err))
		return nil, fmt.Errorf("oauth2 token refresh failed: %w", err)
	}

	r.parent.refreshes.Add(1)
	r.parent.mu.Lock()
	r.parent.lastRefresh = time.Now()
	callback := r.parent.onRefresh
	r.parent.mu.Unlock()

	r.parent.logger.Debug("oauth2 token refreshed", zap.Time("expiry", tok.Expiry))
	if callback != nil {
		callback(tok)
	}
	return tok, nil
}
