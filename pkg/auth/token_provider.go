// pkg/auth/token_provider.go
package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenProvider supplies bearer credentials for the remote service. Token
// acquisition itself (the OAuth dance) happens outside this service; the
// provider only hands out and refreshes tokens.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// OAuthTokenProvider exchanges a long-lived refresh token for access tokens
// through an oauth2 endpoint.
type OAuthTokenProvider struct {
	mu           sync.Mutex
	conf         *oauth2.Config
	refreshToken string
	current      *oauth2.Token
}

func NewOAuthTokenProvider(clientID, clientSecret, tokenURL, refreshToken string) *OAuthTokenProvider {
	return &OAuthTokenProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		refreshToken: refreshToken,
	}
}

func (p *OAuthTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Valid() {
		return p.current.AccessToken, nil
	}
	if err := p.refreshLocked(ctx); err != nil {
		return "", err
	}
	return p.current.AccessToken, nil
}

func (p *OAuthTokenProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

func (p *OAuthTokenProvider) refreshLocked(ctx context.Context) error {
	src := p.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}
	p.current = tok
	return nil
}

// StaticTokenProvider returns a fixed token; it cannot refresh. Used in tests
// and for pre-issued long-lived tokens.
type StaticTokenProvider struct {
	AccessToken string
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p.AccessToken == "" {
		return "", fmt.Errorf("no access token configured")
	}
	return p.AccessToken, nil
}

func (p *StaticTokenProvider) Refresh(ctx context.Context) error {
	return fmt.Errorf("static token cannot be refreshed")
}
