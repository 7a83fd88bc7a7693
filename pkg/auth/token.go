// Package auth acquires and caches the bearer token for the order API.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/order-report/pkg/credential"
	"github.com/Sternrassler/order-report/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// TokenPath is the credential exchange endpoint, relative to the API base URL.
const TokenPath = "/auth/token"

// DefaultExpiresIn applies when the auth response carries no expires_in.
const DefaultExpiresIn = 3600 * time.Second

// maxErrorBody bounds how much of a failed response is kept for logs and errors.
const maxErrorBody = 4096

var (
	tokenRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_token_requests_total",
		Help: "Token requests by source (cache or refresh)",
	}, []string{"source"})

	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_token_refreshes_total",
		Help: "Token exchanges with the auth endpoint by result",
	}, []string{"result"})
)

// Config holds the token provider configuration.
type Config struct {
	// BaseURL of the order API, e.g. "https://orders.example.com/api".
	BaseURL string

	// ClientID and ClientSecret are sent in the client_credentials exchange.
	ClientID     string
	ClientSecret string

	// Store holds the shared credential (REQUIRED).
	Store credential.Store

	// HTTPClient performs the exchange. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// DefaultExpiresIn is used when the response omits expires_in.
	DefaultExpiresIn time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a configuration with the standard defaults filled in.
func DefaultConfig(baseURL, clientID, clientSecret string, store credential.Store) Config {
	return Config{
		BaseURL:          baseURL,
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Store:            store,
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
		DefaultExpiresIn: DefaultExpiresIn,
		Now:              time.Now,
	}
}

// TokenProvider supplies a valid bearer token, refreshing it when absent or expired.
type TokenProvider struct {
	config   Config
	endpoint string
	logger   zerolog.Logger
}

// New creates a token provider.
func New(cfg Config) (*TokenProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.DefaultExpiresIn <= 0 {
		cfg.DefaultExpiresIn = DefaultExpiresIn
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenProvider{
		config:   cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + TokenPath,
		logger:   logging.NewLogger(logging.ComponentTokenProvider),
	}, nil
}

// GetToken returns the cached token while it is unexpired, otherwise exchanges
// the client credentials for a new one and stores it.
func (p *TokenProvider) GetToken(ctx context.Context) (string, error) {
	cred, err := p.credential(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Token implements oauth2.TokenSource without a request context.
func (p *TokenProvider) Token() (*oauth2.Token, error) {
	return p.TokenSource(context.Background()).Token()
}

// TokenSource returns an oauth2.TokenSource bound to ctx, for use with oauth2.Transport.
func (p *TokenProvider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &contextTokenSource{ctx: ctx, provider: p}
}

type contextTokenSource struct {
	ctx      context.Context
	provider *TokenProvider
}

func (s *contextTokenSource) Token() (*oauth2.Token, error) {
	cred, err := s.provider.credential(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		Expiry:      cred.Expiry,
	}, nil
}

func (p *TokenProvider) credential(ctx context.Context) (*credential.Credential, error) {
	now := p.config.Now()

	cached, err := p.config.Store.Get(ctx)
	switch {
	case err == nil && cached.Valid(now):
		p.logger.Debug().Time("expiry", cached.Expiry).Msg("Using existing API token")
		tokenRequestsTotal.WithLabelValues("cache").Inc()
		return cached, nil
	case err != nil && !errors.Is(err, credential.ErrCredentialNotFound):
		// An unreadable store is treated like an empty one.
		p.logger.Warn().Err(err).Msg("Credential store read failed, refreshing token")
	}

	tokenRequestsTotal.WithLabelValues("refresh").Inc()
	fresh, err := p.refresh(ctx, now)
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	tokenRefreshesTotal.WithLabelValues("success").Inc()

	if err := p.config.Store.Set(ctx, *fresh); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to persist API token")
	}

	p.logger.Info().Time("expiry", fresh.Expiry).Msg("New API token acquired")
	return fresh, nil
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

// refresh performs the client_credentials exchange. It is never retried.
func (p *TokenProvider) refresh(ctx context.Context, now time.Time) (*credential.Credential, error) {
	body, err := json.Marshal(tokenRequest{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return nil, p.fail(0, "", fmt.Errorf("encode token request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, p.fail(0, "", fmt.Errorf("create token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, p.fail(0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, p.fail(resp.StatusCode, string(text), nil)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, p.fail(resp.StatusCode, "", fmt.Errorf("decode token response: %w", err))
	}
	if payload.AccessToken == "" {
		return nil, p.fail(resp.StatusCode, "", errors.New("token response has no access_token"))
	}

	expiresIn := p.config.DefaultExpiresIn
	if payload.ExpiresIn != nil {
		expiresIn = time.Duration(*payload.ExpiresIn * float64(time.Second))
	}

	return &credential.Credential{
		Token:  payload.AccessToken,
		Expiry: now.Add(expiresIn),
	}, nil
}

func (p *TokenProvider) fail(status int, body string, err error) error {
	authErr := &AuthenticationError{
		Endpoint:   p.endpoint,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
	p.logger.Error().
		Err(authErr).
		Str("endpoint", p.endpoint).
		Int("status_code", status).
		Msg("Failed to acquire API token")
	return authErr
}
