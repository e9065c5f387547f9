package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/guardpost/guardpost/internal/config"
)

// ErrNoIDToken is returned when the token response carries no ID token.
var ErrNoIDToken = errors.New("no id_token in token response")

// stateTTL bounds how long an issued state token stays redeemable.
const stateTTL = 10 * time.Minute

// Claims holds the identity claims read from a verified ID token.
type Claims struct {
	Subject    string   `json:"sub"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Groups     []string `json:"groups"`
}

// provider wraps the discovery document, token verifier, and OAuth2 client
// for the configured identity provider. Discovery runs on first use so a
// temporarily unreachable identity provider does not block startup.
type provider struct {
	cfg config.OIDC

	mu       sync.Mutex
	oidc     *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

func newProvider(cfg config.OIDC) *provider {
	return &provider{cfg: cfg}
}

// init runs OIDC discovery once and caches the verifier and OAuth2 client.
func (p *provider) init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.oidc != nil {
		return nil
	}

	discovered, err := oidc.NewProvider(ctx, p.cfg.ProviderURL)
	if err != nil {
		return fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	scopes := p.cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	p.oidc = discovered
	p.verifier = discovered.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
	p.oauth2 = oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURL,
		Endpoint:     discovered.Endpoint(),
		Scopes:       scopes,
	}

	return nil
}

// authURL returns the authorization URL carrying the given state token.
func (p *provider) authURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// exchange redeems an authorization code and returns the verified claims.
func (p *provider) exchange(ctx context.Context, code string) (*Claims, error) {
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims Claims
	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	claims.Groups = p.groupsFromToken(idToken, claims.Groups)

	return &claims, nil
}

// groupsFromToken determines the user's groups using the configured claim.
// It defaults to the standard groups claim and overrides it if a custom
// claim is set and present.
func (p *provider) groupsFromToken(idToken *oidc.IDToken, defaultGroups []string) []string {
	gc := p.cfg.GroupsClaim
	if gc == "" || gc == "groups" {
		return defaultGroups
	}

	var allClaims map[string]interface{}
	if err := idToken.Claims(&allClaims); err != nil {
		return defaultGroups
	}

	v, ok := allClaims[gc]
	if !ok {
		return defaultGroups
	}

	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		tmp := make([]string, 0, len(vv))

		for _, g := range vv {
			if s, ok := g.(string); ok {
				tmp = append(tmp, s)
			}
		}

		return tmp
	default:
		return defaultGroups
	}
}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// stateStore tracks issued state tokens. A token is redeemable exactly once
// and only within stateTTL of being issued.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]time.Time)}
}

// Put records a freshly issued state token and purges expired ones.
func (s *stateStore) Put(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, issued := range s.states {
		if now.Sub(issued) > stateTTL {
			delete(s.states, k)
		}
	}

	s.states[state] = now
}

// Consume redeems a state token, reporting whether it was valid.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	issued, ok := s.states[state]
	if !ok {
		return false
	}

	delete(s.states, state)

	return time.Since(issued) <= stateTTL
}
