package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	fedmodels "trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
)

// ClientCredentials identify the broker at every home provider.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuth2Exchanger builds authorization URLs and redeems codes at home providers.
type OAuth2Exchanger struct {
	creds      ClientCredentials
	httpClient *http.Client
}

func NewOAuth2Exchanger(creds ClientCredentials, httpClient *http.Client) *OAuth2Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuth2Exchanger{creds: creds, httpClient: httpClient}
}

func (e *OAuth2Exchanger) config(provider trustmodels.ProviderNode, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.creds.ClientID,
		ClientSecret: e.creds.ClientSecret,
		RedirectURL:  e.creds.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   provider.AuthorizationEndpoint,
			TokenURL:  provider.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL returns the home provider URL the user is redirected to. The
// request is bound to state and nonce and protected with PKCE.
func (e *OAuth2Exchanger) AuthCodeURL(provider trustmodels.ProviderNode, req fedmodels.Request, state, nonce, verifier string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.S256ChallengeOption(verifier),
	}
	if req.LoginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", req.LoginHint))
	}
	return e.config(provider, req.Scopes()).AuthCodeURL(state, opts...)
}

// Exchange redeems an authorization code at the home provider's token endpoint.
func (e *OAuth2Exchanger) Exchange(ctx context.Context, provider trustmodels.ProviderNode, code, verifier string) (fedmodels.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	tok, err := e.config(provider, nil).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			msg := "token endpoint rejected the code"
			if re.ErrorCode != "" {
				msg = "token endpoint returned " + re.ErrorCode
			}
			return fedmodels.TokenSet{}, classifyStatus(provider.ID, msg, re.Response.StatusCode, err)
		}
		return fedmodels.TokenSet{}, classifyTransport(provider.ID, "token endpoint unreachable", err)
	}
	return tokenSetFrom(provider.ID, tok)
}

func tokenSetFrom(providerID string, tok *oauth2.Token) (fedmodels.TokenSet, error) {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return fedmodels.TokenSet{}, NewError(CategoryBadData, providerID, "token response has no id_token", nil)
	}
	scope, _ := tok.Extra("scope").(string)
	tokenType := tok.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return fedmodels.TokenSet{
		AccessToken:  tok.AccessToken,
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tokenType,
		Scope:        scope,
		ExpiresAt:    tok.Expiry,
	}, nil
}
